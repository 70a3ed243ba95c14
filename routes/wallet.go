package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	walletControllers "github.com/orderpipe/ecommerce-api/controllers/wallet"
	"github.com/orderpipe/ecommerce-api/middleware"
)

func SetupWalletRoutes(r *gin.Engine, db *gorm.DB) {
	wallet := r.Group("/user/wallet")
	wallet.Use(middleware.ValidateToken)
	{
		wallet.GET("", walletControllers.GetWallet(db))
	}

	admin := r.Group("/admin/wallet")
	admin.Use(middleware.ValidateAPIKey)
	{
		admin.POST("/credit", walletControllers.CreditWallet(db))
	}
}
