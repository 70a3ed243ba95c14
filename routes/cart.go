package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	cartControllers "github.com/orderpipe/ecommerce-api/controllers/cart"
	"github.com/orderpipe/ecommerce-api/middleware"
)

func SetupCartRoutes(r *gin.Engine, db *gorm.DB) {
	cart := r.Group("/user/cart")
	cart.Use(middleware.ValidateToken)
	{
		cart.GET("", cartControllers.GetCart(db))
		cart.POST("", cartControllers.UpdateCartItem(db))
		cart.DELETE("/:product_id", cartControllers.DeleteCartItem(db))
	}
}
