package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	couponControllers "github.com/orderpipe/ecommerce-api/controllers/coupon"
	"github.com/orderpipe/ecommerce-api/middleware"
)

func SetupCouponRoutes(r *gin.Engine, db *gorm.DB) {
	coupons := r.Group("/coupons")
	coupons.Use(middleware.ValidateToken)
	{
		coupons.GET("/:code", couponControllers.GetCouponByCode(db))
	}

	admin := r.Group("/admin/coupons")
	admin.Use(middleware.ValidateAPIKey)
	{
		admin.POST("", couponControllers.CreateCoupon(db))
	}
}
