package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	productControllers "github.com/orderpipe/ecommerce-api/controllers/product"
	"github.com/orderpipe/ecommerce-api/middleware"
)

func SetupProductRoutes(r *gin.Engine, db *gorm.DB) {
	products := r.Group("/products")
	{
		products.GET("", productControllers.GetAllProducts(db))
		products.GET("/:id", productControllers.GetProductByID(db))
	}

	admin := r.Group("/admin/products")
	admin.Use(middleware.ValidateAPIKey)
	{
		admin.POST("", productControllers.CreateProduct(db))
	}
}
