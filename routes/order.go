package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	orderControllers "github.com/orderpipe/ecommerce-api/controllers/order"
	"github.com/orderpipe/ecommerce-api/events"
	"github.com/orderpipe/ecommerce-api/middleware"
	"github.com/orderpipe/ecommerce-api/settlement"
)

func SetupOrderRoutes(r *gin.Engine, db *gorm.DB, eng *settlement.Engine, pub *events.Publisher) {
	orders := r.Group("/orders")
	orders.Use(middleware.ValidateToken)
	{
		// Price the current cart without committing anything
		orders.POST("/preview", orderControllers.PreviewOrderHandler(eng))

		// Convert the cart into a pending order
		orders.POST("/place", orderControllers.PlaceOrderHandler(eng, pub))

		// Fetch a single order
		orders.GET("/:orderID", orderControllers.GetOrderByIDHandler(eng))

		// Fetch the caller's orders, newest first
		orders.GET("", orderControllers.GetUserOrdersHandler(eng))

		// websocket endpoint for real-time order updates
		orders.GET("/ws", orderControllers.OrderWebSocketHandler)
	}

	// Trusted payment-gateway callback (API-key protected)
	callback := r.Group("/internal/orders")
	callback.Use(middleware.ValidateAPIKey)
	{
		callback.PUT("/:orderID/payment-status", orderControllers.UpdatePaymentStatusHandler(eng, pub))
	}

	// Admin surfaces (API-key protected)
	admin := r.Group("/admin/orders")
	admin.Use(middleware.ValidateAPIKey)
	{
		admin.GET("", orderControllers.GetAllOrdersHandler(db))
		admin.GET("/export", orderControllers.ExportOrdersToExcel(db))
	}
}
