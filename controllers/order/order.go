package orderControllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderpipe/ecommerce-api/events"
	"github.com/orderpipe/ecommerce-api/middleware"
	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/settlement"
)

// -------- Request Structs --------

type PriceOrderRequest struct {
	CouponCode    string           `json:"coupon_code"`
	UseWallet     bool             `json:"use_wallet"`
	WalletPoints  *decimal.Decimal `json:"wallet_points"`
	PaymentMethod string           `json:"payment_method"`
}

type UpdatePaymentStatusRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	PaymentStatus string `json:"payment_status" binding:"required"` // "success" or "failed"
	TransactionID string `json:"transaction_id"`
}

// -------- Helpers --------

func (r PriceOrderRequest) toPriceRequest() settlement.PriceRequest {
	return settlement.PriceRequest{
		CouponCode:    strings.ToUpper(strings.TrimSpace(r.CouponCode)),
		UseWallet:     r.UseWallet,
		WalletPoints:  r.WalletPoints,
		PaymentMethod: r.PaymentMethod,
	}
}

// Map string to OrderStatus for the list filter
func mapOrderStatus(status string) (models.OrderStatus, bool) {
	switch models.OrderStatus(strings.ToLower(status)) {
	case models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusProcessing,
		models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
		return models.OrderStatus(strings.ToLower(status)), true
	default:
		return "", false
	}
}

// statusFor maps engine failures onto HTTP statuses.
func statusFor(err error) int {
	switch settlement.KindOf(err) {
	case settlement.KindNotEligible:
		return http.StatusBadRequest
	case settlement.KindResourceExhausted, settlement.KindStateConflict:
		return http.StatusConflict
	case settlement.KindNotFound:
		return http.StatusNotFound
	case settlement.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func currentUserID(c *gin.Context) (string, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userIDVal.(string), true
}

func publishOrderEvent(pub *events.Publisher, order *models.Order, eventType string) {
	if pub == nil {
		return
	}
	priority := uint8(5)
	if order.FinalAmount.GreaterThan(decimal.NewFromInt(1000)) {
		priority = 9 // large orders get priority handling
	}
	err := pub.PublishOrderEvent(events.OrderEvent{
		OrderID:       order.ID,
		OrderRef:      order.OrderRef,
		UserID:        order.UserID,
		Type:          eventType,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		FinalAmount:   order.FinalAmount.StringFixed(2),
	}, priority)
	if err != nil {
		log.Printf("Failed to publish %s event for order %d: %v", eventType, order.ID, err)
	}
}

// -------- Handlers --------

// Preview a priced breakdown for the current cart; commits nothing.
func PreviewOrderHandler(eng *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req PriceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		breakdown, err := eng.Preview(c.Request.Context(), userID, req.toPriceRequest())
		middleware.RecordOrderOperation("preview", err == nil)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, breakdown)
	}
}

// Place an order: converts the cart into a pending order, consuming
// stock, wallet balance and coupon quota atomically.
func PlaceOrderHandler(eng *settlement.Engine, pub *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req PriceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		order, err := eng.Commit(c.Request.Context(), userID, req.toPriceRequest())
		middleware.RecordOrderOperation("place", err == nil)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, order)

		// Only after the transaction has committed.
		publishOrderEvent(pub, order, "created")
		broadcastOrderUpdate(order)
	}
}

// UpdatePaymentStatus is the trusted payment-gateway callback; it settles
// a pending order against the reported outcome.
func UpdatePaymentStatusHandler(eng *settlement.Engine, pub *events.Publisher) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseUint(c.Param("orderID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
			return
		}
		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		outcome, err := settlement.ParseOutcome(strings.ToLower(req.PaymentStatus))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := eng.Reconcile(c.Request.Context(), uint(orderID), req.UserID, outcome, req.TransactionID)
		middleware.RecordOrderOperation("settle", err == nil)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, order)

		publishOrderEvent(pub, order, "payment_settled")
		broadcastOrderUpdate(order)
	}
}

// Fetch a single order owned by the caller.
func GetOrderByIDHandler(eng *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		orderID, err := strconv.ParseUint(c.Param("orderID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
			return
		}

		order, err := eng.Order(c.Request.Context(), uint(orderID), userID)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// List the caller's orders, optionally filtered by status.
func GetUserOrdersHandler(eng *settlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var status models.OrderStatus
		if raw := c.Query("status"); raw != "" {
			mapped, valid := mapOrderStatus(raw)
			if !valid {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order status"})
				return
			}
			status = mapped
		}

		orders, err := eng.Orders(c.Request.Context(), userID, status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// Fetch all orders (admin)
func GetAllOrdersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("Items").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}
