package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses (typical e-commerce flow)
	OrderStatusPending    OrderStatus = "pending"    // Order placed, awaiting payment outcome
	OrderStatusConfirmed  OrderStatus = "confirmed"  // Payment succeeded
	OrderStatusProcessing OrderStatus = "processing" // Being prepared
	OrderStatusShipped    OrderStatus = "shipped"    // Out for delivery
	OrderStatusDelivered  OrderStatus = "delivered"  // Customer received the item
	OrderStatusCancelled  OrderStatus = "cancelled"  // Payment failed or cancelled before shipping

	// Payment statuses
	PaymentStatusPending  PaymentStatus = "pending"  // Payment not completed yet
	PaymentStatusSuccess  PaymentStatus = "success"  // Payment completed successfully
	PaymentStatusFailed   PaymentStatus = "failed"   // Payment attempt failed
	PaymentStatusRefunded PaymentStatus = "refunded" // Money returned to customer
)

type Order struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	OrderRef         string          `gorm:"uniqueIndex" json:"order_ref"`
	UserID           string          `gorm:"not null;index" json:"user_id"`
	CouponID         *uint           `json:"coupon_id,omitempty"`
	Items            []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	CouponDiscount   decimal.Decimal `gorm:"type:decimal(12,2)" json:"coupon_discount"`
	WalletPointsUsed decimal.Decimal `gorm:"type:decimal(12,2)" json:"wallet_points_used"`
	FinalAmount      decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_amount"`
	Status           OrderStatus     `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus    PaymentStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// OrderItem is an immutable snapshot taken at commit time; the unit price
// is never re-read from the live product after creation.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index" json:"order_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2)" json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// PaymentTransaction is 1:1 with an order and mirrors its payment status.
type PaymentTransaction struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderID       uint          `gorm:"uniqueIndex" json:"order_id"`
	Status        PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentMethod string        `json:"payment_method"` // e.g. "card", "cod"
	ExternalRef   string        `json:"external_ref"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
