package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage" // percentage of the subtotal, optionally capped
	DiscountTypeFixed      DiscountType = "fixed"      // flat amount, capped at the subtotal
)

type Coupon struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Code              string           `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType      DiscountType     `gorm:"type:VARCHAR(20);not null" json:"discount_type"`
	DiscountValue     decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"discount_value"`
	MinPurchase       *decimal.Decimal `gorm:"type:decimal(12,2)" json:"min_purchase,omitempty"`
	MaxDiscount       *decimal.Decimal `gorm:"type:decimal(12,2)" json:"max_discount,omitempty"` // percentage coupons only
	ValidFrom         time.Time        `json:"valid_from"`
	ValidTo           time.Time        `json:"valid_to"`
	IsActive          bool             `gorm:"not null;default:true" json:"is_active"`
	TotalUsageLimit   *int             `json:"total_usage_limit,omitempty"`
	CurrentUsageCount int              `gorm:"not null;default:0" json:"current_usage_count"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// UserCouponUsage tracks how many times a user redeemed a coupon. Created on
// first use, incremented on each successful order, decremented on rollback.
type UserCouponUsage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"uniqueIndex:idx_user_coupon" json:"user_id"`
	CouponID   uint      `gorm:"uniqueIndex:idx_user_coupon" json:"coupon_id"`
	UsageCount int       `gorm:"not null;default:0" json:"usage_count"`
	LastUsedAt time.Time `json:"last_used_at"`
}
