package couponControllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orderpipe/ecommerce-api/models"
)

type CouponInput struct {
	Code              string           `json:"code" binding:"required"`
	DiscountType      string           `json:"discount_type" binding:"required,oneof=percentage fixed"`
	DiscountValue     decimal.Decimal  `json:"discount_value" binding:"required"`
	MinPurchase       *decimal.Decimal `json:"min_purchase"`
	MaxDiscount       *decimal.Decimal `json:"max_discount"`
	ValidFrom         time.Time        `json:"valid_from" binding:"required"`
	ValidTo           time.Time        `json:"valid_to" binding:"required"`
	IsActive          *bool            `json:"is_active"`
	TotalUsageLimit   *int             `json:"total_usage_limit"`
	UsageLimitPerUser *int             `json:"usage_limit_per_user"`
}

// POST /admin/coupons
func CreateCoupon(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CouponInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if input.ValidTo.Before(input.ValidFrom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "valid_to must not precede valid_from"})
			return
		}
		if input.DiscountValue.Sign() <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "discount_value must be positive"})
			return
		}
		if input.MaxDiscount != nil && input.DiscountType != string(models.DiscountTypePercentage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_discount only applies to percentage coupons"})
			return
		}

		coupon := models.Coupon{
			Code:              strings.ToUpper(strings.TrimSpace(input.Code)),
			DiscountType:      models.DiscountType(input.DiscountType),
			DiscountValue:     input.DiscountValue,
			MinPurchase:       input.MinPurchase,
			MaxDiscount:       input.MaxDiscount,
			ValidFrom:         input.ValidFrom,
			ValidTo:           input.ValidTo,
			IsActive:          true,
			TotalUsageLimit:   input.TotalUsageLimit,
			UsageLimitPerUser: input.UsageLimitPerUser,
		}
		if input.IsActive != nil {
			coupon.IsActive = *input.IsActive
		}

		if err := db.Create(&coupon).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create coupon"})
			return
		}
		c.JSON(http.StatusCreated, coupon)
	}
}

// GET /coupons/:code
func GetCouponByCode(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
		var coupon models.Coupon
		if err := db.Where("code = ?", code).First(&coupon).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Coupon not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch coupon"})
			return
		}
		c.JSON(http.StatusOK, coupon)
	}
}
