package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderpipe/ecommerce-api/models"
)

var oneHundred = decimal.NewFromInt(100)

// couponDiscount checks eligibility against the subtotal and the user's
// prior usage, then computes the discount. The validity range is
// inclusive on both ends.
func couponDiscount(c *models.Coupon, subtotal decimal.Decimal, priorUses int, now time.Time) (decimal.Decimal, error) {
	if c == nil {
		return decimal.Zero, nil
	}
	if !c.IsActive {
		return decimal.Zero, ErrCouponInactive
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return decimal.Zero, ErrCouponExpired
	}
	if c.MinPurchase != nil && subtotal.LessThan(*c.MinPurchase) {
		return decimal.Zero, ErrMinPurchaseNotMet
	}
	if c.TotalUsageLimit != nil && c.CurrentUsageCount >= *c.TotalUsageLimit {
		return decimal.Zero, ErrCouponUsageLimitReached
	}
	if c.UsageLimitPerUser != nil && priorUses >= *c.UsageLimitPerUser {
		return decimal.Zero, ErrUserCouponLimitReached
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountTypePercentage:
		discount = subtotal.Mul(c.DiscountValue).Div(oneHundred)
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case models.DiscountTypeFixed:
		discount = c.DiscountValue
	default:
		return decimal.Zero, ErrCouponInactive
	}

	// A coupon alone can never push the payable amount below zero.
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount, nil
}
