package pricing

import "errors"

// Each failure mode is a distinct sentinel so callers can match with
// errors.Is and map it to a response of their own.
var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is unavailable")
	ErrInsufficientStock  = errors.New("insufficient stock")

	ErrCouponNotFound          = errors.New("coupon not found")
	ErrCouponInactive          = errors.New("coupon is inactive")
	ErrCouponExpired           = errors.New("coupon is expired")
	ErrMinPurchaseNotMet       = errors.New("minimum purchase not met")
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	ErrUserCouponLimitReached  = errors.New("coupon usage limit for this user reached")

	ErrInsufficientWalletBalance = errors.New("insufficient wallet balance")
	ErrWalletExceedsPayable      = errors.New("wallet points exceed payable amount")
)
