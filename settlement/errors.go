package settlement

import (
	"errors"

	"github.com/orderpipe/ecommerce-api/pricing"
)

var (
	// ErrNotFound is what stores return for a missing row.
	ErrNotFound = errors.New("record not found")

	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadySettled guards terminal payment states: a settled order
	// can never be flipped to the opposite outcome.
	ErrAlreadySettled = errors.New("order already settled")
	// ErrSettlementTimeout is transient; the whole commit/reconcile may
	// be retried from scratch.
	ErrSettlementTimeout = errors.New("settlement timed out")
)

// Kind buckets engine failures for the transport layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotEligible
	KindResourceExhausted
	KindNotFound
	KindStateConflict
	KindTransient
)

func KindOf(err error) Kind {
	switch {
	case errors.Is(err, pricing.ErrInsufficientStock),
		errors.Is(err, pricing.ErrInsufficientWalletBalance),
		errors.Is(err, pricing.ErrCouponUsageLimitReached),
		errors.Is(err, pricing.ErrUserCouponLimitReached):
		return KindResourceExhausted
	case errors.Is(err, pricing.ErrEmptyCart),
		errors.Is(err, pricing.ErrProductUnavailable),
		errors.Is(err, pricing.ErrCouponNotFound),
		errors.Is(err, pricing.ErrCouponInactive),
		errors.Is(err, pricing.ErrCouponExpired),
		errors.Is(err, pricing.ErrMinPurchaseNotMet),
		errors.Is(err, pricing.ErrWalletExceedsPayable):
		return KindNotEligible
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadySettled):
		return KindStateConflict
	case errors.Is(err, ErrSettlementTimeout):
		return KindTransient
	}
	return KindUnknown
}
