// Package pricing computes priced order breakdowns from a cart snapshot.
// It is pure: no storage access, no mutation. The settlement engine runs
// the same computation again inside its transaction, so a quote is only
// ever advisory.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderpipe/ecommerce-api/models"
)

// Line is one cart line joined with the product state read for pricing.
type Line struct {
	ProductID uint
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Active    bool
	Stock     int
}

// Inputs carries everything a quote depends on. Coupon is nil when no code
// was supplied; WalletRequested is nil for auto-apply.
type Inputs struct {
	Lines           []Line
	Coupon          *models.Coupon
	UserCouponUses  int
	WalletBalance   decimal.Decimal
	UseWallet       bool
	WalletRequested *decimal.Decimal
	Now             time.Time
}

type LineAmount struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}

type Breakdown struct {
	Lines            []LineAmount    `json:"lines"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	CouponDiscount   decimal.Decimal `json:"coupon_discount"`
	WalletPointsUsed decimal.Decimal `json:"wallet_points_used"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
}

// Quote validates the snapshot and computes the breakdown. Line amounts
// sum unrounded; every later value derives from rounded predecessors so
// the breakdown reconciles to the cent.
func Quote(in Inputs) (*Breakdown, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := decimal.Zero
	lines := make([]LineAmount, 0, len(in.Lines))
	for _, l := range in.Lines {
		if !l.Active {
			return nil, fmt.Errorf("%w: product %d", ErrProductUnavailable, l.ProductID)
		}
		if l.Quantity > l.Stock {
			return nil, fmt.Errorf("%w: product %d", ErrInsufficientStock, l.ProductID)
		}
		amount := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		subtotal = subtotal.Add(amount)
		lines = append(lines, LineAmount{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Amount:    amount,
		})
	}

	// Round once the sum is complete, then derive every later value from
	// the rounded ones so the breakdown always satisfies
	// final == subtotal - discount - wallet to the cent.
	subtotal = subtotal.Round(2)

	discount, err := couponDiscount(in.Coupon, subtotal, in.UserCouponUses, in.Now)
	if err != nil {
		return nil, err
	}
	discount = discount.Round(2)

	payable := subtotal.Sub(discount)
	walletUsed, err := allocateWallet(in.WalletBalance, payable, in.UseWallet, in.WalletRequested)
	if err != nil {
		return nil, err
	}
	walletUsed = walletUsed.Round(2)

	final := payable.Sub(walletUsed)
	if final.IsNegative() {
		final = decimal.Zero
	}

	for i := range lines {
		lines[i].Amount = lines[i].Amount.Round(2)
	}
	return &Breakdown{
		Lines:            lines,
		Subtotal:         subtotal,
		CouponDiscount:   discount,
		WalletPointsUsed: walletUsed,
		FinalAmount:      final,
	}, nil
}
