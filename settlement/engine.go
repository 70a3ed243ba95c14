// Package settlement owns the order lifecycle: atomic commit of an order
// with all the resources it consumes, and reconciliation against the
// payment outcome, including compensating rollback on failure.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/pricing"
)

// Outcome is the trusted payment signal driving reconciliation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// ParseOutcome maps a caller-supplied status string to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeSuccess:
		return OutcomeSuccess, nil
	case OutcomeFailed:
		return OutcomeFailed, nil
	default:
		return "", fmt.Errorf("invalid payment outcome %q", s)
	}
}

// PriceRequest are the user-controlled inputs to a preview or commit.
type PriceRequest struct {
	CouponCode    string
	UseWallet     bool
	WalletPoints  *decimal.Decimal
	PaymentMethod string
}

type Engine struct {
	store   Store
	timeout time.Duration
	now     func() time.Time
}

const defaultTimeout = 10 * time.Second

func NewEngine(store Store, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{store: store, timeout: timeout, now: time.Now}
}

// assemble reads the cart snapshot, product state, coupon and wallet
// balance through s and builds the pricing inputs. Reads are non-locking;
// commit re-runs this inside its transaction so the snapshot it prices is
// the one it mutates.
func (e *Engine) assemble(ctx context.Context, s Store, userID string, req PriceRequest) (pricing.Inputs, *models.Coupon, error) {
	var in pricing.Inputs

	items, err := s.CartLines(ctx, userID)
	if err != nil {
		return in, nil, err
	}
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		p, err := s.ProductForPricing(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return in, nil, fmt.Errorf("%w: product %d", pricing.ErrProductUnavailable, it.ProductID)
			}
			return in, nil, err
		}
		lines = append(lines, pricing.Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			Active:    p.IsActive,
			Stock:     p.Stock,
		})
	}

	var coupon *models.Coupon
	uses := 0
	if req.CouponCode != "" {
		coupon, err = s.CouponByCode(ctx, req.CouponCode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return in, nil, pricing.ErrCouponNotFound
			}
			return in, nil, err
		}
		uses, err = s.UserCouponUses(ctx, userID, coupon.ID)
		if err != nil {
			return in, nil, err
		}
	}

	balance := decimal.Zero
	if req.UseWallet {
		balance, err = s.WalletBalance(ctx, userID)
		if err != nil {
			return in, nil, err
		}
	}

	in = pricing.Inputs{
		Lines:           lines,
		Coupon:          coupon,
		UserCouponUses:  uses,
		WalletBalance:   balance,
		UseWallet:       req.UseWallet,
		WalletRequested: req.WalletPoints,
		Now:             e.now(),
	}
	return in, coupon, nil
}

// Preview prices the current cart without committing anything. The result
// is inherently stale the moment it returns.
func (e *Engine) Preview(ctx context.Context, userID string, req PriceRequest) (*pricing.Breakdown, error) {
	in, _, err := e.assemble(ctx, e.store, userID, req)
	if err != nil {
		return nil, err
	}
	return pricing.Quote(in)
}

// Commit prices and persists the order in one transaction: order, items
// and pending payment transaction are created, stock, wallet and coupon
// counters are consumed through conditional updates, and the cart is
// cleared. Either all of it lands or none of it does.
func (e *Engine) Commit(ctx context.Context, userID string, req PriceRequest) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var order *models.Order
	err := e.store.InTx(ctx, func(s Store) error {
		in, coupon, err := e.assemble(ctx, s, userID, req)
		if err != nil {
			return err
		}
		breakdown, err := pricing.Quote(in)
		if err != nil {
			return err
		}

		o := &models.Order{
			OrderRef:         newOrderRef(),
			UserID:           userID,
			TotalAmount:      breakdown.Subtotal,
			CouponDiscount:   breakdown.CouponDiscount,
			WalletPointsUsed: breakdown.WalletPointsUsed,
			FinalAmount:      breakdown.FinalAmount,
			Status:           models.OrderStatusPending,
			PaymentStatus:    models.PaymentStatusPending,
		}
		if coupon != nil {
			o.CouponID = &coupon.ID
		}
		for _, l := range breakdown.Lines {
			o.Items = append(o.Items, models.OrderItem{
				ProductID:   l.ProductID,
				ProductName: l.Name,
				UnitPrice:   l.UnitPrice,
				Quantity:    l.Quantity,
			})
		}
		if err := s.CreateOrder(ctx, o); err != nil {
			return err
		}

		for _, item := range o.Items {
			ok, err := s.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: product %d", pricing.ErrInsufficientStock, item.ProductID)
			}
		}

		if o.WalletPointsUsed.IsPositive() {
			ok, err := s.DebitWallet(ctx, userID, o.WalletPointsUsed)
			if err != nil {
				return err
			}
			if !ok {
				return pricing.ErrInsufficientWalletBalance
			}
		}

		if coupon != nil {
			ok, err := s.IncrementCouponUsage(ctx, coupon.ID)
			if err != nil {
				return err
			}
			if !ok {
				return pricing.ErrCouponUsageLimitReached
			}
			ok, err = s.IncrementUserCouponUses(ctx, userID, coupon.ID, coupon.UsageLimitPerUser)
			if err != nil {
				return err
			}
			if !ok {
				return pricing.ErrUserCouponLimitReached
			}
		}

		if err := s.ClearCart(ctx, userID); err != nil {
			return err
		}

		txn := &models.PaymentTransaction{
			OrderID:       o.ID,
			Status:        models.PaymentStatusPending,
			PaymentMethod: req.PaymentMethod,
		}
		if err := s.CreatePaymentTransaction(ctx, txn); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, mapTimeout(ctx, err)
	}
	return order, nil
}

// Reconcile applies the payment outcome to a pending order. SUCCESS keeps
// the consumed resources and confirms the order; FAILED cancels it and
// compensates stock, wallet and coupon counters in the same transaction.
// Re-posting the terminal outcome an order already carries is a no-op
// returning the current state; posting the opposite one fails with
// ErrAlreadySettled.
func (e *Engine) Reconcile(ctx context.Context, orderID uint, userID string, outcome Outcome, externalRef string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var out *models.Order
	err := e.store.InTx(ctx, func(s Store) error {
		o, err := s.OrderForSettlement(ctx, orderID, userID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		switch o.PaymentStatus {
		case models.PaymentStatusSuccess:
			if outcome == OutcomeSuccess {
				out = o
				return nil
			}
			return ErrAlreadySettled
		case models.PaymentStatusFailed:
			if outcome == OutcomeFailed {
				out = o
				return nil
			}
			// The failed path already gave the resources back; letting a
			// late SUCCESS through would consume them twice.
			return ErrAlreadySettled
		}

		if outcome == OutcomeSuccess {
			o.PaymentStatus = models.PaymentStatusSuccess
			o.Status = models.OrderStatusConfirmed
			if err := s.SaveSettlement(ctx, o, externalRef); err != nil {
				return err
			}
			out = o
			return nil
		}

		o.PaymentStatus = models.PaymentStatusFailed
		o.Status = models.OrderStatusCancelled
		if err := s.SaveSettlement(ctx, o, externalRef); err != nil {
			return err
		}
		for _, item := range o.Items {
			if err := s.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if o.WalletPointsUsed.IsPositive() {
			if err := s.CreditWallet(ctx, o.UserID, o.WalletPointsUsed); err != nil {
				return err
			}
		}
		if o.CouponID != nil {
			if err := s.DecrementCouponUsage(ctx, *o.CouponID); err != nil {
				return err
			}
			if err := s.DecrementUserCouponUses(ctx, o.UserID, *o.CouponID); err != nil {
				return err
			}
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, mapTimeout(ctx, err)
	}
	return out, nil
}

// Order fetches a single order owned by the user.
func (e *Engine) Order(ctx context.Context, orderID uint, userID string) (*models.Order, error) {
	o, err := e.store.OrderByID(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// Orders lists the user's orders, newest first, optionally filtered by
// order status.
func (e *Engine) Orders(ctx context.Context, userID string, status models.OrderStatus) ([]models.Order, error) {
	return e.store.OrdersByUser(ctx, userID, status)
}

func mapTimeout(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrSettlementTimeout
	}
	return err
}

func newOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}
