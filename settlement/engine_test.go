package settlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/pricing"
	"github.com/orderpipe/ecommerce-api/repository"
	"github.com/orderpipe/ecommerce-api/settlement"
)

const userID = "user-1"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(i int) *int {
	return &i
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func seedStore(t *testing.T) *repository.Memory {
	t.Helper()
	store := repository.NewMemory()
	store.PutProduct(models.Product{ID: 1, Name: "Keyboard", Price: dec("100.00"), Stock: 10, IsActive: true})
	store.PutProduct(models.Product{ID: 2, Name: "Mouse", Price: dec("25.00"), Stock: 5, IsActive: true})
	store.AddCartItem(userID, models.CartItem{ProductID: 1, ProductName: "Keyboard", Quantity: 2})
	store.AddCartItem(userID, models.CartItem{ProductID: 2, ProductName: "Mouse", Quantity: 1})
	return store
}

func seedCoupon(store *repository.Memory, perUser *int) {
	store.PutCoupon(models.Coupon{
		ID:                7,
		Code:              "SAVE10",
		DiscountType:      models.DiscountTypeFixed,
		DiscountValue:     dec("10"),
		ValidFrom:         time.Now().Add(-time.Hour),
		ValidTo:           time.Now().Add(time.Hour),
		IsActive:          true,
		UsageLimitPerUser: perUser,
	})
}

func newEngine(store *repository.Memory) *settlement.Engine {
	return settlement.NewEngine(store, 5*time.Second)
}

func TestPreview_DoesNotConsumeAnything(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	bd, err := eng.Preview(context.Background(), userID, settlement.PriceRequest{})
	require.NoError(t, err)
	assert.True(t, bd.Subtotal.Equal(dec("225.00")))
	assert.True(t, bd.FinalAmount.Equal(dec("225.00")))

	assert.Equal(t, 10, store.Product(1).Stock)
	items, err := store.CartLines(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCommit_HappyPath(t *testing.T) {
	store := seedStore(t)
	seedCoupon(store, intPtr(3))
	store.SetWallet(userID, dec("50"))
	eng := newEngine(store)

	order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{
		CouponCode:    "SAVE10",
		UseWallet:     true,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	require.NotZero(t, order.ID)
	assert.NotEmpty(t, order.OrderRef)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(dec("225.00")))
	assert.True(t, order.CouponDiscount.Equal(dec("10.00")))
	assert.True(t, order.WalletPointsUsed.Equal(dec("50.00")))
	assert.True(t, order.FinalAmount.Equal(dec("165.00")))
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPrice.Equal(dec("100.00")))

	// resources consumed
	assert.Equal(t, 8, store.Product(1).Stock)
	assert.Equal(t, 4, store.Product(2).Stock)
	assert.True(t, store.Wallet(userID).IsZero())
	assert.Equal(t, 1, store.Coupon(7).CurrentUsageCount)
	assert.Equal(t, 1, store.UserUsage(userID, 7))

	// cart cleared, pending transaction created
	items, err := store.CartLines(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, items)
	txn, ok := store.Transaction(order.ID)
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
	assert.Equal(t, "card", txn.PaymentMethod)
}

func TestCommit_EmptyCart(t *testing.T) {
	store := repository.NewMemory()
	eng := newEngine(store)

	_, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{})
	assert.ErrorIs(t, err, pricing.ErrEmptyCart)
}

func TestCommit_InsufficientStockLeavesNothingBehind(t *testing.T) {
	store := repository.NewMemory()
	store.PutProduct(models.Product{ID: 1, Name: "Keyboard", Price: dec("100.00"), Stock: 1, IsActive: true})
	store.AddCartItem(userID, models.CartItem{ProductID: 1, Quantity: 3})
	store.SetWallet(userID, dec("500"))
	eng := newEngine(store)

	_, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{UseWallet: true})
	assert.ErrorIs(t, err, pricing.ErrInsufficientStock)

	assert.Equal(t, 1, store.Product(1).Stock)
	assert.True(t, store.Wallet(userID).Equal(dec("500")))
	items, cartErr := store.CartLines(context.Background(), userID)
	require.NoError(t, cartErr)
	assert.Len(t, items, 1)
}

func TestCommit_UnknownCoupon(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	_, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{CouponCode: "NOPE"})
	assert.ErrorIs(t, err, pricing.ErrCouponNotFound)
}

func TestCommit_PerUserCouponLimit(t *testing.T) {
	store := seedStore(t)
	seedCoupon(store, intPtr(1))
	eng := newEngine(store)

	first, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{CouponCode: "SAVE10"})
	require.NoError(t, err)
	require.NotNil(t, first.CouponID)

	store.AddCartItem(userID, models.CartItem{ProductID: 1, Quantity: 1})
	_, err = eng.Commit(context.Background(), userID, settlement.PriceRequest{CouponCode: "SAVE10"})
	assert.ErrorIs(t, err, pricing.ErrUserCouponLimitReached)

	// the failed attempt must not touch counters or stock
	assert.Equal(t, 1, store.Coupon(7).CurrentUsageCount)
	assert.Equal(t, 1, store.UserUsage(userID, 7))
	assert.Equal(t, 8, store.Product(1).Stock)
}

func TestReconcile_SuccessConfirmsAndKeepsResources(t *testing.T) {
	store := seedStore(t)
	seedCoupon(store, nil)
	store.SetWallet(userID, dec("50"))
	eng := newEngine(store)

	order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{
		CouponCode: "SAVE10",
		UseWallet:  true,
	})
	require.NoError(t, err)

	settled, err := eng.Reconcile(context.Background(), order.ID, userID, settlement.OutcomeSuccess, "txn-abc")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, settled.Status)
	assert.Equal(t, models.PaymentStatusSuccess, settled.PaymentStatus)

	assert.Equal(t, 8, store.Product(1).Stock)
	assert.True(t, store.Wallet(userID).IsZero())
	assert.Equal(t, 1, store.Coupon(7).CurrentUsageCount)

	txn, ok := store.Transaction(order.ID)
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusSuccess, txn.Status)
	assert.Equal(t, "txn-abc", txn.ExternalRef)
}

func TestReconcile_FailureRestoresEverything(t *testing.T) {
	store := seedStore(t)
	seedCoupon(store, intPtr(2))
	store.SetWallet(userID, dec("50"))
	eng := newEngine(store)

	order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{
		CouponCode: "SAVE10",
		UseWallet:  true,
	})
	require.NoError(t, err)

	settled, err := eng.Reconcile(context.Background(), order.ID, userID, settlement.OutcomeFailed, "txn-fail")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, settled.Status)
	assert.Equal(t, models.PaymentStatusFailed, settled.PaymentStatus)

	// exact compensation back to the pre-commit state
	assert.Equal(t, 10, store.Product(1).Stock)
	assert.Equal(t, 5, store.Product(2).Stock)
	assert.True(t, store.Wallet(userID).Equal(dec("50")))
	assert.Equal(t, 0, store.Coupon(7).CurrentUsageCount)
	assert.Equal(t, 0, store.UserUsage(userID, 7))

	txn, ok := store.Transaction(order.ID)
	require.True(t, ok)
	assert.Equal(t, models.PaymentStatusFailed, txn.Status)
}

func TestReconcile_RepostingSameOutcomeIsIdempotent(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{})
	require.NoError(t, err)

	_, err = eng.Reconcile(context.Background(), order.ID, userID, settlement.OutcomeFailed, "")
	require.NoError(t, err)

	again, err := eng.Reconcile(context.Background(), order.ID, userID, settlement.OutcomeFailed, "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, again.PaymentStatus)

	// compensation ran once, not twice
	assert.Equal(t, 10, store.Product(1).Stock)
	assert.Equal(t, 5, store.Product(2).Stock)
}

func TestReconcile_ConflictingOutcomeRejected(t *testing.T) {
	tests := []struct {
		name  string
		first settlement.Outcome
		then  settlement.Outcome
	}{
		{"failed after success", settlement.OutcomeSuccess, settlement.OutcomeFailed},
		{"success after failed", settlement.OutcomeFailed, settlement.OutcomeSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore(t)
			eng := newEngine(store)

			order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{})
			require.NoError(t, err)

			_, err = eng.Reconcile(context.Background(), order.ID, userID, tt.first, "")
			require.NoError(t, err)

			_, err = eng.Reconcile(context.Background(), order.ID, userID, tt.then, "")
			assert.ErrorIs(t, err, settlement.ErrAlreadySettled)
		})
	}
}

func TestReconcile_UnknownOrder(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	_, err := eng.Reconcile(context.Background(), 999, userID, settlement.OutcomeSuccess, "")
	assert.ErrorIs(t, err, settlement.ErrOrderNotFound)
}

func TestReconcile_WrongUser(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{})
	require.NoError(t, err)

	_, err = eng.Reconcile(context.Background(), order.ID, "someone-else", settlement.OutcomeSuccess, "")
	assert.ErrorIs(t, err, settlement.ErrOrderNotFound)
}

func TestCommit_ConcurrentBuyersNeverOversell(t *testing.T) {
	store := repository.NewMemory()
	store.PutProduct(models.Product{ID: 1, Name: "Limited", Price: dec("10.00"), Stock: 1, IsActive: true})
	buyers := []string{"buyer-a", "buyer-b", "buyer-c", "buyer-d"}
	for _, b := range buyers {
		store.AddCartItem(b, models.CartItem{ProductID: 1, Quantity: 1})
	}
	eng := newEngine(store)

	var wg sync.WaitGroup
	results := make(chan error, len(buyers))
	for _, b := range buyers {
		wg.Add(1)
		go func(buyer string) {
			defer wg.Done()
			_, err := eng.Commit(context.Background(), buyer, settlement.PriceRequest{})
			results <- err
		}(b)
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, pricing.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 0, store.Product(1).Stock)
}

func TestCommit_ConcurrentWalletSpendNeverOverdraws(t *testing.T) {
	store := repository.NewMemory()
	store.PutProduct(models.Product{ID: 1, Name: "Gadget", Price: dec("60.00"), Stock: 100, IsActive: true})
	store.SetWallet(userID, dec("100"))
	eng := newEngine(store)

	// two commits each trying to spend 60 from a 100 balance
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		store.AddCartItem(userID, models.CartItem{ProductID: 1, Quantity: 1})
	}
	// both goroutines race over the same cart; the loser prices an
	// already-cleared cart or an already-drained wallet and must not
	// leave the balance negative
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{
				UseWallet:    true,
				WalletPoints: decPtr("60"),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	for range results {
	}
	assert.False(t, store.Wallet(userID).IsNegative())
}

func TestOrders_StatusFilter(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	first, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{})
	require.NoError(t, err)
	store.AddCartItem(userID, models.CartItem{ProductID: 2, Quantity: 1})
	_, err = eng.Commit(context.Background(), userID, settlement.PriceRequest{})
	require.NoError(t, err)

	_, err = eng.Reconcile(context.Background(), first.ID, userID, settlement.OutcomeSuccess, "")
	require.NoError(t, err)

	all, err := eng.Orders(context.Background(), userID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	confirmed, err := eng.Orders(context.Background(), userID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, first.ID, confirmed[0].ID)
}

func TestOrder_Ownership(t *testing.T) {
	store := seedStore(t)
	eng := newEngine(store)

	order, err := eng.Commit(context.Background(), userID, settlement.PriceRequest{})
	require.NoError(t, err)

	got, err := eng.Order(context.Background(), order.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderRef, got.OrderRef)

	_, err = eng.Order(context.Background(), order.ID, "intruder")
	assert.ErrorIs(t, err, settlement.ErrOrderNotFound)
}

func TestParseOutcome(t *testing.T) {
	out, err := settlement.ParseOutcome("success")
	require.NoError(t, err)
	assert.Equal(t, settlement.OutcomeSuccess, out)

	out, err = settlement.ParseOutcome("failed")
	require.NoError(t, err)
	assert.Equal(t, settlement.OutcomeFailed, out)

	_, err = settlement.ParseOutcome("refunded")
	assert.Error(t, err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want settlement.Kind
	}{
		{pricing.ErrInsufficientStock, settlement.KindResourceExhausted},
		{pricing.ErrInsufficientWalletBalance, settlement.KindResourceExhausted},
		{pricing.ErrCouponUsageLimitReached, settlement.KindResourceExhausted},
		{pricing.ErrCouponExpired, settlement.KindNotEligible},
		{pricing.ErrEmptyCart, settlement.KindNotEligible},
		{pricing.ErrCouponNotFound, settlement.KindNotEligible},
		{settlement.ErrOrderNotFound, settlement.KindNotFound},
		{settlement.ErrAlreadySettled, settlement.KindStateConflict},
		{settlement.ErrSettlementTimeout, settlement.KindTransient},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, settlement.KindOf(tt.err), "error %v", tt.err)
	}
}
