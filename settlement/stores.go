package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/orderpipe/ecommerce-api/models"
)

// Store is the engine's view of durable state: the cart provider, product
// catalog, wallet store, coupon store and order store, plus the atomic
// unit of work that binds them. All "conditional" mutations apply only if
// their precondition still holds at write time and report whether they
// did, so racing commits converge instead of overselling.
type Store interface {
	// InTx runs fn against a store bound to a single all-or-nothing
	// transaction. Conditional failures inside fn abort the whole unit.
	InTx(ctx context.Context, fn func(Store) error) error

	// Cart provider.
	CartLines(ctx context.Context, userID string) ([]models.CartItem, error)
	ClearCart(ctx context.Context, userID string) error

	// Product catalog. DecrementStock only applies while stock >= qty.
	ProductForPricing(ctx context.Context, productID uint) (*models.Product, error)
	DecrementStock(ctx context.Context, productID uint, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uint, qty int) error

	// Wallet store. DebitWallet only applies while balance >= amount.
	WalletBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	DebitWallet(ctx context.Context, userID string, amount decimal.Decimal) (bool, error)
	CreditWallet(ctx context.Context, userID string, amount decimal.Decimal) error

	// Coupon store. Increments are conditional on the respective usage
	// limits; decrements floor at zero.
	CouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	IncrementCouponUsage(ctx context.Context, couponID uint) (bool, error)
	DecrementCouponUsage(ctx context.Context, couponID uint) error
	UserCouponUses(ctx context.Context, userID string, couponID uint) (int, error)
	IncrementUserCouponUses(ctx context.Context, userID string, couponID uint, limit *int) (bool, error)
	DecrementUserCouponUses(ctx context.Context, userID string, couponID uint) error

	// Order store. OrderForSettlement takes a row lock so concurrent
	// reconciles of the same order serialize.
	CreateOrder(ctx context.Context, order *models.Order) error
	CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	OrderForSettlement(ctx context.Context, orderID uint, userID string) (*models.Order, error)
	SaveSettlement(ctx context.Context, order *models.Order, externalRef string) error
	OrderByID(ctx context.Context, orderID uint, userID string) (*models.Order, error)
	OrdersByUser(ctx context.Context, userID string, status models.OrderStatus) ([]models.Order, error)
}
