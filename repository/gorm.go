// Package repository provides the settlement.Store implementations: a
// gorm/PostgreSQL store for production and an in-memory store for tests
// and local development.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/settlement"
)

// Gorm implements settlement.Store over a *gorm.DB. Conditional mutations
// are single UPDATE statements whose precondition lives in the WHERE
// clause; the affected-row count tells the caller whether the condition
// still held at write time.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) InTx(ctx context.Context, fn func(settlement.Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

// ---- Cart provider ----

func (g *Gorm) CartLines(ctx context.Context, userID string) ([]models.CartItem, error) {
	var cart models.Cart
	err := g.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cart.Items, nil
}

func (g *Gorm) ClearCart(ctx context.Context, userID string) error {
	var cart models.Cart
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error
}

// ---- Product catalog ----

func (g *Gorm) ProductForPricing(ctx context.Context, productID uint) (*models.Product, error) {
	var p models.Product
	err := g.db.WithContext(ctx).First(&p, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, settlement.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *Gorm) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	res := g.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	return res.RowsAffected > 0, res.Error
}

func (g *Gorm) IncrementStock(ctx context.Context, productID uint, qty int) error {
	return g.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// ---- Wallet store ----

func (g *Gorm) WalletBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var w models.Wallet
	err := g.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

func (g *Gorm) DebitWallet(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	res := g.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	return res.RowsAffected > 0, res.Error
}

func (g *Gorm) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal) error {
	res := g.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return g.db.WithContext(ctx).Create(&models.Wallet{UserID: userID, Balance: amount}).Error
	}
	return nil
}

// ---- Coupon store ----

func (g *Gorm) CouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := g.db.WithContext(ctx).Where("code = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, settlement.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (g *Gorm) IncrementCouponUsage(ctx context.Context, couponID uint) (bool, error) {
	res := g.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND (total_usage_limit IS NULL OR current_usage_count < total_usage_limit)", couponID).
		UpdateColumn("current_usage_count", gorm.Expr("current_usage_count + 1"))
	return res.RowsAffected > 0, res.Error
}

func (g *Gorm) DecrementCouponUsage(ctx context.Context, couponID uint) error {
	return g.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("id = ? AND current_usage_count > 0", couponID).
		UpdateColumn("current_usage_count", gorm.Expr("current_usage_count - 1")).Error
}

func (g *Gorm) UserCouponUses(ctx context.Context, userID string, couponID uint) (int, error) {
	var usage models.UserCouponUsage
	err := g.db.WithContext(ctx).Where("user_id = ? AND coupon_id = ?", userID, couponID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return usage.UsageCount, nil
}

// IncrementUserCouponUses upserts the (user, coupon) usage row. The row
// may not exist yet, so this locks instead of a bare conditional UPDATE;
// the enclosing transaction serializes racing commits on the pair.
func (g *Gorm) IncrementUserCouponUses(ctx context.Context, userID string, couponID uint, limit *int) (bool, error) {
	var usage models.UserCouponUsage
	err := g.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if limit != nil && *limit < 1 {
			return false, nil
		}
		usage = models.UserCouponUsage{
			UserID:     userID,
			CouponID:   couponID,
			UsageCount: 1,
			LastUsedAt: time.Now(),
		}
		if err := g.db.WithContext(ctx).Create(&usage).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if limit != nil && usage.UsageCount >= *limit {
		return false, nil
	}
	err = g.db.WithContext(ctx).Model(&models.UserCouponUsage{}).
		Where("id = ?", usage.ID).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + 1"),
			"last_used_at": time.Now(),
		}).Error
	return err == nil, err
}

func (g *Gorm) DecrementUserCouponUses(ctx context.Context, userID string, couponID uint) error {
	return g.db.WithContext(ctx).Model(&models.UserCouponUsage{}).
		Where("user_id = ? AND coupon_id = ? AND usage_count > 0", userID, couponID).
		UpdateColumn("usage_count", gorm.Expr("usage_count - 1")).Error
}

// ---- Order store ----

func (g *Gorm) CreateOrder(ctx context.Context, order *models.Order) error {
	return g.db.WithContext(ctx).Create(order).Error
}

func (g *Gorm) CreatePaymentTransaction(ctx context.Context, txn *models.PaymentTransaction) error {
	return g.db.WithContext(ctx).Create(txn).Error
}

func (g *Gorm) OrderForSettlement(ctx context.Context, orderID uint, userID string) (*models.Order, error) {
	var order models.Order
	err := g.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, settlement.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := g.db.WithContext(ctx).Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (g *Gorm) SaveSettlement(ctx context.Context, order *models.Order, externalRef string) error {
	err := g.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
		}).Error
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"status": order.PaymentStatus}
	if externalRef != "" {
		updates["external_ref"] = externalRef
	}
	return g.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("order_id = ?", order.ID).
		Updates(updates).Error
}

func (g *Gorm) OrderByID(ctx context.Context, orderID uint, userID string) (*models.Order, error) {
	var order models.Order
	err := g.db.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, settlement.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (g *Gorm) OrdersByUser(ctx context.Context, userID string, status models.OrderStatus) ([]models.Order, error) {
	q := g.db.WithContext(ctx).Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
