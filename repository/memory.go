package repository

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/settlement"
)

// Memory is an in-memory settlement.Store. InTx takes the store lock for
// the whole unit of work and mutates a cloned state that is only swapped
// in on success, giving the same all-or-nothing, serialized semantics the
// database transaction provides.
type Memory struct {
	mu   sync.Mutex
	data *memData
	tx   bool
}

type memData struct {
	products  map[uint]models.Product
	carts     map[string][]models.CartItem
	wallets   map[string]decimal.Decimal
	coupons   map[uint]models.Coupon
	codes     map[string]uint
	userUsage map[userCouponKey]models.UserCouponUsage
	orders    map[uint]models.Order
	txns      map[uint]models.PaymentTransaction // keyed by order ID

	nextOrderID     uint
	nextOrderItemID uint
	nextTxnID       uint
}

type userCouponKey struct {
	userID   string
	couponID uint
}

func NewMemory() *Memory {
	return &Memory{data: newMemData()}
}

func newMemData() *memData {
	return &memData{
		products:  make(map[uint]models.Product),
		carts:     make(map[string][]models.CartItem),
		wallets:   make(map[string]decimal.Decimal),
		coupons:   make(map[uint]models.Coupon),
		codes:     make(map[string]uint),
		userUsage: make(map[userCouponKey]models.UserCouponUsage),
		orders:    make(map[uint]models.Order),
		txns:      make(map[uint]models.PaymentTransaction),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.carts {
		items := make([]models.CartItem, len(v))
		copy(items, v)
		c.carts[k] = items
	}
	for k, v := range d.wallets {
		c.wallets[k] = v
	}
	for k, v := range d.coupons {
		c.coupons[k] = v
	}
	for k, v := range d.codes {
		c.codes[k] = v
	}
	for k, v := range d.userUsage {
		c.userUsage[k] = v
	}
	for k, v := range d.orders {
		o := v
		o.Items = make([]models.OrderItem, len(v.Items))
		copy(o.Items, v.Items)
		c.orders[k] = o
	}
	for k, v := range d.txns {
		c.txns[k] = v
	}
	c.nextOrderID = d.nextOrderID
	c.nextOrderItemID = d.nextOrderItemID
	c.nextTxnID = d.nextTxnID
	return c
}

func (m *Memory) InTx(ctx context.Context, fn func(settlement.Store) error) error {
	if m.tx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.data.clone()
	if err := fn(&Memory{data: work, tx: true}); err != nil {
		return err
	}
	m.data = work
	return nil
}

// access serializes non-transactional reads; inside InTx the outer lock
// is already held.
func (m *Memory) access(fn func(d *memData) error) error {
	if !m.tx {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	return fn(m.data)
}

// ---- Cart provider ----

func (m *Memory) CartLines(_ context.Context, userID string) ([]models.CartItem, error) {
	var out []models.CartItem
	err := m.access(func(d *memData) error {
		out = append(out, d.carts[userID]...)
		return nil
	})
	return out, err
}

func (m *Memory) ClearCart(_ context.Context, userID string) error {
	return m.access(func(d *memData) error {
		delete(d.carts, userID)
		return nil
	})
}

// ---- Product catalog ----

func (m *Memory) ProductForPricing(_ context.Context, productID uint) (*models.Product, error) {
	var out models.Product
	err := m.access(func(d *memData) error {
		p, ok := d.products[productID]
		if !ok {
			return settlement.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *Memory) DecrementStock(_ context.Context, productID uint, qty int) (bool, error) {
	ok := false
	err := m.access(func(d *memData) error {
		p, found := d.products[productID]
		if !found || p.Stock < qty {
			return nil
		}
		p.Stock -= qty
		d.products[productID] = p
		ok = true
		return nil
	})
	return ok, err
}

func (m *Memory) IncrementStock(_ context.Context, productID uint, qty int) error {
	return m.access(func(d *memData) error {
		p, found := d.products[productID]
		if !found {
			return settlement.ErrNotFound
		}
		p.Stock += qty
		d.products[productID] = p
		return nil
	})
}

// ---- Wallet store ----

func (m *Memory) WalletBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	out := decimal.Zero
	err := m.access(func(d *memData) error {
		if b, ok := d.wallets[userID]; ok {
			out = b
		}
		return nil
	})
	return out, err
}

func (m *Memory) DebitWallet(_ context.Context, userID string, amount decimal.Decimal) (bool, error) {
	ok := false
	err := m.access(func(d *memData) error {
		b, found := d.wallets[userID]
		if !found || b.LessThan(amount) {
			return nil
		}
		d.wallets[userID] = b.Sub(amount)
		ok = true
		return nil
	})
	return ok, err
}

func (m *Memory) CreditWallet(_ context.Context, userID string, amount decimal.Decimal) error {
	return m.access(func(d *memData) error {
		d.wallets[userID] = d.wallets[userID].Add(amount)
		return nil
	})
}

// ---- Coupon store ----

func (m *Memory) CouponByCode(_ context.Context, code string) (*models.Coupon, error) {
	var out models.Coupon
	err := m.access(func(d *memData) error {
		id, ok := d.codes[code]
		if !ok {
			return settlement.ErrNotFound
		}
		out = d.coupons[id]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *Memory) IncrementCouponUsage(_ context.Context, couponID uint) (bool, error) {
	ok := false
	err := m.access(func(d *memData) error {
		c, found := d.coupons[couponID]
		if !found {
			return settlement.ErrNotFound
		}
		if c.TotalUsageLimit != nil && c.CurrentUsageCount >= *c.TotalUsageLimit {
			return nil
		}
		c.CurrentUsageCount++
		d.coupons[couponID] = c
		ok = true
		return nil
	})
	return ok, err
}

func (m *Memory) DecrementCouponUsage(_ context.Context, couponID uint) error {
	return m.access(func(d *memData) error {
		c, found := d.coupons[couponID]
		if !found {
			return settlement.ErrNotFound
		}
		if c.CurrentUsageCount > 0 {
			c.CurrentUsageCount--
			d.coupons[couponID] = c
		}
		return nil
	})
}

func (m *Memory) UserCouponUses(_ context.Context, userID string, couponID uint) (int, error) {
	out := 0
	err := m.access(func(d *memData) error {
		out = d.userUsage[userCouponKey{userID, couponID}].UsageCount
		return nil
	})
	return out, err
}

func (m *Memory) IncrementUserCouponUses(_ context.Context, userID string, couponID uint, limit *int) (bool, error) {
	ok := false
	err := m.access(func(d *memData) error {
		key := userCouponKey{userID, couponID}
		u := d.userUsage[key]
		if limit != nil && u.UsageCount >= *limit {
			return nil
		}
		u.UserID = userID
		u.CouponID = couponID
		u.UsageCount++
		u.LastUsedAt = time.Now()
		d.userUsage[key] = u
		ok = true
		return nil
	})
	return ok, err
}

func (m *Memory) DecrementUserCouponUses(_ context.Context, userID string, couponID uint) error {
	return m.access(func(d *memData) error {
		key := userCouponKey{userID, couponID}
		u, found := d.userUsage[key]
		if found && u.UsageCount > 0 {
			u.UsageCount--
			d.userUsage[key] = u
		}
		return nil
	})
}

// ---- Order store ----

func (m *Memory) CreateOrder(_ context.Context, order *models.Order) error {
	return m.access(func(d *memData) error {
		d.nextOrderID++
		order.ID = d.nextOrderID
		order.CreatedAt = time.Now()
		order.UpdatedAt = order.CreatedAt
		for i := range order.Items {
			d.nextOrderItemID++
			order.Items[i].ID = d.nextOrderItemID
			order.Items[i].OrderID = order.ID
		}
		o := *order
		o.Items = make([]models.OrderItem, len(order.Items))
		copy(o.Items, order.Items)
		d.orders[order.ID] = o
		return nil
	})
}

func (m *Memory) CreatePaymentTransaction(_ context.Context, txn *models.PaymentTransaction) error {
	return m.access(func(d *memData) error {
		d.nextTxnID++
		txn.ID = d.nextTxnID
		txn.CreatedAt = time.Now()
		txn.UpdatedAt = txn.CreatedAt
		d.txns[txn.OrderID] = *txn
		return nil
	})
}

func (m *Memory) OrderForSettlement(_ context.Context, orderID uint, userID string) (*models.Order, error) {
	return m.orderFor(orderID, userID)
}

func (m *Memory) SaveSettlement(_ context.Context, order *models.Order, externalRef string) error {
	return m.access(func(d *memData) error {
		o, found := d.orders[order.ID]
		if !found {
			return settlement.ErrNotFound
		}
		o.Status = order.Status
		o.PaymentStatus = order.PaymentStatus
		o.UpdatedAt = time.Now()
		d.orders[order.ID] = o

		if txn, ok := d.txns[order.ID]; ok {
			txn.Status = order.PaymentStatus
			if externalRef != "" {
				txn.ExternalRef = externalRef
			}
			txn.UpdatedAt = time.Now()
			d.txns[order.ID] = txn
		}
		return nil
	})
}

func (m *Memory) OrderByID(_ context.Context, orderID uint, userID string) (*models.Order, error) {
	return m.orderFor(orderID, userID)
}

func (m *Memory) OrdersByUser(_ context.Context, userID string, status models.OrderStatus) ([]models.Order, error) {
	var out []models.Order
	err := m.access(func(d *memData) error {
		for _, o := range d.orders {
			if o.UserID != userID {
				continue
			}
			if status != "" && o.Status != status {
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

func (m *Memory) orderFor(orderID uint, userID string) (*models.Order, error) {
	var out models.Order
	err := m.access(func(d *memData) error {
		o, found := d.orders[orderID]
		if !found || o.UserID != userID {
			return settlement.ErrNotFound
		}
		out = o
		out.Items = make([]models.OrderItem, len(o.Items))
		copy(out.Items, o.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- Seeding and inspection helpers ----

func (m *Memory) PutProduct(p models.Product) {
	_ = m.access(func(d *memData) error {
		d.products[p.ID] = p
		return nil
	})
}

func (m *Memory) PutCoupon(c models.Coupon) {
	_ = m.access(func(d *memData) error {
		d.coupons[c.ID] = c
		d.codes[c.Code] = c.ID
		return nil
	})
}

func (m *Memory) SetWallet(userID string, balance decimal.Decimal) {
	_ = m.access(func(d *memData) error {
		d.wallets[userID] = balance
		return nil
	})
}

func (m *Memory) AddCartItem(userID string, item models.CartItem) {
	_ = m.access(func(d *memData) error {
		d.carts[userID] = append(d.carts[userID], item)
		return nil
	})
}

func (m *Memory) Product(productID uint) models.Product {
	var out models.Product
	_ = m.access(func(d *memData) error {
		out = d.products[productID]
		return nil
	})
	return out
}

func (m *Memory) Coupon(couponID uint) models.Coupon {
	var out models.Coupon
	_ = m.access(func(d *memData) error {
		out = d.coupons[couponID]
		return nil
	})
	return out
}

func (m *Memory) Wallet(userID string) decimal.Decimal {
	out := decimal.Zero
	_ = m.access(func(d *memData) error {
		if b, ok := d.wallets[userID]; ok {
			out = b
		}
		return nil
	})
	return out
}

func (m *Memory) UserUsage(userID string, couponID uint) int {
	out := 0
	_ = m.access(func(d *memData) error {
		out = d.userUsage[userCouponKey{userID, couponID}].UsageCount
		return nil
	})
	return out
}

func (m *Memory) Transaction(orderID uint) (models.PaymentTransaction, bool) {
	var out models.PaymentTransaction
	found := false
	_ = m.access(func(d *memData) error {
		out, found = d.txns[orderID]
		return nil
	})
	return out, found
}
