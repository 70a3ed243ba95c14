package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/settlement"
)

func TestMemory_InTxRollsBackOnError(t *testing.T) {
	m := NewMemory()
	m.PutProduct(models.Product{ID: 1, Stock: 5, IsActive: true})
	m.SetWallet("u1", decimal.NewFromInt(100))

	boom := errors.New("boom")
	err := m.InTx(context.Background(), func(s settlement.Store) error {
		ok, err := s.DecrementStock(context.Background(), 1, 3)
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.DebitWallet(context.Background(), "u1", decimal.NewFromInt(40))
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 5, m.Product(1).Stock)
	assert.True(t, m.Wallet("u1").Equal(decimal.NewFromInt(100)))
}

func TestMemory_InTxCommitsOnSuccess(t *testing.T) {
	m := NewMemory()
	m.PutProduct(models.Product{ID: 1, Stock: 5, IsActive: true})

	err := m.InTx(context.Background(), func(s settlement.Store) error {
		ok, err := s.DecrementStock(context.Background(), 1, 2)
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, m.Product(1).Stock)
}

func TestMemory_ConditionalUpdatesRefuseWithoutError(t *testing.T) {
	m := NewMemory()
	m.PutProduct(models.Product{ID: 1, Stock: 1, IsActive: true})
	m.SetWallet("u1", decimal.NewFromInt(10))
	limit := 1
	m.PutCoupon(models.Coupon{ID: 9, Code: "ONE", TotalUsageLimit: &limit, CurrentUsageCount: 1})

	ok, err := m.DecrementStock(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.DebitWallet(context.Background(), "u1", decimal.NewFromInt(11))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.IncrementCouponUsage(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_UserCouponUsesUpsert(t *testing.T) {
	m := NewMemory()
	limit := 2

	ok, err := m.IncrementUserCouponUses(context.Background(), "u1", 5, &limit)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.IncrementUserCouponUses(context.Background(), "u1", 5, &limit)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.IncrementUserCouponUses(context.Background(), "u1", 5, &limit)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, m.UserUsage("u1", 5))

	require.NoError(t, m.DecrementUserCouponUses(context.Background(), "u1", 5))
	assert.Equal(t, 1, m.UserUsage("u1", 5))
}
