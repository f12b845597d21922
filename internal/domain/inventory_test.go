package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_ReserveAndAvailable(t *testing.T) {
	inv := &Inventory{OnHand: 10}

	require.NoError(t, inv.Reserve(4))
	assert.Equal(t, int64(6), inv.Available())
	assert.Equal(t, int64(4), inv.Reserved)
	assert.Equal(t, int64(10), inv.OnHand)
}

func TestInventory_Reserve_Insufficient(t *testing.T) {
	inv := &Inventory{OnHand: 3}

	require.NoError(t, inv.Reserve(3))
	err := inv.Reserve(1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(3), inv.Reserved, "failed reserve must not change state")
}

func TestInventory_RejectsNonPositiveQuantities(t *testing.T) {
	inv := &Inventory{OnHand: 10, Reserved: 5}

	// A negative reserve would silently free stock, and a negative
	// release would silently reserve it; both must be rejected.
	assert.ErrorIs(t, inv.Reserve(-3), ErrNonPositiveQuantity)
	assert.ErrorIs(t, inv.Reserve(0), ErrNonPositiveQuantity)
	assert.ErrorIs(t, inv.Release(-3), ErrNonPositiveQuantity)
	assert.ErrorIs(t, inv.Release(0), ErrNonPositiveQuantity)
	assert.ErrorIs(t, inv.Consume(-1), ErrNonPositiveQuantity)

	assert.Equal(t, int64(10), inv.OnHand)
	assert.Equal(t, int64(5), inv.Reserved)
}

func TestInventory_Release(t *testing.T) {
	inv := &Inventory{OnHand: 10, Reserved: 5}

	require.NoError(t, inv.Release(3))
	assert.Equal(t, int64(2), inv.Reserved)

	err := inv.Release(3)
	assert.ErrorIs(t, err, ErrOverRelease, "double release must be detected")
	assert.Equal(t, int64(2), inv.Reserved)
}

func TestInventory_Consume(t *testing.T) {
	inv := &Inventory{OnHand: 10, Reserved: 4}

	require.NoError(t, inv.Consume(4))
	assert.Equal(t, int64(6), inv.OnHand)
	assert.Equal(t, int64(0), inv.Reserved)

	err := inv.Consume(1)
	assert.ErrorIs(t, err, ErrOverConsume, "only reserved stock can be consumed")
}

func TestInventory_Restock(t *testing.T) {
	inv := &Inventory{OnHand: 1}
	now := time.Now()

	inv.Restock(9, now)
	assert.Equal(t, int64(10), inv.OnHand)
	require.NotNil(t, inv.LastRestockAt)
	assert.Equal(t, now, *inv.LastRestockAt)
}

func TestInventory_LowStock(t *testing.T) {
	inv := &Inventory{OnHand: 6, Reserved: 2, LowStockThreshold: 5}
	assert.True(t, inv.LowStock())
	assert.True(t, inv.InStock())

	inv.Reserved = 0
	assert.False(t, inv.LowStock())
}
