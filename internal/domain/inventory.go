package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOverRelease         = errors.New("release exceeds reserved quantity")
	ErrOverConsume         = errors.New("consume exceeds reserved quantity")
	ErrNonPositiveQuantity = errors.New("quantity must be positive")
)

// Inventory tracks stock for one SKU. Reserved quantity is held by
// active carts; Available is what new reservations can claim.
type Inventory struct {
	SKUID             uuid.UUID
	OnHand            int64
	Reserved          int64
	LowStockThreshold int64
	LastRestockAt     *time.Time
	UpdatedAt         time.Time
}

func (i *Inventory) Available() int64 {
	available := i.OnHand - i.Reserved
	if available < 0 {
		return 0
	}
	return available
}

func (i *Inventory) InStock() bool {
	return i.Available() > 0
}

func (i *Inventory) LowStock() bool {
	return i.Available() <= i.LowStockThreshold
}

// Reserve holds quantity for a cart line. Quantity must be positive:
// a negative reserve would silently free stock.
func (i *Inventory) Reserve(quantity int64) error {
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	if quantity > i.Available() {
		return ErrInsufficientStock
	}
	i.Reserved += quantity
	return nil
}

// Release returns a reservation to the available pool. Each
// reservation must be released exactly once; releasing more than is
// reserved indicates a double-release upstream.
func (i *Inventory) Release(quantity int64) error {
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	if quantity > i.Reserved {
		return ErrOverRelease
	}
	i.Reserved -= quantity
	return nil
}

// Consume turns a reservation into a sale: both on-hand and reserved
// quantities drop. Only reserved stock can be consumed.
func (i *Inventory) Consume(quantity int64) error {
	if quantity <= 0 {
		return ErrNonPositiveQuantity
	}
	if quantity > i.Reserved || quantity > i.OnHand {
		return ErrOverConsume
	}
	i.OnHand -= quantity
	i.Reserved -= quantity
	return nil
}

func (i *Inventory) Restock(quantity int64, now time.Time) {
	i.OnHand += quantity
	i.LastRestockAt = &now
}
