package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the session-scoped shopping cart. It lives server-side,
// keyed by the anonymous session identifier, and expires after a
// sliding window of inactivity.
type Cart struct {
	// ID identifies this cart instance, not the session: a fresh one
	// is minted every time a new cart is started, so keys derived from
	// it (checkout idempotency) die with the cart instead of living as
	// long as the 30-day session cookie. This is what allows a shopper
	// to place multiple orders in the same session.
	ID        uuid.UUID
	SessionID string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// CartItem is one line of a cart. Unit price is snapshotted when the
// item is added; ReservedUntil bounds the inventory reservation held
// for the line.
type CartItem struct {
	SKUID          uuid.UUID
	ProductName    string
	SKUCode        string
	Quantity       int64
	UnitPriceCents int64
	ReservedUntil  time.Time
	AddedAt        time.Time
}

func (i *CartItem) LineTotalCents() int64 {
	return i.UnitPriceCents * i.Quantity
}

func (i *CartItem) ReservationExpired(now time.Time) bool {
	return now.After(i.ReservedUntil)
}

func (c *Cart) SubtotalCents() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].LineTotalCents()
	}
	return total
}

func (c *Cart) TotalItems() int64 {
	var count int64
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// FindItem returns the line for a SKU, or nil.
func (c *Cart) FindItem(skuID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].SKUID == skuID {
			return &c.Items[i]
		}
	}
	return nil
}

// RemoveItem drops the line for a SKU, preserving order of the rest.
func (c *Cart) RemoveItem(skuID uuid.UUID) bool {
	for i := range c.Items {
		if c.Items[i].SKUID == skuID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}
