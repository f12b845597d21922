// Package cart implements the session-scoped shopping cart: MongoDB
// persistence, a Redis read cache, and inventory reservations held
// for every line item.
package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/maiams/NomaCardHouse/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrCartExpired     = errors.New("cart has expired")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrSKUNotFound     = errors.New("sku not found")
	ErrCacheMiss       = errors.New("cache miss")
)

// Repository is the cart storage contract, defined here on the
// consumer side.
type Repository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
	// FindExpiredReservations returns carts holding at least one line
	// whose reservation window has closed.
	FindExpiredReservations(ctx context.Context, limit int) ([]*domain.Cart, error)
}

type Cache interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// StockKeeper reserves and releases inventory on behalf of cart lines.
type StockKeeper interface {
	Reserve(ctx context.Context, skuID uuid.UUID, quantity int64) error
	Release(ctx context.Context, skuID uuid.UUID, quantity int64) error
}

// SKUDetail is what the cart needs to snapshot a line item.
type SKUDetail struct {
	SKU     domain.SKU
	Product domain.Product
}

type CatalogReader interface {
	GetSKUDetail(ctx context.Context, skuID uuid.UUID) (*SKUDetail, error)
}
