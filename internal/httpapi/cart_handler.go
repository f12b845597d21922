package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/cart"
	"github.com/maiams/NomaCardHouse/internal/domain"
)

// CartService is the cart surface the handler drives.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int64) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int64) (*domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, skuID uuid.UUID) (*domain.Cart, error)
	Clear(ctx context.Context, sessionID string, releaseReservations bool) error
}

type CartHandler struct {
	carts CartService
	log   zerolog.Logger
}

func NewCartHandler(carts CartService, log zerolog.Logger) *CartHandler {
	return &CartHandler{carts: carts, log: log}
}

type addItemRequest struct {
	SKUID    string `json:"sku_id"`
	Quantity int64  `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), SessionID(r.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to get cart")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}
	respondJSON(w, http.StatusOK, toCartView(c))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	skuID, err := uuid.Parse(req.SKUID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sku_id", "sku_id must be a UUID")
		return
	}

	c, err := h.carts.AddItem(r.Context(), SessionID(r.Context()), skuID, req.Quantity)
	if err != nil {
		h.cartError(w, err, "failed to add item")
		return
	}
	respondJSON(w, http.StatusCreated, toCartView(c))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	skuID, err := uuid.Parse(chi.URLParam(r, "sku_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sku_id", "sku_id must be a UUID")
		return
	}

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	c, err := h.carts.UpdateQuantity(r.Context(), SessionID(r.Context()), skuID, req.Quantity)
	if err != nil {
		h.cartError(w, err, "failed to update quantity")
		return
	}
	respondJSON(w, http.StatusOK, toCartView(c))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	skuID, err := uuid.Parse(chi.URLParam(r, "sku_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_sku_id", "sku_id must be a UUID")
		return
	}

	c, err := h.carts.RemoveItem(r.Context(), SessionID(r.Context()), skuID)
	if err != nil {
		h.cartError(w, err, "failed to remove item")
		return
	}
	respondJSON(w, http.StatusOK, toCartView(c))
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), SessionID(r.Context()), true); err != nil {
		h.log.Error().Err(err).Msg("failed to clear cart")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}
	respondMessage(w, http.StatusOK, "cart cleared")
}

// cartError maps domain errors to client-facing statuses; anything
// else is a 500.
func (h *CartHandler) cartError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is out of range")
	case errors.Is(err, cart.ErrSKUNotFound):
		respondError(w, http.StatusNotFound, "sku_not_found", "sku not found")
	case errors.Is(err, cart.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "item_not_found", "item not in cart")
	case errors.Is(err, cart.ErrCartExpired):
		respondError(w, http.StatusConflict, "cart_expired", "cart has expired")
	case errors.Is(err, domain.ErrInsufficientStock):
		respondError(w, http.StatusConflict, "insufficient_stock", "not enough stock available")
	default:
		h.log.Error().Err(err).Msg(fallback)
		respondError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
