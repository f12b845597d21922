package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/order"
)

// OrderReader serves the shopper-facing confirmation page.
type OrderReader interface {
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetPaymentByOrderNumber(ctx context.Context, number string) (*domain.PaymentTransaction, error)
}

type OrderHandler struct {
	orders OrderReader
	log    zerolog.Logger
}

func NewOrderHandler(orders OrderReader, log zerolog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

type orderLookupView struct {
	Order   orderView    `json:"order"`
	Payment *paymentView `json:"payment,omitempty"`
}

// Get returns an order by its number, with payment instructions when
// a payment attempt exists.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.orders.GetOrderByNumber(r.Context(), number)
	if errors.Is(err, order.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("number", number).Msg("failed to get order")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get order")
		return
	}

	view := orderLookupView{Order: toOrderView(o)}
	txn, err := h.orders.GetPaymentByOrderNumber(r.Context(), number)
	if err == nil {
		pv := toPaymentView(txn)
		view.Payment = &pv
	} else if !errors.Is(err, order.ErrPaymentNotFound) {
		h.log.Error().Err(err).Str("number", number).Msg("failed to get payment for order")
	}

	respondJSON(w, http.StatusOK, view)
}
