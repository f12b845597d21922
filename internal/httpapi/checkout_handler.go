package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/checkout"
	"github.com/maiams/NomaCardHouse/internal/payment"
)

type CheckoutService interface {
	Submit(ctx context.Context, sessionID string, form *checkout.Form) (*checkout.Result, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	log      zerolog.Logger
}

func NewCheckoutHandler(c CheckoutService, log zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: c, log: log}
}

type checkoutResultView struct {
	Order   orderView   `json:"order"`
	Payment paymentView `json:"payment"`
}

func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	res, err := h.checkout.Submit(r.Context(), SessionID(r.Context()), &form)
	if err != nil {
		var fieldErrs checkout.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			respondFieldErrors(w, fieldErrs)
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusConflict, "empty_cart", "cart is empty")
		case errors.Is(err, checkout.ErrReservationsExpired):
			respondError(w, http.StatusConflict, "reservations_expired", "some reservations expired, review your cart")
		case errors.Is(err, payment.ErrProviderUnavailable):
			respondError(w, http.StatusBadGateway, "payment_unavailable", "payment provider unavailable, try again")
		default:
			h.log.Error().Err(err).Msg("checkout failed")
			respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, checkoutResultView{
		Order:   toOrderView(res.Order),
		Payment: toPaymentView(res.Payment),
	})
}
