package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/order"
	"github.com/maiams/NomaCardHouse/internal/payment"
)

const maxWebhookBody = 1 << 20 // 1MB

type EventHandler interface {
	HandleEvent(ctx context.Context, ev *payment.Event) error
}

// WebhookHandler receives payment provider callbacks. The HMAC
// signature over the raw body is checked before anything is parsed;
// unsigned or tampered payloads never reach the updater.
type WebhookHandler struct {
	updater EventHandler
	secret  string
	log     zerolog.Logger
}

func NewWebhookHandler(updater EventHandler, secret string, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{updater: updater, secret: secret, log: log}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}

	signature := r.Header.Get(payment.SignatureHeader)
	if !payment.VerifySignature([]byte(h.secret), body, signature) {
		h.log.Warn().Str("remote_addr", r.RemoteAddr).Msg("webhook signature mismatch")
		respondError(w, http.StatusUnauthorized, "invalid_signature", "signature verification failed")
		return
	}

	ev, err := payment.ParseEvent(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_event", "malformed webhook event")
		return
	}

	err = h.updater.HandleEvent(r.Context(), ev)
	switch {
	case err == nil:
		respondMessage(w, http.StatusOK, "event processed")
	case errors.Is(err, order.ErrUnknownEventType):
		respondError(w, http.StatusBadRequest, "unknown_event_type", "unsupported event type")
	case errors.Is(err, order.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, "payment_not_found", "no payment for transaction id")
	default:
		h.log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to process webhook event")
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to process event")
	}
}
