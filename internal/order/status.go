package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/payment"
)

var ErrUnknownEventType = errors.New("unknown webhook event type")

// StatusStore is the slice of the repository the updater drives.
type StatusStore interface {
	MarkPaid(ctx context.Context, eventID, eventType, providerTxnID string, paidAt time.Time) error
	MarkPaymentFailed(ctx context.Context, eventID, eventType, providerTxnID string, status domain.PaymentStatus) error
}

// StatusUpdater applies provider webhook events to payments and
// orders. Signature verification happens at the HTTP layer; by the
// time an event reaches HandleEvent it is authentic.
type StatusUpdater struct {
	store StatusStore
	log   zerolog.Logger
}

func NewStatusUpdater(store StatusStore, log zerolog.Logger) *StatusUpdater {
	return &StatusUpdater{store: store, log: log}
}

// HandleEvent is idempotent: a redelivered event id is acknowledged
// without moving any state.
func (u *StatusUpdater) HandleEvent(ctx context.Context, ev *payment.Event) error {
	var err error
	switch ev.Type {
	case payment.EventPaymentCompleted:
		paidAt := ev.OccurredAt
		if paidAt.IsZero() {
			paidAt = time.Now()
		}
		err = u.store.MarkPaid(ctx, ev.ID, ev.Type, ev.ProviderTransactionID, paidAt)
	case payment.EventPaymentFailed:
		err = u.store.MarkPaymentFailed(ctx, ev.ID, ev.Type, ev.ProviderTransactionID, domain.PaymentStatusFailed)
	case payment.EventPaymentExpired:
		err = u.store.MarkPaymentFailed(ctx, ev.ID, ev.Type, ev.ProviderTransactionID, domain.PaymentStatusCancelled)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventType, ev.Type)
	}

	if errors.Is(err, ErrEventAlreadyProcessed) {
		u.log.Info().
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Msg("webhook event redelivered, ignoring")
		return nil
	}
	if err != nil {
		return err
	}

	u.log.Info().
		Str("event_id", ev.ID).
		Str("event_type", ev.Type).
		Str("provider_transaction_id", ev.ProviderTransactionID).
		Msg("webhook event applied")
	return nil
}
