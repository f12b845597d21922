package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiams/NomaCardHouse/internal/domain"
	"github.com/maiams/NomaCardHouse/internal/payment"
)

type mockStatusStore struct {
	mu   sync.Mutex
	seen map[string]bool

	paidTxns   []string
	failedTxns []string
	lastStatus domain.PaymentStatus
	lastPaidAt time.Time

	err error
}

func newMockStatusStore() *mockStatusStore {
	return &mockStatusStore{seen: make(map[string]bool)}
}

func (m *mockStatusStore) MarkPaid(_ context.Context, eventID, _, providerTxnID string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.seen[eventID] {
		return ErrEventAlreadyProcessed
	}
	m.seen[eventID] = true
	m.paidTxns = append(m.paidTxns, providerTxnID)
	m.lastPaidAt = paidAt
	return nil
}

func (m *mockStatusStore) MarkPaymentFailed(_ context.Context, eventID, _, providerTxnID string, status domain.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.seen[eventID] {
		return ErrEventAlreadyProcessed
	}
	m.seen[eventID] = true
	m.failedTxns = append(m.failedTxns, providerTxnID)
	m.lastStatus = status
	return nil
}

func TestHandleEventCompleted(t *testing.T) {
	store := newMockStatusStore()
	u := NewStatusUpdater(store, zerolog.Nop())

	occurred := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	err := u.HandleEvent(context.Background(), &payment.Event{
		ID:                    "evt-1",
		Type:                  payment.EventPaymentCompleted,
		ProviderTransactionID: "STUB-ABC",
		OccurredAt:            occurred,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"STUB-ABC"}, store.paidTxns)
	assert.Equal(t, occurred, store.lastPaidAt)
}

func TestHandleEventFailedCancelsPayment(t *testing.T) {
	store := newMockStatusStore()
	u := NewStatusUpdater(store, zerolog.Nop())

	err := u.HandleEvent(context.Background(), &payment.Event{
		ID:                    "evt-2",
		Type:                  payment.EventPaymentFailed,
		ProviderTransactionID: "STUB-DEF",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"STUB-DEF"}, store.failedTxns)
	assert.Equal(t, domain.PaymentStatusFailed, store.lastStatus)
}

func TestHandleEventExpiredCancels(t *testing.T) {
	store := newMockStatusStore()
	u := NewStatusUpdater(store, zerolog.Nop())

	err := u.HandleEvent(context.Background(), &payment.Event{
		ID:                    "evt-3",
		Type:                  payment.EventPaymentExpired,
		ProviderTransactionID: "STUB-GHI",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, store.lastStatus)
}

func TestHandleEventRedeliveryIsNoOp(t *testing.T) {
	store := newMockStatusStore()
	u := NewStatusUpdater(store, zerolog.Nop())

	ev := &payment.Event{
		ID:                    "evt-4",
		Type:                  payment.EventPaymentCompleted,
		ProviderTransactionID: "STUB-JKL",
	}
	require.NoError(t, u.HandleEvent(context.Background(), ev))
	require.NoError(t, u.HandleEvent(context.Background(), ev))

	// The payment moved exactly once.
	assert.Equal(t, []string{"STUB-JKL"}, store.paidTxns)
}

func TestHandleEventUnknownType(t *testing.T) {
	u := NewStatusUpdater(newMockStatusStore(), zerolog.Nop())

	err := u.HandleEvent(context.Background(), &payment.Event{
		ID:                    "evt-5",
		Type:                  "payment.telepathy",
		ProviderTransactionID: "STUB-MNO",
	})
	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestHandleEventDefaultsPaidAt(t *testing.T) {
	store := newMockStatusStore()
	u := NewStatusUpdater(store, zerolog.Nop())

	err := u.HandleEvent(context.Background(), &payment.Event{
		ID:                    "evt-6",
		Type:                  payment.EventPaymentCompleted,
		ProviderTransactionID: "STUB-PQR",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), store.lastPaidAt, time.Minute)
}
