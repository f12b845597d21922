package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiams/NomaCardHouse/internal/order"
)

type mockStore struct {
	mu        sync.Mutex
	events    []*order.OutboxEvent
	processed []int64
	fetchErr  error
	markErr   error
}

func (m *mockStore) GetUnprocessedEvents(_ context.Context, limit int) ([]*order.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func (m *mockStore) MarkEventAsProcessed(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.processed = append(m.processed, id)
	return nil
}

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func TestPublishPending(t *testing.T) {
	store := &mockStore{events: []*order.OutboxEvent{
		{ID: 1, AggregateID: "order-a", EventType: order.EventOrderCreated, Payload: []byte(`{"order_number":"NCH-20260310-00001"}`)},
		{ID: 2, AggregateID: "order-b", EventType: order.EventOrderConfirmed, Payload: []byte(`{"order_number":"NCH-20260310-00002"}`)},
	}}
	writer := &mockWriter{}
	p := NewPoller(store, writer, zerolog.Nop())

	p.publishPending(context.Background())

	require.Len(t, writer.messages, 2)
	assert.Equal(t, []byte("order-a"), writer.messages[0].Key)
	assert.Equal(t, "event_type", writer.messages[0].Headers[0].Key)
	assert.Equal(t, []byte(order.EventOrderCreated), writer.messages[0].Headers[0].Value)
	assert.Equal(t, []int64{1, 2}, store.processed)
}

func TestPublishPendingSkipsOnWriteFailure(t *testing.T) {
	store := &mockStore{events: []*order.OutboxEvent{
		{ID: 7, AggregateID: "order-c", EventType: order.EventOrderCreated, Payload: []byte(`{}`)},
	}}
	writer := &mockWriter{err: errors.New("broker down")}
	p := NewPoller(store, writer, zerolog.Nop())

	p.publishPending(context.Background())

	// Not marked processed, so the next tick retries.
	assert.Empty(t, store.processed)
}

func TestPublishPendingKeepsEventOnMarkFailure(t *testing.T) {
	store := &mockStore{
		events:  []*order.OutboxEvent{{ID: 9, AggregateID: "order-d", EventType: order.EventOrderCreated, Payload: []byte(`{}`)}},
		markErr: errors.New("db down"),
	}
	writer := &mockWriter{}
	p := NewPoller(store, writer, zerolog.Nop())

	p.publishPending(context.Background())

	// Published, but still pending; the duplicate on the next tick is
	// the consumer's problem.
	assert.Len(t, writer.messages, 1)
	assert.Empty(t, store.processed)
}
