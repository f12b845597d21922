// Package order persists orders, payment transactions and the outbox,
// and applies provider webhook events to them.
package order

import (
	"errors"
	"time"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotFound       = errors.New("payment transaction not found")
	ErrDuplicateOrderNumber  = errors.New("order number already exists")
	ErrInvalidTransition     = errors.New("illegal order status transition")
	ErrEventAlreadyProcessed = errors.New("webhook event already processed")
)

// Events written to the outbox and published to the order-events
// topic.
const (
	EventOrderCreated   = "order.created"
	EventOrderConfirmed = "order.confirmed"
	EventOrderCancelled = "order.cancelled"
)

// OutboxEvent is a pending message in the transactional outbox. Rows
// are written in the same transaction as the state change they
// announce and published by the poller.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
