// Package outbox publishes pending order events to Kafka.
package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/maiams/NomaCardHouse/internal/order"
)

const (
	Topic     = "order-events"
	pollTick  = time.Second
	batchSize = 100
)

// Store is the outbox slice of the order repository.
type Store interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*order.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// Writer is satisfied by *kafka.Writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Poller struct {
	store  Store
	writer Writer
	log    zerolog.Logger
	tick   time.Duration
}

func NewPoller(store Store, writer Writer, log zerolog.Logger) *Poller {
	return &Poller{store: store, writer: writer, log: log, tick: pollTick}
}

// NewWriter builds the Kafka writer for the order-events topic.
// Messages are keyed by order id so each order's events stay ordered
// within a partition.
func NewWriter(brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.publishPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) publishPending(ctx context.Context) {
	events, err := p.store.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.AggregateID),
			Value: event.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
			},
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to publish outbox event")
			continue
		}

		if err := p.store.MarkEventAsProcessed(ctx, event.ID); err != nil {
			// Next tick republishes; consumers must tolerate
			// duplicates.
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark outbox event processed")
		}
	}
}
