package alerts

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/pdv-backend/pkg/outbox"
	"github.com/angelmondragon/pdv-backend/pkg/redis"
)

// Sink delivers enriched events to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OutboxSink writes events to the outbox for the durable publisher.
type OutboxSink struct {
	tx      txRunner
	emitter outboxEmitter
}

func NewOutboxSink(tx txRunner, emitter outboxEmitter) (*OutboxSink, error) {
	if tx == nil {
		return nil, errors.New("tx runner required")
	}
	if emitter == nil {
		return nil, errors.New("outbox emitter required")
	}
	return &OutboxSink{tx: tx, emitter: emitter}, nil
}

func (s *OutboxSink) Name() string { return "outbox" }

func (s *OutboxSink) Deliver(ctx context.Context, event Event) error {
	storeID := event.StoreID
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     event.Type,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Actor:         &outbox.ActorRef{UserID: event.ActorID, StoreID: &storeID},
			Data:          event.Data,
			OccurredAt:    event.OccurredAt,
		})
	})
}

// RealtimeMessage is published to the store's alert channel.
type RealtimeMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// RedisSink publishes events to terminals subscribed to the store channel.
type RedisSink struct {
	publisher redis.Publisher
}

func NewRedisSink(publisher redis.Publisher) (*RedisSink, error) {
	if publisher == nil {
		return nil, errors.New("redis publisher required")
	}
	return &RedisSink{publisher: publisher}, nil
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Deliver(ctx context.Context, event Event) error {
	payload, err := json.Marshal(RealtimeMessage{Type: string(event.Type), Data: event.Data})
	if err != nil {
		return err
	}
	_, err = s.publisher.Publish(ctx, s.publisher.AlertChannel(event.StoreID.String()), payload)
	return err
}
