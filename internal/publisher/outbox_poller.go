// Package publisher relays outbox events written alongside orders to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/rohitsengarppv-gif/multimallpro/internal/repository"
	"github.com/rohitsengarppv-gif/multimallpro/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultBatch = 100
	defaultTick  = time.Second
)

// MessageWriter is the part of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

// OutboxPoller publishes unprocessed events in creation order. An event is
// marked processed only after Kafka acknowledged it, so delivery is at least
// once.
type OutboxPoller struct {
	repo    repository.OutboxRepository
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     *zap.Logger
	tick    time.Duration
	batch   int64
	timeout time.Duration
}

func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, log *zap.Logger) *OutboxPoller {
	return &OutboxPoller{
		repo:    repo,
		writer:  writer,
		breaker: circuitbreaker.New(circuitbreaker.DefaultSettings("kafka-outbox"), log),
		log:     log.Named("outbox"),
		tick:    defaultTick,
		batch:   defaultBatch,
		timeout: 5 * time.Second,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	p.log.Info("outbox poller started", zap.Duration("tick", p.tick))
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			p.log.Info("outbox poller stopped")
			return
		}
	}
}

// processUnpublishedEvents returns the number of events published.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	if p.breaker.State() == gobreaker.StateOpen {
		return 0
	}

	events, err := p.repo.GetUnprocessedEvents(ctx, p.batch)
	if err != nil {
		p.log.Error("failed to fetch outbox events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			// later events of the same order must not overtake this one
			p.log.Warn("failed to publish outbox event",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.EventType),
				zap.Error(err))
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error("failed to mark outbox event as processed",
				zap.String("event_id", event.ID), zap.Error(err))
			return published
		}
		published++
	}

	if published > 0 {
		p.log.Debug("outbox events published", zap.Int("count", published))
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
		Time: event.CreatedAt,
	}

	return circuitbreaker.Execute(p.breaker, func() error {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.writer.WriteMessages(ctx, msg)
	})
}
