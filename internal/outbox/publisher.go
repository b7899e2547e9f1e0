package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/campusdesk/officehours/libs/kafkax"
	otelx "github.com/campusdesk/officehours/libs/otel"
)

const (
	pollInterval = 2 * time.Second
	batchSize    = 50
)

// Publisher drains the outbox into Kafka. At-least-once: if the write to
// Kafka succeeds but marking fails, the event is resent and consumers dedupe
// on event_id.
type Publisher struct {
	repo   *Repository
	writer *kafka.Writer
	logger *slog.Logger
}

func NewPublisher(repo *Repository, brokers string, logger *slog.Logger) *Publisher {
	return &Publisher{
		repo: repo,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(kafkax.SplitBrokers(brokers)...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		logger: logger,
	}
}

// Run polls until ctx is cancelled. Errors are logged and retried on the next
// tick; the publisher never crashes the process.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	defer p.writer.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.drainOnce(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

func (p *Publisher) drainOnce(ctx context.Context) error {
	tx, events, err := p.repo.FetchUnpublished(ctx, batchSize)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(events) == 0 {
		return tx.Commit(ctx)
	}

	published := make([]int64, 0, len(events))
	var msgs []kafka.Message
	for _, e := range events {
		topic := TopicFor(e.EventType)
		if topic == "" {
			p.logger.Warn("outbox event with unknown type, skipping", "event_type", e.EventType, "event_id", e.EventID)
			published = append(published, e.ID)
			continue
		}
		msgCtx := otelx.ContextWithTraceContext(ctx, e.Traceparent, e.Tracestate)
		headers := []kafka.Header{
			{Key: "event_id", Value: []byte(e.EventID)},
			{Key: "event_type", Value: []byte(e.EventType)},
		}
		headers = kafkax.InjectTraceHeaders(msgCtx, headers)
		msgs = append(msgs, kafka.Message{
			Topic:   topic,
			Key:     []byte(e.AggregateID),
			Value:   e.Payload,
			Headers: headers,
		})
		published = append(published, e.ID)
	}

	if len(msgs) > 0 {
		if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
	}
	if err := p.repo.MarkPublished(ctx, tx, published, time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	p.logger.Info("outbox batch published", "count", len(msgs))
	return nil
}
