// Package consumer runs the Kafka read loop for the notifier. One consumer
// per topic, all in the same consumer group, committing offsets only after
// the handler and the inbox record both succeed.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/campusdesk/officehours/internal/inbox"
	"github.com/campusdesk/officehours/libs/kafkax"
)

// Handler processes one decoded event. Returning an error leaves the offset
// uncommitted so the message is redelivered.
type Handler func(ctx context.Context, eventType string, payload []byte) error

type Consumer struct {
	reader  *kafka.Reader
	inbox   *inbox.Repository
	handler Handler
	logger  *slog.Logger
}

func New(brokers, groupID, topic string, ib *inbox.Repository, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        kafkax.SplitBrokers(brokers),
			GroupID:        groupID,
			Topic:          topic,
			MinBytes:       1,
			MaxBytes:       1 << 20,
			CommitInterval: 0,
			MaxWait:        time.Second,
		}),
		inbox:   ib,
		handler: handler,
		logger:  logger,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		msgCtx := kafkax.ExtractTraceContext(ctx, msg)
		meta := kafkax.ExtractEventMeta(msg)

		fresh, err := c.inbox.MarkProcessed(msgCtx, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox check failed", "event_id", meta.EventID, "error", err)
			continue
		}
		if !fresh {
			c.logger.Debug("duplicate event skipped", "event_id", meta.EventID)
			c.commit(ctx, msg)
			continue
		}

		if err := c.handler(msgCtx, meta.EventType, msg.Value); err != nil {
			c.logger.Error("event handler failed",
				"event_id", meta.EventID,
				"event_type", meta.EventType,
				"error", err)
			continue
		}
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.logger.Error("commit failed", "topic", msg.Topic, "error", err)
	}
}
