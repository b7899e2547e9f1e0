package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/campusdesk/officehours/internal/consumer"
	"github.com/campusdesk/officehours/internal/email"
	"github.com/campusdesk/officehours/internal/inbox"
	"github.com/campusdesk/officehours/internal/outbox"
	"github.com/campusdesk/officehours/libs/config"
	"github.com/campusdesk/officehours/libs/db"
	otelx "github.com/campusdesk/officehours/libs/otel"
	"github.com/campusdesk/officehours/libs/runtime"
)

const serviceName = "notifier-service"

func main() {
	logger := runtime.NewLogger(serviceName)
	config.LoadEnvFile(logger)

	if err := run(logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	shutdownTracing, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	sender := email.NewSender(
		config.String("SMTP_HOST", "localhost"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_USERNAME", ""),
		config.String("SMTP_PASSWORD", ""),
		config.String("SMTP_FROM", "office-hours@campusdesk.local"),
	)
	notifier := &notifier{sender: sender, logger: logger}

	brokers := config.String("KAFKA_BROKERS", "localhost:9092")
	groupID := config.String("KAFKA_GROUP_ID", "notifier-service")
	inboxRepo := inbox.NewRepository(pool)

	topics := []string{outbox.TopicBookingConfirmed, outbox.TopicBookingCancelled}
	var wg sync.WaitGroup
	for _, topic := range topics {
		c := consumer.New(brokers, groupID, topic, inboxRepo, notifier.handle, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(ctx)
		}()
		logger.Info("consumer started", "topic", topic)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	wg.Wait()
	logger.Info("consumers stopped")
	return nil
}

type notifier struct {
	sender *email.Sender
	logger *slog.Logger
}

// handle emails both parties about a booking event. A failure for one
// recipient does not block the other; the first error is returned so the
// event can be retried.
func (n *notifier) handle(_ context.Context, eventType string, payload []byte) error {
	var ev outbox.BookingEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode booking event: %w", err)
	}

	var subject, studentBody, professorBody string
	slot := fmt.Sprintf("%s %s to %s", ev.Weekday, ev.StartLabel, ev.EndLabel)
	switch eventType {
	case outbox.EventTypeBookingConfirmed:
		subject = "Office hours appointment confirmed"
		studentBody = fmt.Sprintf("Hi %s,\n\nYour appointment with %s is confirmed for %s.\n", ev.StudentName, ev.ProfessorName, slot)
		professorBody = fmt.Sprintf("Hi %s,\n\n%s booked your office hours for %s.\n", ev.ProfessorName, ev.StudentName, slot)
	case outbox.EventTypeBookingCancelled:
		subject = "Office hours appointment cancelled"
		studentBody = fmt.Sprintf("Hi %s,\n\nYour appointment with %s for %s was cancelled.\n", ev.StudentName, ev.ProfessorName, slot)
		professorBody = fmt.Sprintf("Hi %s,\n\nThe appointment with %s for %s was cancelled.\n", ev.ProfessorName, ev.StudentName, slot)
	default:
		n.logger.Warn("unknown event type, skipping", "event_type", eventType)
		return nil
	}

	var firstErr error
	if ev.StudentEmail != "" {
		if err := n.sender.Send(ev.StudentEmail, subject, studentBody); err != nil {
			n.logger.Error("student notification failed", "booking_id", ev.BookingID, "error", err)
			firstErr = err
		}
	}
	if ev.ProfessorEmail != "" {
		if err := n.sender.Send(ev.ProfessorEmail, subject, professorBody); err != nil {
			n.logger.Error("professor notification failed", "booking_id", ev.BookingID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
