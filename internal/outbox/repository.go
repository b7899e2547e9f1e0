package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/officehours/libs/db"
	otelx "github.com/campusdesk/officehours/libs/otel"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stages an event in the same transaction as the state change it
// describes, so the event exists if and only if the change committed. The
// current trace context rides along so the publisher can link spans.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, eventType, aggregateID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, event_type, aggregate_id, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), eventType, aggregateID, body, traceparent, tracestate,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchUnpublished claims up to limit pending events. FOR UPDATE SKIP LOCKED
// lets multiple publisher instances drain the table without stepping on each
// other; the caller must publish and mark within the returned transaction.
func (r *Repository) FetchUnpublished(ctx context.Context, limit int) (pgx.Tx, []Event, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin outbox poll: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, event_id, event_type, aggregate_id, payload, traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, fmt.Errorf("fetch unpublished: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.AggregateID,
			&e.Payload, &e.Traceparent, &e.Tracestate, &e.CreatedAt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		_ = tx.Rollback(ctx)
		return nil, nil, err
	}
	return tx, events, nil
}

// MarkPublished stamps the events inside the polling transaction.
func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE outbox_events SET published_at = $2 WHERE id = ANY($1)`,
		ids, at,
	)
	return err
}
