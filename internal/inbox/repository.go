// Package inbox gives consumers exactly-once processing on top of Kafka's
// at-least-once delivery. Every handled event id is recorded under a unique
// key; a redelivery trips the constraint and is skipped.
package inbox

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/campusdesk/officehours/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// MarkProcessed records the event id. It returns false when the event was
// already processed, without error.
func (r *Repository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)`,
		eventID, eventType,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
