package storage

import (
	"context"
	"fmt"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/libs/db"
)

type ProfessorRepository struct {
	pool *db.Pool
}

func NewProfessorRepository(pool *db.Pool) *ProfessorRepository {
	return &ProfessorRepository{pool: pool}
}

func (r *ProfessorRepository) Create(ctx context.Context, p model.Professor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO professors (id, name, department, email, office, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Department, p.Email, p.Office, p.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("insert professor: %w", err)
	}
	return nil
}

func (r *ProfessorRepository) Get(ctx context.Context, id string) (model.Professor, error) {
	var p model.Professor
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, department, email, office, avatar_url, created_at
		FROM professors
		WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Department, &p.Email, &p.Office, &p.AvatarURL, &p.CreatedAt)
	if err != nil {
		return model.Professor{}, err
	}
	return p, nil
}

func (r *ProfessorRepository) List(ctx context.Context) ([]model.Professor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, department, email, office, avatar_url, created_at
		FROM professors
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	defer rows.Close()

	var out []model.Professor
	for rows.Next() {
		var p model.Professor
		if err := rows.Scan(&p.ID, &p.Name, &p.Department, &p.Email, &p.Office, &p.AvatarURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan professor: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Template loads the professor's weekly office-hours template. A professor
// with no rows gets an empty template, which downstream code treats as "no
// office hours on any day".
func (r *ProfessorRepository) Template(ctx context.Context, professorID string) (availability.WeeklyTemplate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM office_hours
		WHERE professor_id = $1
		ORDER BY weekday, start_minute`,
		professorID,
	)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	defer rows.Close()

	tpl := availability.WeeklyTemplate{}
	for rows.Next() {
		var day string
		var rng availability.Range
		if err := rows.Scan(&day, &rng.StartMinute, &rng.EndMinute); err != nil {
			return nil, fmt.Errorf("scan office hours: %w", err)
		}
		tpl[availability.Weekday(day)] = append(tpl[availability.Weekday(day)], rng)
	}
	return tpl, rows.Err()
}

// ReplaceTemplate swaps the professor's whole weekly template in one
// transaction. Existing bookings are untouched; callers decide how to treat
// bookings the new template orphans.
func (r *ProfessorRepository) ReplaceTemplate(ctx context.Context, professorID string, tpl availability.WeeklyTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM office_hours WHERE professor_id = $1`, professorID); err != nil {
		return fmt.Errorf("clear template: %w", err)
	}
	for _, day := range availability.Weekdays() {
		for _, rng := range tpl[day] {
			if _, err := tx.Exec(ctx, `
				INSERT INTO office_hours (professor_id, weekday, start_minute, end_minute)
				VALUES ($1, $2, $3, $4)`,
				professorID, string(day), rng.StartMinute, rng.EndMinute,
			); err != nil {
				return fmt.Errorf("insert office hours: %w", err)
			}
		}
	}
	return tx.Commit(ctx)
}
