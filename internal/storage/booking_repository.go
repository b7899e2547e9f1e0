package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/libs/db"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Begin opens a transaction for a multi-statement booking operation. Callers
// own commit/rollback.
func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const bookingColumns = `id, professor_id, weekday, start_minute, end_minute,
	student_name, student_email, status, cancelled_at, created_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var day string
	err := row.Scan(&b.ID, &b.ProfessorID, &day, &b.StartMinute, &b.EndMinute,
		&b.StudentName, &b.StudentEmail, &b.Status, &b.CancelledAt, &b.CreatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	b.Weekday = availability.Weekday(day)
	return b, nil
}

// Insert writes a confirmed booking inside the caller's transaction. A
// concurrent booking of the same slot trips the partial unique index and
// surfaces here as a conflict; there is deliberately no prior existence check.
func (r *BookingRepository) Insert(ctx context.Context, tx pgx.Tx, b model.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings (id, professor_id, weekday, start_minute, end_minute,
			student_name, student_email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.ProfessorID, string(b.Weekday), b.StartMinute, b.EndMinute,
		b.StudentName, b.StudentEmail, b.Status,
	)
	return err
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	return scanBooking(row)
}

// GetForUpdate locks the booking row for the remainder of the transaction so
// cancel and reschedule cannot race each other.
func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Booking, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
	return scanBooking(row)
}

// SoftCancel marks the booking cancelled, freeing its slot for rebooking
// while keeping the row for history and notifications.
func (r *BookingRepository) SoftCancel(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2
		WHERE id = $1 AND status = 'confirmed'`,
		id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdateSlot moves a confirmed booking to a new slot. The partial unique
// index guards the destination exactly as it does on insert.
func (r *BookingRepository) UpdateSlot(ctx context.Context, tx pgx.Tx, id string, day availability.Weekday, startMinute, endMinute int) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET weekday = $2, start_minute = $3, end_minute = $4
		WHERE id = $1 AND status = 'confirmed'`,
		id, string(day), startMinute, endMinute,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *BookingRepository) UpdateStudent(ctx context.Context, tx pgx.Tx, id, studentName, studentEmail string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET student_name = $2, student_email = $3
		WHERE id = $1 AND status = 'confirmed'`,
		id, studentName, studentEmail,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListActiveByProfessor returns the professor's confirmed bookings in
// calendar order. Weekday text sorts alphabetically, so ordering by day
// happens in Go, not SQL.
func (r *BookingRepository) ListActiveByProfessor(ctx context.Context, professorID string) ([]model.Booking, error) {
	return r.listByProfessor(ctx, professorID, true)
}

// ListByProfessor returns all of the professor's bookings, cancelled included.
func (r *BookingRepository) ListByProfessor(ctx context.Context, professorID string) ([]model.Booking, error) {
	return r.listByProfessor(ctx, professorID, false)
}

func (r *BookingRepository) listByProfessor(ctx context.Context, professorID string, activeOnly bool) ([]model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE professor_id = $1`
	if activeOnly {
		query += ` AND status = 'confirmed'`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, professorID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortBookings(out)
	return out, nil
}

var weekdayOrder = func() map[availability.Weekday]int {
	m := make(map[availability.Weekday]int)
	for i, d := range availability.Weekdays() {
		m[d] = i
	}
	return m
}()

func sortBookings(bs []model.Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		if weekdayOrder[bs[i].Weekday] != weekdayOrder[bs[j].Weekday] {
			return weekdayOrder[bs[i].Weekday] < weekdayOrder[bs[j].Weekday]
		}
		return bs[i].StartMinute < bs[j].StartMinute
	})
}
