package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/outbox"
	"github.com/campusdesk/officehours/internal/storage"
	"github.com/campusdesk/officehours/internal/timefmt"
)

// Ledger owns the booking lifecycle. Every state change commits the booking
// row and its notification event in one transaction; the slot uniqueness
// guarantee comes from the storage layer's partial unique index, never from a
// read-then-write check.
type Ledger struct {
	bookings   *storage.BookingRepository
	professors *storage.ProfessorRepository
	outbox     *outbox.Repository
	logger     *slog.Logger
}

func NewLedger(bookings *storage.BookingRepository, professors *storage.ProfessorRepository, ob *outbox.Repository, logger *slog.Logger) *Ledger {
	return &Ledger{bookings: bookings, professors: professors, outbox: ob, logger: logger}
}

// Create validates the candidate and inserts the booking. Two concurrent
// identical candidates both pass validation; the unique index lets exactly
// one insert commit and the loser surfaces ErrSlotAlreadyBooked.
func (l *Ledger) Create(ctx context.Context, c Candidate) (model.Booking, error) {
	prof, err := l.professors.Get(ctx, c.ProfessorID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Booking{}, ErrUnknownProfessor
		}
		return model.Booking{}, storageErr("load professor", err)
	}

	tpl, err := l.professors.Template(ctx, c.ProfessorID)
	if err != nil {
		return model.Booking{}, storageErr("load template", err)
	}
	existing, err := l.bookings.ListActiveByProfessor(ctx, c.ProfessorID)
	if err != nil {
		return model.Booking{}, storageErr("list bookings", err)
	}

	b, err := Validate(tpl, existing, c)
	if err != nil {
		return model.Booking{}, err
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now().UTC()

	tx, err := l.bookings.Begin(ctx)
	if err != nil {
		return model.Booking{}, storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	if err := l.bookings.Insert(ctx, tx, b); err != nil {
		if storage.IsConflict(err) {
			return model.Booking{}, ErrSlotAlreadyBooked
		}
		return model.Booking{}, storageErr("insert booking", err)
	}
	if err := l.outbox.Insert(ctx, tx, outbox.EventTypeBookingConfirmed, b.ID, bookingEvent(prof, b)); err != nil {
		return model.Booking{}, storageErr("stage event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if storage.IsConflict(err) {
			return model.Booking{}, ErrSlotAlreadyBooked
		}
		return model.Booking{}, storageErr("commit", err)
	}

	l.logger.Info("booking created",
		"booking_id", b.ID,
		"professor_id", b.ProfessorID,
		"weekday", string(b.Weekday),
		"start", timefmt.FormatMinutes(b.StartMinute))
	return b, nil
}

// Cancel soft-deletes the booking, freeing its slot. Cancelling a missing or
// already-cancelled booking reports ErrBookingNotFound.
func (l *Ledger) Cancel(ctx context.Context, bookingID string) (model.Booking, error) {
	tx, err := l.bookings.Begin(ctx)
	if err != nil {
		return model.Booking{}, storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	b, err := l.bookings.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, storageErr("load booking", err)
	}
	if !b.Active() {
		return model.Booking{}, ErrBookingNotFound
	}

	prof, err := l.professors.Get(ctx, b.ProfessorID)
	if err != nil && !storage.IsNotFound(err) {
		return model.Booking{}, storageErr("load professor", err)
	}

	now := time.Now().UTC()
	if err := l.bookings.SoftCancel(ctx, tx, bookingID, now); err != nil {
		if storage.IsNotFound(err) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, storageErr("cancel booking", err)
	}
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &now

	if err := l.outbox.Insert(ctx, tx, outbox.EventTypeBookingCancelled, b.ID, bookingEvent(prof, b)); err != nil {
		return model.Booking{}, storageErr("stage event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, storageErr("commit", err)
	}

	l.logger.Info("booking cancelled", "booking_id", b.ID, "professor_id", b.ProfessorID)
	return b, nil
}

// Patch carries the mutable booking fields. Nil means "leave unchanged".
// Changing any slot field re-runs full validation against the professor's
// template and the other active bookings.
type Patch struct {
	Weekday      *availability.Weekday
	StartLabel   *string
	EndLabel     *string
	StudentName  *string
	StudentEmail *string
}

func (p Patch) movesSlot() bool {
	return p.Weekday != nil || p.StartLabel != nil || p.EndLabel != nil
}

// Update applies a patch to a confirmed booking. The row is locked for the
// whole operation so a concurrent cancel cannot interleave. If validation of
// a new slot fails, the booking keeps its original slot.
func (l *Ledger) Update(ctx context.Context, bookingID string, p Patch) (model.Booking, error) {
	tx, err := l.bookings.Begin(ctx)
	if err != nil {
		return model.Booking{}, storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	b, err := l.bookings.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Booking{}, ErrBookingNotFound
		}
		return model.Booking{}, storageErr("load booking", err)
	}
	if !b.Active() {
		return model.Booking{}, ErrBookingNotFound
	}

	if p.StudentName != nil {
		b.StudentName = *p.StudentName
	}
	if p.StudentEmail != nil {
		b.StudentEmail = *p.StudentEmail
	}
	if err := l.bookings.UpdateStudent(ctx, tx, b.ID, b.StudentName, b.StudentEmail); err != nil {
		return model.Booking{}, storageErr("update student", err)
	}

	slotMoved := false
	if p.movesSlot() {
		cand := Candidate{
			ProfessorID:  b.ProfessorID,
			Weekday:      b.Weekday,
			StartLabel:   timefmt.FormatMinutes(b.StartMinute),
			EndLabel:     timefmt.FormatMinutes(b.EndMinute),
			StudentName:  b.StudentName,
			StudentEmail: b.StudentEmail,
		}
		if p.Weekday != nil {
			cand.Weekday = *p.Weekday
		}
		if p.StartLabel != nil {
			cand.StartLabel = *p.StartLabel
		}
		if p.EndLabel != nil {
			cand.EndLabel = *p.EndLabel
		}

		tpl, err := l.professors.Template(ctx, b.ProfessorID)
		if err != nil {
			return model.Booking{}, storageErr("load template", err)
		}
		existing, err := l.bookings.ListActiveByProfessor(ctx, b.ProfessorID)
		if err != nil {
			return model.Booking{}, storageErr("list bookings", err)
		}
		others := existing[:0:0]
		for _, e := range existing {
			if e.ID != b.ID {
				others = append(others, e)
			}
		}

		validated, err := Validate(tpl, others, cand)
		if err != nil {
			return model.Booking{}, err
		}
		if validated.Weekday != b.Weekday || validated.StartMinute != b.StartMinute || validated.EndMinute != b.EndMinute {
			if err := l.bookings.UpdateSlot(ctx, tx, b.ID, validated.Weekday, validated.StartMinute, validated.EndMinute); err != nil {
				if storage.IsConflict(err) {
					return model.Booking{}, ErrSlotAlreadyBooked
				}
				return model.Booking{}, storageErr("update slot", err)
			}
			b.Weekday = validated.Weekday
			b.StartMinute = validated.StartMinute
			b.EndMinute = validated.EndMinute
			slotMoved = true
		}
	}

	if slotMoved {
		prof, err := l.professors.Get(ctx, b.ProfessorID)
		if err != nil && !storage.IsNotFound(err) {
			return model.Booking{}, storageErr("load professor", err)
		}
		if err := l.outbox.Insert(ctx, tx, outbox.EventTypeBookingConfirmed, b.ID, bookingEvent(prof, b)); err != nil {
			return model.Booking{}, storageErr("stage event", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		if storage.IsConflict(err) {
			return model.Booking{}, ErrSlotAlreadyBooked
		}
		return model.Booking{}, storageErr("commit", err)
	}

	l.logger.Info("booking updated", "booking_id", b.ID, "slot_moved", slotMoved)
	return b, nil
}

// ListByProfessor returns the professor's active bookings for schedule views.
func (l *Ledger) ListByProfessor(ctx context.Context, professorID string) ([]model.Booking, error) {
	if _, err := l.professors.Get(ctx, professorID); err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrUnknownProfessor
		}
		return nil, storageErr("load professor", err)
	}
	out, err := l.bookings.ListActiveByProfessor(ctx, professorID)
	if err != nil {
		return nil, storageErr("list bookings", err)
	}
	return out, nil
}

func bookingEvent(prof model.Professor, b model.Booking) outbox.BookingEvent {
	return outbox.BookingEvent{
		BookingID:      b.ID,
		ProfessorID:    b.ProfessorID,
		ProfessorName:  prof.Name,
		ProfessorEmail: prof.Email,
		StudentName:    b.StudentName,
		StudentEmail:   b.StudentEmail,
		Weekday:        string(b.Weekday),
		StartLabel:     timefmt.FormatMinutes(b.StartMinute),
		EndLabel:       timefmt.FormatMinutes(b.EndMinute),
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
