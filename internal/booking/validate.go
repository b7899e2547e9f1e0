package booking

import (
	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/timefmt"
)

// Candidate is a booking request before validation. Times arrive as clock
// labels from the wire and are decoded exactly once, here.
type Candidate struct {
	ProfessorID  string
	Weekday      availability.Weekday
	StartLabel   string
	EndLabel     string
	StudentName  string
	StudentEmail string
}

// Validate checks a candidate against the professor's weekly template and the
// current active bookings, in order, short-circuiting on the first failure:
//
//  1. the weekday has at least one availability range (ErrNoOfficeHours),
//  2. the requested window is fully contained in a single range
//     (ErrOutsideOfficeHours) — straddling adjacent ranges is rejected,
//  3. no active booking already holds the identical slot (ErrSlotAlreadyBooked).
//
// The third check is advisory: the authoritative guard is the unique index the
// ledger inserts against. On success the returned Booking is normalized and
// ready for insertion.
func Validate(tpl availability.WeeklyTemplate, existing []model.Booking, c Candidate) (model.Booking, error) {
	start, err := timefmt.ParseClockLabel(c.StartLabel)
	if err != nil {
		return model.Booking{}, err
	}
	end, err := timefmt.ParseClockLabel(c.EndLabel)
	if err != nil {
		return model.Booking{}, err
	}
	if start >= end {
		return model.Booking{}, ErrOutsideOfficeHours
	}

	ranges := tpl[c.Weekday]
	if len(ranges) == 0 {
		return model.Booking{}, ErrNoOfficeHours
	}

	contained := false
	for _, r := range ranges {
		if r.Contains(start, end) {
			contained = true
			break
		}
	}
	if !contained {
		return model.Booking{}, ErrOutsideOfficeHours
	}

	for _, b := range existing {
		if b.Active() && b.Weekday == c.Weekday && b.StartMinute == start && b.EndMinute == end {
			return model.Booking{}, ErrSlotAlreadyBooked
		}
	}

	return model.Booking{
		ProfessorID:  c.ProfessorID,
		Weekday:      c.Weekday,
		StartMinute:  start,
		EndMinute:    end,
		StudentName:  c.StudentName,
		StudentEmail: c.StudentEmail,
		Status:       model.BookingStatusConfirmed,
	}, nil
}
