// Package schedule merges a professor's expanded availability with the active
// bookings into the view students see. Views are computed per request and
// never cached; the booking ledger is the single source of truth.
package schedule

import (
	"time"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusBooked      Status = "booked"
	StatusUnavailable Status = "unavailable"
)

// Entry is one cell of the schedule view. For interval views EndMinute is the
// slot end; for grid views it is StartMinute plus the grid step.
type Entry struct {
	Weekday     availability.Weekday
	StartMinute int
	EndMinute   int
	Status      Status
	BookingID   string
}

// DefaultGridMinutes is the hourly 9:00 AM through 4:00 PM grid shown when a
// request does not pin its own instants.
func DefaultGridMinutes() []int {
	out := make([]int, 0, 8)
	for m := 9 * 60; m <= 16*60; m += 60 {
		out = append(out, m)
	}
	return out
}

// ComposeInterval expands the weekday's template into fixed-length slots and
// marks each one booked or available. A slot is booked only when an active
// booking matches its exact start and end; overlapping but non-identical
// bookings do not claim it.
func ComposeInterval(tpl availability.WeeklyTemplate, bookings []model.Booking, day availability.Weekday, stepMinutes int) []Entry {
	slots := availability.ExpandInterval(tpl, day, stepMinutes)
	entries := make([]Entry, 0, len(slots))
	for _, s := range slots {
		e := Entry{
			Weekday:     s.Weekday,
			StartMinute: s.StartMinute,
			EndMinute:   s.EndMinute,
			Status:      StatusAvailable,
		}
		for _, b := range bookings {
			if b.Active() && b.Weekday == s.Weekday && b.StartMinute == s.StartMinute && b.EndMinute == s.EndMinute {
				e.Status = StatusBooked
				e.BookingID = b.ID
				break
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// ComposeIntervalWeek composes every weekday in calendar order.
func ComposeIntervalWeek(tpl availability.WeeklyTemplate, bookings []model.Booking, stepMinutes int) []Entry {
	var entries []Entry
	for _, day := range availability.Weekdays() {
		entries = append(entries, ComposeInterval(tpl, bookings, day, stepMinutes)...)
	}
	return entries
}

// ComposeGrid evaluates fixed instants against the weekday's template and
// bookings. Every instant yields an entry: booked when an active booking
// starts there, available when inside office hours, otherwise unavailable.
func ComposeGrid(tpl availability.WeeklyTemplate, bookings []model.Booking, day availability.Weekday, gridMinutes []int) []Entry {
	cells := availability.ExpandGrid(tpl, day, gridMinutes)
	entries := make([]Entry, 0, len(cells))
	for _, c := range cells {
		e := Entry{
			Weekday:     c.Weekday,
			StartMinute: c.Minute,
			EndMinute:   c.Minute,
			Status:      StatusUnavailable,
		}
		if c.Available {
			e.Status = StatusAvailable
		}
		for _, b := range bookings {
			if b.Active() && b.Weekday == day && b.StartMinute == c.Minute {
				e.Status = StatusBooked
				e.EndMinute = b.EndMinute
				e.BookingID = b.ID
				break
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// ComposeGridWeek composes the grid for every weekday in calendar order.
func ComposeGridWeek(tpl availability.WeeklyTemplate, bookings []model.Booking, gridMinutes []int) []Entry {
	var entries []Entry
	for _, day := range availability.Weekdays() {
		entries = append(entries, ComposeGrid(tpl, bookings, day, gridMinutes)...)
	}
	return entries
}

// WeekDates returns the Monday through Friday dates of the week holding now,
// shifted by offset weeks. Weekend days roll forward to the next week's
// Monday so a Saturday request shows the upcoming week.
func WeekDates(now time.Time, offset int) []time.Time {
	day := now.Weekday()
	var monday time.Time
	switch day {
	case time.Saturday:
		monday = now.AddDate(0, 0, 2)
	case time.Sunday:
		monday = now.AddDate(0, 0, 1)
	default:
		monday = now.AddDate(0, 0, -int(day-time.Monday))
	}
	monday = monday.AddDate(0, 0, 7*offset)
	monday = time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, monday.Location())

	dates := make([]time.Time, 0, 5)
	for i := 0; i < 5; i++ {
		dates = append(dates, monday.AddDate(0, 0, i))
	}
	return dates
}
