package model

import (
	"time"

	"github.com/campusdesk/officehours/internal/availability"
)

type Professor struct {
	ID         string
	Name       string
	Department string
	Email      string
	Office     string
	AvatarURL  string
	CreatedAt  time.Time
}

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking is one confirmed (or cancelled) appointment. Its identity among
// active bookings is the tuple (ProfessorID, Weekday, StartMinute, EndMinute);
// the storage layer enforces that uniqueness with a partial unique index.
type Booking struct {
	ID           string
	ProfessorID  string
	Weekday      availability.Weekday
	StartMinute  int
	EndMinute    int
	StudentName  string
	StudentEmail string
	Status       string
	CancelledAt  *time.Time
	CreatedAt    time.Time
}

// Active reports whether the booking still occupies its slot.
func (b Booking) Active() bool {
	return b.Status == BookingStatusConfirmed
}
