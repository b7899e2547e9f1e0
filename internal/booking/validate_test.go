package booking

import (
	"errors"
	"testing"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/timefmt"
)

func nineToNoon() availability.WeeklyTemplate {
	return availability.WeeklyTemplate{
		availability.Monday: {{StartMinute: 540, EndMinute: 720}}, // 9:00 AM – 12:00 PM
	}
}

func TestValidate_Accepts(t *testing.T) {
	b, err := Validate(nineToNoon(), nil, Candidate{
		ProfessorID:  "p1",
		Weekday:      availability.Monday,
		StartLabel:   "9:00 AM",
		EndLabel:     "9:15 AM",
		StudentName:  "Dana",
		StudentEmail: "dana@example.edu",
	})
	if err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
	if b.StartMinute != 540 || b.EndMinute != 555 {
		t.Fatalf("unexpected normalized minutes: %d-%d", b.StartMinute, b.EndMinute)
	}
	if b.Status != model.BookingStatusConfirmed {
		t.Fatalf("expected confirmed status, got %q", b.Status)
	}
}

func TestValidate_NoOfficeHoursOnThatDay(t *testing.T) {
	_, err := Validate(nineToNoon(), nil, Candidate{
		Weekday:    availability.Friday,
		StartLabel: "9:00 AM",
		EndLabel:   "9:15 AM",
	})
	if !errors.Is(err, ErrNoOfficeHours) {
		t.Fatalf("expected ErrNoOfficeHours, got %v", err)
	}
}

func TestValidate_StrictContainment(t *testing.T) {
	// 9:50–10:05 straddles the 10:00 boundary of a 9:00–10:00 range and must
	// be rejected even though it partially overlaps availability.
	tpl := availability.WeeklyTemplate{
		availability.Monday: {{StartMinute: 540, EndMinute: 600}},
	}
	_, err := Validate(tpl, nil, Candidate{
		Weekday:    availability.Monday,
		StartLabel: "9:50 AM",
		EndLabel:   "10:05 AM",
	})
	if !errors.Is(err, ErrOutsideOfficeHours) {
		t.Fatalf("expected ErrOutsideOfficeHours, got %v", err)
	}
}

func TestValidate_AdjacentRangesDoNotMerge(t *testing.T) {
	// Back-to-back ranges 9:00–10:00 and 10:00–11:00: a 9:45–10:15 request is
	// inside neither single range, so it is rejected.
	tpl := availability.WeeklyTemplate{
		availability.Monday: {
			{StartMinute: 540, EndMinute: 600},
			{StartMinute: 600, EndMinute: 660},
		},
	}
	_, err := Validate(tpl, nil, Candidate{
		Weekday:    availability.Monday,
		StartLabel: "9:45 AM",
		EndLabel:   "10:15 AM",
	})
	if !errors.Is(err, ErrOutsideOfficeHours) {
		t.Fatalf("expected ErrOutsideOfficeHours, got %v", err)
	}
}

func TestValidate_DuplicateSlot(t *testing.T) {
	existing := []model.Booking{{
		ProfessorID: "p1",
		Weekday:     availability.Monday,
		StartMinute: 540,
		EndMinute:   555,
		Status:      model.BookingStatusConfirmed,
	}}
	_, err := Validate(nineToNoon(), existing, Candidate{
		ProfessorID: "p1",
		Weekday:     availability.Monday,
		StartLabel:  "9:00 AM",
		EndLabel:    "9:15 AM",
	})
	if !errors.Is(err, ErrSlotAlreadyBooked) {
		t.Fatalf("expected ErrSlotAlreadyBooked, got %v", err)
	}
}

func TestValidate_CancelledBookingFreesSlot(t *testing.T) {
	existing := []model.Booking{{
		Weekday:     availability.Monday,
		StartMinute: 540,
		EndMinute:   555,
		Status:      model.BookingStatusCancelled,
	}}
	if _, err := Validate(nineToNoon(), existing, Candidate{
		Weekday:    availability.Monday,
		StartLabel: "9:00 AM",
		EndLabel:   "9:15 AM",
	}); err != nil {
		t.Fatalf("cancelled booking must not block the slot: %v", err)
	}
}

func TestValidate_MalformedLabel(t *testing.T) {
	_, err := Validate(nineToNoon(), nil, Candidate{
		Weekday:    availability.Monday,
		StartLabel: "nine o'clock",
		EndLabel:   "9:15 AM",
	})
	if !errors.Is(err, timefmt.ErrMalformedTimeLabel) {
		t.Fatalf("expected ErrMalformedTimeLabel, got %v", err)
	}
}

func TestValidate_InvertedWindowRejected(t *testing.T) {
	_, err := Validate(nineToNoon(), nil, Candidate{
		Weekday:    availability.Monday,
		StartLabel: "10:00 AM",
		EndLabel:   "9:00 AM",
	})
	if !errors.Is(err, ErrOutsideOfficeHours) {
		t.Fatalf("expected ErrOutsideOfficeHours for inverted window, got %v", err)
	}
}
