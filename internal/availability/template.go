// Package availability expands a professor's recurring weekly template into
// discrete bookable slots. Templates are sparse: a weekday with no ranges
// simply has no office hours, never an error.
package availability

// Weekday is a day of the bookable week. The service runs on a fixed
// Monday–Friday week, matching the schedule grid shown to students.
type Weekday string

const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
)

// Weekdays returns the bookable weekdays in calendar order.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// ParseWeekday validates a wire-format weekday string.
func ParseWeekday(s string) (Weekday, bool) {
	for _, d := range Weekdays() {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Range is a half-open availability window [StartMinute, EndMinute) in
// minutes since midnight. StartMinute < EndMinute always; ranges within a
// weekday are not required to be disjoint.
type Range struct {
	StartMinute int
	EndMinute   int
}

// Contains reports whether the slot [start, end) lies fully inside the range.
func (r Range) Contains(start, end int) bool {
	return start >= r.StartMinute && end <= r.EndMinute
}

// WeeklyTemplate maps each weekday to its ordered availability ranges.
// It is owned by the professor record and only changes through
// administrative updates, never through booking traffic.
type WeeklyTemplate map[Weekday][]Range

// Slot is one materialized bookable window. Slots are recomputed from the
// template on every schedule request and never persisted.
type Slot struct {
	Weekday     Weekday
	StartMinute int
	EndMinute   int
}
