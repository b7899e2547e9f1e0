package availability

import "sort"

// ExpandInterval walks each availability range for the weekday in fixed-size
// steps, emitting one slot per step. A final partial step that would cross
// the range end is discarded, so a range shorter than stepMinutes emits
// nothing. Slots come back ordered by start time ascending.
func ExpandInterval(tpl WeeklyTemplate, day Weekday, stepMinutes int) []Slot {
	if stepMinutes <= 0 {
		return nil
	}
	var slots []Slot
	for _, r := range tpl[day] {
		for s := r.StartMinute; s+stepMinutes <= r.EndMinute; s += stepMinutes {
			slots = append(slots, Slot{Weekday: day, StartMinute: s, EndMinute: s + stepMinutes})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartMinute < slots[j].StartMinute
	})
	return slots
}

// ExpandIntervalWeek expands every weekday in calendar order.
func ExpandIntervalWeek(tpl WeeklyTemplate, stepMinutes int) []Slot {
	var slots []Slot
	for _, day := range Weekdays() {
		slots = append(slots, ExpandInterval(tpl, day, stepMinutes)...)
	}
	return slots
}

// GridEntry is the evaluation of one fixed grid instant against a weekday's
// availability. Unlike interval expansion, the grid emits every instant and
// carries an availability flag instead of omitting closed ones.
type GridEntry struct {
	Weekday   Weekday
	Minute    int
	Available bool
}

// ExpandGrid evaluates the fixed grid instants against the weekday's ranges.
// An instant is available iff its minute falls within [start, end) of any
// range on that weekday; a weekday absent from the template yields
// all-unavailable entries.
func ExpandGrid(tpl WeeklyTemplate, day Weekday, gridMinutes []int) []GridEntry {
	ranges := tpl[day]
	entries := make([]GridEntry, 0, len(gridMinutes))
	for _, m := range gridMinutes {
		available := false
		for _, r := range ranges {
			if m >= r.StartMinute && m < r.EndMinute {
				available = true
				break
			}
		}
		entries = append(entries, GridEntry{Weekday: day, Minute: m, Available: available})
	}
	return entries
}

// ExpandGridWeek evaluates the grid for every weekday in calendar order.
func ExpandGridWeek(tpl WeeklyTemplate, gridMinutes []int) []GridEntry {
	var entries []GridEntry
	for _, day := range Weekdays() {
		entries = append(entries, ExpandGrid(tpl, day, gridMinutes)...)
	}
	return entries
}
