// Package timefmt converts between the 12-hour clock labels used across the
// API ("2:00 PM") and minutes since midnight, which is how availability and
// bookings are stored. It is the single place clock labels are parsed;
// everything else works in minute-of-day integers.
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinutesPerDay bounds every minute-of-day value: valid values are [0, 1440).
const MinutesPerDay = 24 * 60

const clockLayout = "3:04 PM"

var ErrMalformedTimeLabel = errors.New("malformed time label")

// ParseClockLabel parses a 12-hour clock label into minutes since midnight.
// "12:00 AM" is 0 and "12:00 PM" is 720. Leading zeros are tolerated
// ("09:00 AM"); anything else unparsable reports ErrMalformedTimeLabel.
func ParseClockLabel(label string) (int, error) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(label))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTimeLabel, label)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes since midnight as a canonical clock label.
// The input must be in [0, MinutesPerDay); out-of-range values are first
// reduced into that range so the function is total.
func FormatMinutes(minutes int) string {
	minutes %= MinutesPerDay
	if minutes < 0 {
		minutes += MinutesPerDay
	}
	t := time.Date(2000, time.January, 1, minutes/60, minutes%60, 0, 0, time.UTC)
	return t.Format(clockLayout)
}
