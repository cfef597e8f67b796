package domain

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time with minute precision, stored as minutes since
// midnight. Reservations are same-day intervals, so minutes-since-midnight
// keeps the overlap arithmetic integer-only.
type TimeOfDay int

const minutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	tm, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return TimeOfDay(tm.Hour()*60 + tm.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Minutes() int { return int(t) }

// TimeSlot is a half-open interval [Start, End) within a single day.
type TimeSlot struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Valid reports whether the slot is well-formed: End strictly after Start and
// both within the day.
func (s TimeSlot) Valid() bool {
	return s.Start >= 0 && s.End <= minutesPerDay && s.End > s.Start
}

// Overlaps reports whether two half-open intervals on the same (space, date)
// share any instant. Intervals that touch at a boundary do not overlap, so
// back-to-back reservations are legal.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	return !(s.End <= o.Start || s.Start >= o.End)
}

// DurationHours is the slot length in fractional hours, clamped to zero for
// inverted slots (callers reject those before getting here).
func (s TimeSlot) DurationHours() float64 {
	if s.End <= s.Start {
		return 0
	}
	return float64(s.End-s.Start) / 60.0
}

// DateFormat is the wire format for reservation dates.
const DateFormat = "2006-01-02"

// ParseDate parses "YYYY-MM-DD" into a UTC midnight timestamp.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}
