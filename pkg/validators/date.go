package validators

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// ParseDate parses a strict YYYY-MM-DD date as midnight UTC. The boolean is
// false for anything else, including valid timestamps with a time component.
func ParseDate(s string) (time.Time, bool) {
	if len(s) != len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseReferenceTime parses an evaluation reference time given as a
// YYYY-MM-DD date or an RFC 3339 timestamp. The result is in UTC.
func ParseReferenceTime(s string) (time.Time, error) {
	if t, ok := ParseDate(s); ok {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference time %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// ValidDate reports whether s is a strict YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// ValidDateRange reports whether both dates are valid and start is strictly
// before end.
func ValidDateRange(start, end string) bool {
	s, ok := ParseDate(start)
	if !ok {
		return false
	}
	e, ok := ParseDate(end)
	if !ok {
		return false
	}
	return s.Before(e)
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WithinWindow reports whether now falls inside [start, end], inclusive on
// both ends, at day granularity.
func WithinWindow(now, start, end time.Time) bool {
	d := Day(now)
	return !d.Before(Day(start)) && !d.After(Day(end))
}

// DaysBetween returns the number of whole days from a to b, negative when b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
