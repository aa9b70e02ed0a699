package shared

import (
	"fmt"
	"strings"
	"time"
)

// CalendarDate returns the date portion of t as observed in loc, at midnight.
func CalendarDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return CalendarDate(a, loc).Equal(CalendarDate(b, loc))
}

// LoadLocation resolves an IANA zone name. Empty input and "Local" map to [time.Local].
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time zone %q", ErrInvalidArgument, name)
	}
	return loc, nil
}
