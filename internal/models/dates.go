package models

import (
	"fmt"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
)

// StartOfDay truncates t to midnight of its calendar day in loc.
// A nil loc keeps t's own location.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayKey returns the YYYY-MM-DD key of t's calendar day in loc
func DayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(constants.DateFormat)
}

// ParseEntryDate accepts either a YYYY-MM-DD day or an RFC 3339 timestamp and
// returns the start of that day in loc.
func ParseEntryDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if s == "" {
		return time.Time{}, &ValidationError{Field: "date", Message: "date is required"}
	}
	if d, err := time.ParseInLocation(constants.DateFormat, s, loc); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: fmt.Sprintf("unrecognized date %q", s)}
	}
	return StartOfDay(ts, loc), nil
}
