package heatmap

import (
	"time"

	"github.com/belphemur/habit-tracker/internal/models"
)

// ActivitySet answers whether a calendar day has a recorded entry.
// Days are indexed by their YYYY-MM-DD key in the reference location.
type ActivitySet struct {
	loc  *time.Location
	days map[string]struct{}
}

// NewActivitySet indexes the given entry dates by calendar day in loc
func NewActivitySet(dates []time.Time, loc *time.Location) *ActivitySet {
	if loc == nil {
		loc = time.UTC
	}
	s := &ActivitySet{loc: loc, days: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		s.days[models.DayKey(d, loc)] = struct{}{}
	}
	return s
}

// Has reports whether date's calendar day has an entry. The zero time is never active.
func (s *ActivitySet) Has(date time.Time) bool {
	if s == nil || date.IsZero() {
		return false
	}
	_, ok := s.days[models.DayKey(date, s.loc)]
	return ok
}

// HasCell is Has for grid cells; placeholders are never active
func (s *ActivitySet) HasCell(c Cell) bool {
	if c.IsPlaceholder() {
		return false
	}
	return s.Has(c.Date)
}

// Len returns the number of distinct active days
func (s *ActivitySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.days)
}
