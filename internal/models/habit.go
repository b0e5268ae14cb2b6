// Package models holds the habit domain types shared by the server, the client and the views.
package models

import (
	"strings"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
)

// Habit is a user-defined recurring activity being tracked
type Habit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Entry records that a habit was completed on a calendar day.
// Date is the start of that day in the reference timezone.
type Entry struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	UserID    string    `json:"userId"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// HabitWithEntries is a habit together with all of its entries
type HabitWithEntries struct {
	Habit
	Entries []Entry `json:"entries"`
}

// User is the authenticated owner of habits
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Clone returns a deep copy so callers can't mutate shared entry slices
func (h HabitWithEntries) Clone() HabitWithEntries {
	entries := make([]Entry, len(h.Entries))
	copy(entries, h.Entries)
	return HabitWithEntries{Habit: h.Habit, Entries: entries}
}

// EntryDates returns the dates of all entries
func (h HabitWithEntries) EntryDates() []time.Time {
	dates := make([]time.Time, 0, len(h.Entries))
	for _, e := range h.Entries {
		dates = append(dates, e.Date)
	}
	return dates
}

// ValidateHabitName checks a habit name against the length bounds
func ValidateHabitName(name string) error {
	if !constants.IsValidHabitName(name) {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Field: "name", Message: "Habit name is required"}
		}
		return &ValidationError{Field: "name", Message: "Habit name must be 50 characters or less"}
	}
	return nil
}

// Session is an authenticated sign-in, identified by an opaque bearer token
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionInfo is a session as reported to API clients, with the reference
// timezone the server normalizes entry dates in
type SessionInfo struct {
	Session
	Timezone string `json:"timezone"`
}

// Expired reports whether the session is no longer valid at now
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
