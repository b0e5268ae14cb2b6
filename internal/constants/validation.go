// Package constants provides shared constants for the habit-tracker application
package constants

import "unicode/utf8"

const (
	// MinHabitNameLength is the minimum number of characters of a habit name
	MinHabitNameLength = 1
	// MaxHabitNameLength is the maximum number of characters of a habit name
	MaxHabitNameLength = 50
)

// IsValidHabitName checks the length bounds of a habit name.
// Length is counted in characters (code points), not bytes.
func IsValidHabitName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= MinHabitNameLength && n <= MaxHabitNameLength
}
