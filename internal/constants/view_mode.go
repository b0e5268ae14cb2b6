// Package constants provides shared constants for the habit-tracker application
package constants

import "fmt"

// ViewMode represents the date range displayed by a heatmap
type ViewMode string

const (
	// ViewModeYear shows the trailing 365 days including today
	ViewModeYear ViewMode = "year"
	// ViewModeMonth shows the current calendar month up to today
	ViewModeMonth ViewMode = "month"
)

// DefaultViewMode is used when no view mode has been selected
const DefaultViewMode = ViewModeYear

// IsValid checks if the view mode value is valid
func (v ViewMode) IsValid() bool {
	return v == ViewModeYear || v == ViewModeMonth
}

// String returns the string representation of the view mode
func (v ViewMode) String() string {
	return string(v)
}

// Toggle returns the other view mode
func (v ViewMode) Toggle() ViewMode {
	if v == ViewModeMonth {
		return ViewModeYear
	}
	return ViewModeMonth
}

// ParseViewMode parses a string into a ViewMode type
// Returns an error if the value is invalid
func ParseViewMode(s string) (ViewMode, error) {
	mode := ViewMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid view mode: %s (must be 'year' or 'month')", s)
	}
	return mode, nil
}

// GetAllViewModes returns all valid view mode values
// This provides a consistent list for UI components
func GetAllViewModes() []ViewMode {
	return []ViewMode{ViewModeYear, ViewModeMonth}
}
