package handlers

// Error Codes
const (
	ErrCodeInvalidJSON      = "invalid_json"
	ErrCodeValidation       = "validation_failed"
	ErrCodeHabitNotFound    = "habit_not_found"
	ErrCodeEntryNotFound    = "entry_not_found"
	ErrCodeEntryExists      = "entry_exists"
	ErrCodeInternal         = "internal_error"
	ErrCodeInvalidHabitName = "invalid_habit_name"
	ErrCodeInvalidDate      = "invalid_date"
	ErrCodeSaveFailed       = "save_failed"
	ErrCodeAuthDenied       = "auth_denied"
	ErrCodeAuthFailed       = "auth_failed"
	ErrCodeInvalidState     = "invalid_state"
	ErrCodeUnknown          = "unknown_error"
	ErrCodeUnauthorized     = "unauthorized"
)

// Success Codes
const (
	SuccessCodeHabitCreated = "habit_created"
	SuccessCodeHabitRenamed = "habit_renamed"
	SuccessCodeHabitDeleted = "habit_deleted"
	SuccessCodeEntryAdded   = "entry_added"
	SuccessCodeEntryRemoved = "entry_removed"
	SuccessCodeSignedOut    = "signed_out"
	SuccessCodeAlreadyDone  = "already_done"
)

// ErrorMessages maps error codes to user-friendly messages
var ErrorMessages = map[string]string{
	ErrCodeInvalidJSON:      "Invalid request body.",
	ErrCodeValidation:       "Invalid input.",
	ErrCodeHabitNotFound:    "Habit not found.",
	ErrCodeEntryNotFound:    "Entry not found.",
	ErrCodeEntryExists:      "Entry already exists for this date.",
	ErrCodeInternal:         "Something went wrong. Please try again.",
	ErrCodeInvalidHabitName: "Habit name must be between 1 and 50 characters.",
	ErrCodeInvalidDate:      "Invalid date.",
	ErrCodeSaveFailed:       "Failed to save your changes. Please try again.",
	ErrCodeAuthDenied:       "Sign-in was cancelled.",
	ErrCodeAuthFailed:       "Sign-in failed. Please try again.",
	ErrCodeInvalidState:     "Your sign-in link expired. Please try again.",
	ErrCodeUnknown:          "An unknown error occurred.",
	ErrCodeUnauthorized:     "You must be signed in to perform this action.",
}

// SuccessMessages maps success codes to user-friendly messages
var SuccessMessages = map[string]string{
	SuccessCodeHabitCreated: "Habit created.",
	SuccessCodeHabitRenamed: "Habit renamed.",
	SuccessCodeHabitDeleted: "Habit deleted.",
	SuccessCodeEntryAdded:   "Day marked as done.",
	SuccessCodeEntryRemoved: "Day unmarked.",
	SuccessCodeSignedOut:    "You have been signed out.",
	SuccessCodeAlreadyDone:  "Day was already marked as done.",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return ErrorMessages[ErrCodeUnknown]
}

// GetSuccessMessage returns the message for a given success code
func GetSuccessMessage(code string) string {
	if msg, ok := SuccessMessages[code]; ok {
		return msg
	}
	return ""
}
