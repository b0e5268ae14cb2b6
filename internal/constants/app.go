// Package constants provides shared constants for the habit-tracker application
package constants

// AppName is the display name used in page titles and the CLI banner
const AppName = "Habit Tracker"

// SessionCookieName is the cookie holding the session token of a signed-in user
const SessionCookieName = "habit_session"

// OAuthStateCookieName is the short-lived cookie holding the OAuth state during sign-in
const OAuthStateCookieName = "habit_oauth_state"

// DateFormat is the calendar-day key used for normalized entry dates
const DateFormat = "2006-01-02"
