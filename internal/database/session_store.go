package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
)

// sessionTokenBytes is the amount of randomness in a session token
const sessionTokenBytes = 32

// SessionStore handles sign-in sessions in SQLite
type SessionStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewSessionStore creates a new session store
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{
		db:     db.Conn(),
		logger: logging.GetLogger("session-store"),
		now:    time.Now,
	}
}

func newSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create opens a session for user valid for ttl
func (s *SessionStore) Create(ctx context.Context, user models.User, ttl time.Duration) (*models.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	session := &models.Session{
		Token:     token,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (token, user_id, email, name, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)`, session.Token, user.ID, user.Email, user.Name,
		formatTimestamp(session.CreatedAt), formatTimestamp(session.ExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug().Str("user_id", user.ID).Time("expires_at", session.ExpiresAt).Msg("Session created")
	return session, nil
}

// Get returns the session for token. Unknown and expired sessions are
// reported as models.ErrNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, fmt.Errorf("empty session token: %w", models.ErrNotFound)
	}

	var session models.Session
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx, `
SELECT token, user_id, email, name, created_at, expires_at
FROM sessions
WHERE token = ?`, token).Scan(&session.Token, &session.User.ID, &session.User.Email, &session.User.Name, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session: %w", err)
	}

	if session.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if session.ExpiresAt, err = parseTimestamp(expiresAt); err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, fmt.Errorf("session expired: %w", models.ErrNotFound)
	}
	return &session, nil
}

// Delete removes the session. Deleting an unknown session is not an error.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes every session expired at now and returns how many were removed
func (s *SessionStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTimestamp(now))
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if purged > 0 {
		s.logger.Info().Int64("purged", purged).Msg("Purged expired sessions")
	}
	return purged, nil
}
