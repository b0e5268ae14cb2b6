package identity

import (
	"context"

	"github.com/belphemur/habit-tracker/internal/models"
)

type contextKey struct{}

// WithSession attaches the authenticated session to ctx
func WithSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// SessionFromContext returns the session attached by WithSession, if any
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(contextKey{}).(*models.Session)
	return session, ok && session != nil
}

// UserFromContext returns the signed-in user
func UserFromContext(ctx context.Context) (models.User, bool) {
	session, ok := SessionFromContext(ctx)
	if !ok {
		return models.User{}, false
	}
	return session.User, true
}
