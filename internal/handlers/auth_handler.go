package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/identity"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/belphemur/habit-tracker/internal/signals"
)

// stateCookieTTL bounds how long a sign-in round trip to the provider may take
const stateCookieTTL = 10 * time.Minute

const (
	flowSignIn = "in"
	flowSignUp = "up"
)

// Authenticator runs the identity provider side of sign-in
type Authenticator interface {
	AuthCodeURL(state string, signUp bool) string
	Exchange(ctx context.Context, code string) (*models.User, error)
}

// AuthHandler manages sign-in, sign-up, the OAuth callback and sign-out
type AuthHandler struct {
	*BaseHandler
	Provider Authenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(baseHandler *BaseHandler, provider Authenticator) *AuthHandler {
	return &AuthHandler{
		BaseHandler: baseHandler,
		Provider:    provider,
	}
}

// RegisterRoutes registers authentication related routes
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /sign-in", h.handleSignIn)
	mux.HandleFunc("GET /sign-up", h.handleSignUp)
	mux.HandleFunc("GET /auth/callback", h.handleCallback)
	mux.HandleFunc("POST /sign-out", h.handleSignOut)
	mux.HandleFunc("GET /api/session", h.RequireAPISession(h.handleSession))
}

func (h *AuthHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, flowSignIn)
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	h.startFlow(w, r, flowSignUp)
}

// startFlow redirects to the provider with a fresh state remembered in a cookie
func (h *AuthHandler) startFlow(w http.ResponseWriter, r *http.Request, flow string) {
	handlerLogger := h.logger.With().Str("handler", "startFlow").Str("flow", flow).Logger()

	if _, ok := h.CurrentSession(r, handlerLogger); ok {
		handlerLogger.Debug().Msg("Already signed in, skipping provider")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	state, err := identity.NewState()
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to generate oauth state")
		http.Redirect(w, r, "/?error="+ErrCodeAuthFailed, http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     constants.OAuthStateCookieName,
		Value:    state + "." + flow,
		Path:     "/auth/callback",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.Provider.AuthCodeURL(state, flow == flowSignUp)
	handlerLogger.Debug().Msg("Redirecting to identity provider")
	http.Redirect(w, r, url, http.StatusFound)
}

// handleCallback completes the OAuth flow and opens a session
func (h *AuthHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleCallback").Logger()
	handlerLogger.Info().Msg("Handling OAuth callback")

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		handlerLogger.Warn().Str("provider_error", providerErr).Msg("Provider denied sign-in")
		http.Redirect(w, r, "/?error="+ErrCodeAuthDenied, http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(constants.OAuthStateCookieName)
	if err != nil {
		handlerLogger.Warn().Msg("Missing oauth state cookie")
		http.Redirect(w, r, "/?error="+ErrCodeInvalidState, http.StatusSeeOther)
		return
	}
	state, flow, _ := strings.Cut(cookie.Value, ".")
	// Consume the state whatever happens next
	http.SetCookie(w, &http.Cookie{Name: constants.OAuthStateCookieName, Path: "/auth/callback", MaxAge: -1})

	if state == "" || query.Get("state") != state {
		handlerLogger.Warn().Msg("OAuth state mismatch")
		http.Redirect(w, r, "/?error="+ErrCodeInvalidState, http.StatusSeeOther)
		return
	}

	user, err := h.Provider.Exchange(r.Context(), query.Get("code"))
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to resolve signed-in user")
		http.Redirect(w, r, "/?error="+ErrCodeAuthFailed, http.StatusSeeOther)
		return
	}

	session, err := h.Sessions.Create(r.Context(), *user, h.Config.Auth.SessionTTL)
	if err != nil {
		handlerLogger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to create session")
		http.Redirect(w, r, "/?error="+ErrCodeAuthFailed, http.StatusSeeOther)
		return
	}
	http.SetCookie(w, h.sessionCookie(session.Token, int(h.Config.Auth.SessionTTL.Seconds())))

	signals.EmitUserSignedIn(r.Context(), signals.UserSignedInData{
		UserID:  user.ID,
		Email:   user.Email,
		NewUser: flow == flowSignUp,
	})

	handlerLogger.Info().Str("user_id", user.ID).Msg("User signed in")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleSignOut").Logger()

	if token := sessionToken(r); token != "" {
		if err := h.Sessions.Delete(r.Context(), token); err != nil {
			handlerLogger.Error().Err(err).Msg("Failed to delete session")
		}
	}
	http.SetCookie(w, h.sessionCookie("", -1))

	handlerLogger.Info().Msg("User signed out")
	http.Redirect(w, r, "/?success="+SuccessCodeSignedOut, http.StatusSeeOther)
}

// handleSession returns the current session, used by habitctl to check its token
func (h *AuthHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		// RequireAPISession guarantees a session, this only guards misuse
		respondError(w, h.logger, errors.New("session missing from context"), ErrCodeUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionInfo{
		Session:  *session,
		Timezone: h.Store.Location().String(),
	})
}
