package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/belphemur/habit-tracker/internal/config"
	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/database"
	"github.com/belphemur/habit-tracker/internal/identity"
	"github.com/belphemur/habit-tracker/internal/logging"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// BaseHandler contains common handler functionality
type BaseHandler struct {
	tmpl     *template.Template
	Store    *database.HabitStore
	Sessions *database.SessionStore
	Config   *config.Config
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBaseHandler creates a common base handler with shared components
func NewBaseHandler(cfg *config.Config, store *database.HabitStore, sessions *database.SessionStore) (*BaseHandler, error) {
	logger := logging.GetLogger("base-handler")
	logger.Debug().Msg("Parsing templates")

	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
	}

	// Parse only layout.html initially, pages are parsed into a clone on render
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse templates")
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	logger.Debug().Msg("Templates parsed successfully")

	return &BaseHandler{
		tmpl:     tmpl,
		Store:    store,
		Sessions: sessions,
		Config:   cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RenderTemplate renders a page template inside the layout
func (h *BaseHandler) RenderTemplate(w http.ResponseWriter, name string, data interface{}) {
	h.logger.Debug().Str("template_name", name).Msg("Executing template")

	tmpl, err := h.tmpl.Clone()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to clone template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if _, err = tmpl.ParseFS(templateFS, "templates/"+name); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("Failed to parse page template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("Failed to execute template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sessionToken returns the bearer token of the request, falling back to the session cookie
func sessionToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, token, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(constants.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// CurrentSession resolves the session of the request. Missing, unknown and
// expired sessions all report false.
func (h *BaseHandler) CurrentSession(r *http.Request, logger zerolog.Logger) (*models.Session, bool) {
	if session, ok := identity.SessionFromContext(r.Context()); ok {
		return session, true
	}

	token := sessionToken(r)
	if token == "" {
		logger.Debug().Msg("No session token")
		return nil, false
	}
	session, err := h.Sessions.Get(r.Context(), token)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logger.Error().Err(err).Msg("Failed to look up session")
		} else {
			logger.Debug().Msg("Session not found or expired")
		}
		return nil, false
	}
	return session, true
}

// RequireAPISession rejects requests without a valid session with a 401 JSON body
func (h *BaseHandler) RequireAPISession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.CurrentSession(r, h.logger)
		if !ok {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized", nil)
			return
		}
		next(w, r.WithContext(identity.WithSession(r.Context(), session)))
	}
}

// RequirePageSession sends visitors without a valid session to the sign-in flow
func (h *BaseHandler) RequirePageSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := h.CurrentSession(r, h.logger)
		if !ok {
			if r.Method == http.MethodGet {
				http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
			} else {
				http.Redirect(w, r, "/?error="+ErrCodeUnauthorized, http.StatusSeeOther)
			}
			return
		}
		next(w, r.WithContext(identity.WithSession(r.Context(), session)))
	}
}

// sessionCookie builds the cookie carrying a session token. A negative maxAge clears it.
func (h *BaseHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.Config.Auth.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// errorResponse is the JSON body of every API error
type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := logging.GetLogger("handlers")
		logger.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code, Details: details})
}

// BasePageData contains common data for all pages
type BasePageData struct {
	AppName         string
	CurrentYear     int
	CurrentPath     string
	IsAuthenticated bool
	User            models.User
	ErrorMessage    string
	SuccessMessage  string
}

// NewBasePageData creates a new BasePageData with common fields populated
func (h *BaseHandler) NewBasePageData(r *http.Request, session *models.Session) BasePageData {
	data := BasePageData{
		AppName:     constants.AppName,
		CurrentYear: h.now().Year(),
		CurrentPath: r.URL.Path,
	}
	if session != nil {
		data.IsAuthenticated = true
		data.User = session.User
	}
	return data
}

// processMessages extracts and translates error/success codes from query parameters
func processMessages(r *http.Request, logger zerolog.Logger) (errorMessage, successMessage string) {
	errorCode := r.URL.Query().Get("error")
	successCode := r.URL.Query().Get("success")

	if errorCode != "" {
		errorMessage = GetErrorMessage(errorCode)
		logger.Debug().Str("error_code", errorCode).Msg("Processing error message")
	}
	if successCode != "" {
		successMessage = GetSuccessMessage(successCode)
		logger.Debug().Str("success_code", successCode).Msg("Processing success message")
	}
	return errorMessage, successMessage
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// LogRequests logs method, path, status and duration of every request
func LogRequests(next http.Handler) http.Handler {
	logger := logging.GetLogger("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		event := logger.Info()
		if rec.status >= http.StatusInternalServerError {
			event = logger.Error()
		} else if strings.HasPrefix(r.URL.Path, "/static/") {
			event = logger.Debug()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Handled request")
	})
}
