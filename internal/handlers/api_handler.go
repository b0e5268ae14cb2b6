package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/belphemur/habit-tracker/internal/identity"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// APIHandler serves the JSON habit and entry API
type APIHandler struct {
	*BaseHandler
}

// NewAPIHandler creates a new JSON API handler
func NewAPIHandler(baseHandler *BaseHandler) *APIHandler {
	return &APIHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers the habit and entry API routes
func (h *APIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/habits", h.RequireAPISession(h.handleListHabits))
	mux.HandleFunc("POST /api/habits", h.RequireAPISession(h.handleCreateHabit))
	mux.HandleFunc("GET /api/habits/{id}", h.RequireAPISession(h.handleGetHabit))
	mux.HandleFunc("PATCH /api/habits/{id}", h.RequireAPISession(h.handleUpdateHabit))
	mux.HandleFunc("DELETE /api/habits/{id}", h.RequireAPISession(h.handleDeleteHabit))
	mux.HandleFunc("GET /api/habits/{id}/entries", h.RequireAPISession(h.handleListEntries))
	mux.HandleFunc("POST /api/habits/{id}/entries", h.RequireAPISession(h.handleCreateEntry))
	mux.HandleFunc("DELETE /api/habits/{id}/entries/{entryId}", h.RequireAPISession(h.handleDeleteEntry))
}

type habitRequest struct {
	Name *string `json:"name"`
}

type entryRequest struct {
	Date string `json:"date"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// requestLogger returns a logger carrying the handler name and the signed-in user
func (h *APIHandler) requestLogger(r *http.Request, handler string) (zerolog.Logger, models.User) {
	user, _ := identity.UserFromContext(r.Context())
	logger := h.logger.With().Str("handler", handler).Str("user_id", user.ID).Logger()
	return logger, user
}

// decodeBody reads a JSON body into v. It writes the 400 response itself and
// reports false when the body is unusable.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid JSON body", nil)
		return false
	}
	return true
}

// respondError maps store errors to API responses
func respondError(w http.ResponseWriter, logger zerolog.Logger, err error, notFoundCode string) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid input", map[string]string{verr.Field: verr.Message})
	case errors.Is(err, models.ErrNotFound):
		message := "Habit not found"
		if notFoundCode == ErrCodeEntryNotFound {
			message = "Entry not found"
		}
		writeError(w, http.StatusNotFound, notFoundCode, message, nil)
	case errors.Is(err, models.ErrConflict):
		writeError(w, http.StatusConflict, ErrCodeEntryExists, "Entry already exists for this date", nil)
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
	}
}

func (h *APIHandler) handleListHabits(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleListHabits")

	habits, err := h.Store.ListHabits(r.Context(), user.ID)
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, habits)
}

func (h *APIHandler) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleCreateHabit")

	var req habitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	habit, err := h.Store.CreateHabit(r.Context(), user.ID, name)
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	logger.Info().Str("habit_id", habit.ID).Msg("Habit created")
	writeJSON(w, http.StatusCreated, habit)
}

func (h *APIHandler) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleGetHabit")

	habit, err := h.Store.GetHabit(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *APIHandler) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleUpdateHabit")
	id := r.PathValue("id")

	var req habitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Name is the only patchable field. An empty patch returns the habit unchanged.
	if req.Name == nil {
		habit, err := h.Store.GetHabit(r.Context(), user.ID, id)
		if err != nil {
			respondError(w, logger, err, ErrCodeHabitNotFound)
			return
		}
		writeJSON(w, http.StatusOK, habit.Habit)
		return
	}

	habit, err := h.Store.RenameHabit(r.Context(), user.ID, id, *req.Name)
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

func (h *APIHandler) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleDeleteHabit")

	if err := h.Store.DeleteHabit(r.Context(), user.ID, r.PathValue("id")); err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *APIHandler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleListEntries")

	entries, err := h.Store.ListEntries(r.Context(), user.ID, r.PathValue("id"))
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleCreateEntry")

	var req entryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	date, err := models.ParseEntryDate(req.Date, h.Store.Location())
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}

	entry, err := h.Store.CreateEntry(r.Context(), user.ID, r.PathValue("id"), date)
	if err != nil {
		respondError(w, logger, err, ErrCodeHabitNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *APIHandler) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	logger, user := h.requestLogger(r, "handleDeleteEntry")

	err := h.Store.DeleteEntry(r.Context(), user.ID, r.PathValue("id"), r.PathValue("entryId"))
	if err != nil {
		code := ErrCodeEntryNotFound
		// a habit the user does not own reports as a missing habit
		if _, herr := h.Store.GetHabit(r.Context(), user.ID, r.PathValue("id")); errors.Is(herr, models.ErrNotFound) {
			code = ErrCodeHabitNotFound
		}
		respondError(w, logger, err, code)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
