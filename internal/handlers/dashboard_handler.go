package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/heatmap"
	"github.com/belphemur/habit-tracker/internal/identity"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
)

// DashboardHandler serves the landing page and the server-rendered habit dashboard
type DashboardHandler struct {
	*BaseHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(baseHandler *BaseHandler) *DashboardHandler {
	return &DashboardHandler{BaseHandler: baseHandler}
}

// RegisterRoutes registers the landing page and dashboard routes
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleLanding)
	mux.HandleFunc("GET /dashboard", h.RequirePageSession(h.handleDashboard))
	mux.HandleFunc("POST /dashboard/habits", h.RequirePageSession(h.handleCreate))
	mux.HandleFunc("POST /dashboard/habits/{id}/rename", h.RequirePageSession(h.handleRename))
	mux.HandleFunc("POST /dashboard/habits/{id}/delete", h.RequirePageSession(h.handleDelete))
	mux.HandleFunc("POST /dashboard/habits/{id}/toggle", h.RequirePageSession(h.handleToggle))
}

// HeatmapCell is one day square of a rendered heatmap
type HeatmapCell struct {
	Placeholder bool
	Date        string
	Title       string
	Active      bool
}

// HeatmapRow is one weekday across every week of the grid
type HeatmapRow struct {
	Label string
	Cells []HeatmapCell
}

// HabitCard is a habit with its heatmap, ready for the template
type HabitCard struct {
	ID            string
	Name          string
	Mode          string
	Title         string
	ToggleViewURL string
	ActiveDays    int
	MonthLabels   []string
	Rows          []HeatmapRow
}

// DashboardPageData contains data for the dashboard template
type DashboardPageData struct {
	BasePageData
	Habits []HabitCard
	// OpenMonths lists the habits shown in the non-default view, kept across form posts
	OpenMonths []string
}

// handleLanding shows the landing page or sends signed-in users to their dashboard
func (h *DashboardHandler) handleLanding(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleLanding").Logger()

	session, ok := h.CurrentSession(r, handlerLogger)
	if ok && r.URL.Query().Get("error") == "" {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := h.NewBasePageData(r, session)
	data.ErrorMessage, data.SuccessMessage = processMessages(r, handlerLogger)
	h.RenderTemplate(w, "landing.html", data)
}

func (h *DashboardHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	handlerLogger := h.logger.With().Str("handler", "handleDashboard").Logger()
	session, _ := identity.SessionFromContext(r.Context())

	habits, err := h.Store.ListHabits(r.Context(), session.User.ID)
	if err != nil {
		handlerLogger.Error().Err(err).Msg("Failed to list habits")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	openMonths := r.URL.Query()["month"]
	data := DashboardPageData{
		BasePageData: h.NewBasePageData(r, session),
		Habits:       make([]HabitCard, 0, len(habits)),
		OpenMonths:   openMonths,
	}
	data.ErrorMessage, data.SuccessMessage = processMessages(r, handlerLogger)

	today := h.now()
	for _, habit := range habits {
		// a listed habit shows the other view than the configured default
		mode := h.Config.Heatmap.DefaultView
		if slices.Contains(openMonths, habit.ID) {
			mode = mode.Toggle()
		}
		card, err := h.buildCard(habit, mode, today, openMonths)
		if err != nil {
			handlerLogger.Error().Err(err).Str("habit_id", habit.ID).Msg("Failed to build heatmap")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		data.Habits = append(data.Habits, card)
	}

	handlerLogger.Debug().Int("habit_count", len(data.Habits)).Msg("Rendering dashboard template")
	h.RenderTemplate(w, "dashboard.html", data)
}

// buildCard lays the heatmap grid out weekday by weekday, the way it is drawn
func (h *DashboardHandler) buildCard(habit models.HabitWithEntries, mode constants.ViewMode, today time.Time, openMonths []string) (HabitCard, error) {
	view, err := heatmap.NewView(habit.ID, habit.EntryDates(), heatmap.ViewOptions{
		Mode:     mode,
		Today:    today,
		Location: h.Store.Location(),
	})
	if err != nil {
		return HabitCard{}, err
	}

	grid := view.Grid()
	card := HabitCard{
		ID:            habit.ID,
		Name:          habit.Name,
		Mode:          mode.String(),
		Title:         view.Title(),
		ToggleViewURL: toggleViewURL(openMonths, habit.ID),
		Rows:          make([]HeatmapRow, heatmap.DaysPerWeek),
	}
	if mode == constants.ViewModeYear {
		card.MonthLabels = view.MonthLabels()
	}

	for day := 0; day < heatmap.DaysPerWeek; day++ {
		row := HeatmapRow{Label: heatmap.DayLabels[day], Cells: make([]HeatmapCell, 0, len(grid.Weeks))}
		for _, week := range grid.Weeks {
			cell := week[day]
			if cell.IsPlaceholder() {
				row.Cells = append(row.Cells, HeatmapCell{Placeholder: true})
				continue
			}
			active := view.IsActive(cell)
			if active {
				card.ActiveDays++
			}
			row.Cells = append(row.Cells, HeatmapCell{
				Date:   cell.Date.Format(constants.DateFormat),
				Title:  cell.Date.Format("Mon, Jan 2, 2006"),
				Active: active,
			})
		}
		card.Rows[day] = row
	}
	return card, nil
}

// toggleViewURL returns the dashboard URL with habitID's view mode flipped
func toggleViewURL(openMonths []string, habitID string) string {
	next := make([]string, 0, len(openMonths)+1)
	found := false
	for _, id := range openMonths {
		if id == habitID {
			found = true
			continue
		}
		next = append(next, id)
	}
	if !found {
		next = append(next, habitID)
	}
	if len(next) == 0 {
		return "/dashboard"
	}
	return "/dashboard?" + url.Values{"month": next}.Encode()
}

// redirectBack returns to the dashboard with a message code, keeping the open month views
func redirectBack(w http.ResponseWriter, r *http.Request, key, code string) {
	q := url.Values{}
	if months := r.PostForm["month"]; len(months) > 0 {
		q["month"] = months
	}
	q.Set(key, code)
	http.Redirect(w, r, "/dashboard?"+q.Encode(), http.StatusSeeOther)
}

// redirectForError picks the message code of a failed mutation
func redirectForError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		redirectBack(w, r, "error", ErrCodeInvalidHabitName)
	case errors.Is(err, models.ErrNotFound):
		redirectBack(w, r, "error", ErrCodeHabitNotFound)
	case errors.Is(err, models.ErrConflict):
		// Another request marked the day first, there is nothing left to do
		redirectBack(w, r, "success", SuccessCodeAlreadyDone)
	default:
		logger.Error().Err(err).Msg("Dashboard mutation failed")
		redirectBack(w, r, "error", ErrCodeSaveFailed)
	}
}

func (h *DashboardHandler) parseForm(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) bool {
	if err := r.ParseForm(); err != nil {
		logger.Error().Err(err).Msg("Failed to parse form")
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *DashboardHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	handlerLogger := h.logger.With().Str("handler", "handleCreate").Str("user_id", session.User.ID).Logger()
	if !h.parseForm(w, r, handlerLogger) {
		return
	}

	habit, err := h.Store.CreateHabit(r.Context(), session.User.ID, r.PostForm.Get("name"))
	if err != nil {
		redirectForError(w, r, handlerLogger, err)
		return
	}
	handlerLogger.Info().Str("habit_id", habit.ID).Msg("Habit created from dashboard")
	redirectBack(w, r, "success", SuccessCodeHabitCreated)
}

func (h *DashboardHandler) handleRename(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	handlerLogger := h.logger.With().Str("handler", "handleRename").Str("user_id", session.User.ID).Logger()
	if !h.parseForm(w, r, handlerLogger) {
		return
	}

	if _, err := h.Store.RenameHabit(r.Context(), session.User.ID, r.PathValue("id"), r.PostForm.Get("name")); err != nil {
		redirectForError(w, r, handlerLogger, err)
		return
	}
	redirectBack(w, r, "success", SuccessCodeHabitRenamed)
}

func (h *DashboardHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	handlerLogger := h.logger.With().Str("handler", "handleDelete").Str("user_id", session.User.ID).Logger()
	if !h.parseForm(w, r, handlerLogger) {
		return
	}

	if err := h.Store.DeleteHabit(r.Context(), session.User.ID, r.PathValue("id")); err != nil {
		redirectForError(w, r, handlerLogger, err)
		return
	}
	redirectBack(w, r, "success", SuccessCodeHabitDeleted)
}

// handleToggle flips the clicked day of a habit inside one store transaction
func (h *DashboardHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	handlerLogger := h.logger.With().Str("handler", "handleToggle").Str("user_id", session.User.ID).Logger()
	if !h.parseForm(w, r, handlerLogger) {
		return
	}

	date, err := models.ParseEntryDate(r.PostForm.Get("date"), h.Store.Location())
	if err != nil {
		handlerLogger.Warn().Err(err).Msg("Invalid toggle date")
		redirectBack(w, r, "error", ErrCodeInvalidDate)
		return
	}

	_, created, err := h.Store.ToggleEntry(r.Context(), session.User.ID, r.PathValue("id"), date)
	if err != nil {
		redirectForError(w, r, handlerLogger, err)
		return
	}
	if created {
		redirectBack(w, r, "success", SuccessCodeEntryAdded)
		return
	}
	redirectBack(w, r, "success", SuccessCodeEntryRemoved)
}
