package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getPage fetches a page authenticated with the session cookie
func (e *testEnv) getPage(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: constants.SessionCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func TestLanding(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("anonymous visitor sees landing page", func(t *testing.T) {
		w := env.getPage("/", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Get started")
		assert.Contains(t, w.Body.String(), `href="/sign-in"`)
	})

	t.Run("error code is shown", func(t *testing.T) {
		w := env.getPage("/?error="+ErrCodeAuthFailed, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), GetErrorMessage(ErrCodeAuthFailed))
	})

	t.Run("signed in user goes to dashboard", func(t *testing.T) {
		w := env.getPage("/", env.signIn(t, "u1"))
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("unknown path is not the landing page", func(t *testing.T) {
		w := env.getPage("/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDashboard_RequiresSession(t *testing.T) {
	env := setupTestEnv(t)

	w := env.getPage("/dashboard", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))

	w = env.postForm("/dashboard/habits", "", url.Values{"name": {"Read"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?error="+ErrCodeUnauthorized, w.Header().Get("Location"))
}

func TestDashboard_RendersHeatmaps(t *testing.T) {
	env := setupTestEnv(t)
	token := env.signIn(t, "u1")
	ctx := context.Background()

	habit, err := env.store.CreateHabit(ctx, "u1", "Read")
	require.NoError(t, err)
	_, err = env.store.CreateEntry(ctx, "u1", habit.ID, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = env.store.CreateHabit(ctx, "u2", "Someone else's habit")
	require.NoError(t, err)

	t.Run("year view by default", func(t *testing.T) {
		w := env.getPage("/dashboard", token)
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()

		assert.Contains(t, body, "Read")
		assert.NotContains(t, body, "Someone else")
		assert.Contains(t, body, "Last 365 days (Jan 18, 2023 - Jan 17, 2024)")
		assert.Contains(t, body, "1 days done")
		assert.Equal(t, 365, strings.Count(body, `name="date"`), "one toggle form per real day")
		assert.Equal(t, 1, strings.Count(body, "cell active"))
		assert.Contains(t, body, `/dashboard?month=`+habit.ID)
	})

	t.Run("month view for listed habit", func(t *testing.T) {
		w := env.getPage("/dashboard?month="+habit.ID, token)
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()

		assert.Contains(t, body, "January 2024")
		assert.Equal(t, 17, strings.Count(body, `name="date"`))
		assert.Contains(t, body, "Show year")
		assert.Contains(t, body, `name="month" value="`+habit.ID+`"`)
	})

	t.Run("empty dashboard", func(t *testing.T) {
		w := env.getPage("/dashboard", env.signIn(t, "newcomer"))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "No habits yet")
	})
}

func TestDashboard_Mutations(t *testing.T) {
	env := setupTestEnv(t)
	token := env.signIn(t, "u1")
	ctx := context.Background()

	w := env.postForm("/dashboard/habits", token, url.Values{"name": {"Read"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard?success="+SuccessCodeHabitCreated, w.Header().Get("Location"))

	habits, err := env.store.ListHabits(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, habits, 1)
	id := habits[0].ID

	t.Run("invalid name", func(t *testing.T) {
		w := env.postForm("/dashboard/habits", token, url.Values{"name": {""}})
		assert.Equal(t, "/dashboard?error="+ErrCodeInvalidHabitName, w.Header().Get("Location"))
	})

	t.Run("toggle adds then removes and keeps month views", func(t *testing.T) {
		form := url.Values{"date": {"2024-01-05"}, "month": {id}}
		w := env.postForm("/dashboard/habits/"+id+"/toggle", token, form)
		assert.Equal(t, "/dashboard?month="+id+"&success="+SuccessCodeEntryAdded, w.Header().Get("Location"))

		entries, err := env.store.ListEntries(ctx, "u1", id)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		w = env.postForm("/dashboard/habits/"+id+"/toggle", token, form)
		assert.Equal(t, "/dashboard?month="+id+"&success="+SuccessCodeEntryRemoved, w.Header().Get("Location"))

		entries, err = env.store.ListEntries(ctx, "u1", id)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("toggle with invalid date", func(t *testing.T) {
		w := env.postForm("/dashboard/habits/"+id+"/toggle", token, url.Values{"date": {"soon"}})
		assert.Equal(t, "/dashboard?error="+ErrCodeInvalidDate, w.Header().Get("Location"))
	})

	t.Run("other users cannot touch the habit", func(t *testing.T) {
		intruder := env.signIn(t, "u2")
		for _, action := range []string{"toggle", "rename", "delete"} {
			form := url.Values{"date": {"2024-01-05"}, "name": {"Mine"}}
			w := env.postForm("/dashboard/habits/"+id+"/"+action, intruder, form)
			assert.Equal(t, "/dashboard?error="+ErrCodeHabitNotFound, w.Header().Get("Location"), action)
		}
	})

	t.Run("rename", func(t *testing.T) {
		w := env.postForm("/dashboard/habits/"+id+"/rename", token, url.Values{"name": {"Read more"}})
		assert.Equal(t, "/dashboard?success="+SuccessCodeHabitRenamed, w.Header().Get("Location"))

		h, err := env.store.GetHabit(ctx, "u1", id)
		require.NoError(t, err)
		assert.Equal(t, "Read more", h.Name)
	})

	t.Run("delete", func(t *testing.T) {
		w := env.postForm("/dashboard/habits/"+id+"/delete", token, nil)
		assert.Equal(t, "/dashboard?success="+SuccessCodeHabitDeleted, w.Header().Get("Location"))

		habits, err := env.store.ListHabits(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, habits)
	})
}

func TestToggleViewURL(t *testing.T) {
	tests := []struct {
		name       string
		openMonths []string
		habitID    string
		expected   string
	}{
		{"opens month", nil, "a", "/dashboard?month=a"},
		{"keeps others open", []string{"b"}, "a", "/dashboard?month=b&month=a"},
		{"closes month", []string{"a"}, "a", "/dashboard"},
		{"closes one of many", []string{"a", "b"}, "a", "/dashboard?month=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, toggleViewURL(tt.openMonths, tt.habitID))
		})
	}
}

func TestRedirectForError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKey  string
		wantCode string
	}{
		{name: "validation", err: &models.ValidationError{Field: "name", Message: "too long"}, wantKey: "error", wantCode: ErrCodeInvalidHabitName},
		{name: "not found", err: fmt.Errorf("habit: %w", models.ErrNotFound), wantKey: "error", wantCode: ErrCodeHabitNotFound},
		{name: "conflict is nothing to do", err: fmt.Errorf("entry: %w", models.ErrConflict), wantKey: "success", wantCode: SuccessCodeAlreadyDone},
		{name: "unexpected", err: errors.New("disk full"), wantKey: "error", wantCode: ErrCodeSaveFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"month": {"h1"}}
			req := httptest.NewRequest(http.MethodPost, "/dashboard/habits/h1/toggle", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			require.NoError(t, req.ParseForm())
			w := httptest.NewRecorder()

			redirectForError(w, req, zerolog.Nop(), tt.err)

			assert.Equal(t, http.StatusSeeOther, w.Code)
			loc, err := url.Parse(w.Header().Get("Location"))
			require.NoError(t, err)
			assert.Equal(t, "/dashboard", loc.Path)
			assert.Equal(t, tt.wantCode, loc.Query().Get(tt.wantKey))
			assert.Equal(t, []string{"h1"}, loc.Query()["month"])
		})
	}
}
