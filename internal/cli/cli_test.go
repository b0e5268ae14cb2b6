package cli

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/belphemur/habit-tracker/internal/constants"
	"github.com/belphemur/habit-tracker/internal/habits"
	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)

func setupTestContext(t *testing.T) (*Context, *habits.MockRemote, *bytes.Buffer) {
	t.Helper()
	remote := habits.NewMockRemote(time.UTC)
	out := &bytes.Buffer{}
	ctx := &Context{
		Ctrl:    habits.New(remote, habits.Options{Location: time.UTC}),
		Session: habits.Session{UserID: "u1", Token: "tok"},
		Out:     out,
		Timeout: time.Second,
		Now:     func() time.Time { return testNow },
	}
	return ctx, remote, out
}

func TestListCmd(t *testing.T) {
	ctx, remote, out := setupTestContext(t)

	require.NoError(t, (&ListCmd{}).Run(ctx))
	assert.Equal(t, "No habits yet\n", out.String())

	read := remote.SeedHabit("u1", "Read")
	remote.SeedEntry(read.ID, testNow)
	remote.SeedEntry(read.ID, testNow.AddDate(0, 0, -1))
	run := remote.SeedHabit("u1", "Run")
	remote.SeedHabit("someone-else", "Hidden")

	out.Reset()
	require.NoError(t, (&ListCmd{}).Run(ctx))
	assert.Contains(t, out.String(), "[x] "+read.ID+"  Read (2 days)")
	assert.Contains(t, out.String(), "[ ] "+run.ID+"  Run (0 days)")
	assert.NotContains(t, out.String(), "Hidden")
}

func TestListCmd_LoadFailure(t *testing.T) {
	ctx, remote, _ := setupTestContext(t)
	remote.FailNext(habits.MethodListHabits, &models.RemoteError{Kind: models.ErrTransient, Status: http.StatusBadGateway})

	err := (&ListCmd{}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransient)
}

func TestAddRenameRm(t *testing.T) {
	ctx, remote, out := setupTestContext(t)

	require.NoError(t, (&AddCmd{Name: "Read"}).Run(ctx))
	assert.Contains(t, out.String(), `Created habit "Read"`)
	list := ctx.Ctrl.Habits()
	require.Len(t, list, 1)
	id := list[0].ID

	out.Reset()
	require.NoError(t, (&RenameCmd{ID: id, Name: "Read books"}).Run(ctx))
	assert.Contains(t, out.String(), `Renamed habit `+id+` to "Read books"`)

	out.Reset()
	require.NoError(t, (&RmCmd{ID: id}).Run(ctx))
	assert.Equal(t, "Deleted habit "+id+"\n", out.String())
	assert.Empty(t, ctx.Ctrl.Habits())
	assert.Equal(t, 1, remote.Calls(habits.MethodDeleteHabit))
}

func TestAddCmd_InvalidName(t *testing.T) {
	ctx, remote, _ := setupTestContext(t)

	err := (&AddCmd{Name: ""}).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, remote.TotalCalls())
}

func TestRmCmd_NotFound(t *testing.T) {
	ctx, _, _ := setupTestContext(t)

	err := (&RmCmd{ID: "missing"}).Run(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestToggleCmd(t *testing.T) {
	ctx, remote, out := setupTestContext(t)
	habit := remote.SeedHabit("u1", "Read")

	require.NoError(t, (&ToggleCmd{ID: habit.ID}).Run(ctx))
	assert.Equal(t, "Read on 2024-01-17: done (created)\n", out.String())
	assert.Equal(t, 1, remote.EntryCount(habit.ID, testNow))

	out.Reset()
	require.NoError(t, (&ToggleCmd{ID: habit.ID, Date: "2024-01-17"}).Run(ctx))
	assert.Equal(t, "Read on 2024-01-17: not done (deleted)\n", out.String())
	assert.Zero(t, remote.EntryCount(habit.ID, testNow))
}

func TestToggleCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		date    string
		wantErr error
	}{
		{name: "invalid date", id: "", date: "yesterday", wantErr: models.ErrValidation},
		{name: "unknown habit", id: "missing", date: "2024-01-10", wantErr: models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, _ := setupTestContext(t)
			err := (&ToggleCmd{ID: tt.id, Date: tt.date}).Run(ctx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestShowCmd(t *testing.T) {
	ctx, remote, out := setupTestContext(t)
	habit := remote.SeedHabit("u1", "Read")
	remote.SeedEntry(habit.ID, testNow)

	require.NoError(t, (&ShowCmd{ID: habit.ID, View: constants.ViewModeMonth}).Run(ctx))
	assert.Contains(t, out.String(), "Read")
	assert.Contains(t, out.String(), "January 2024")
	assert.Equal(t, 17, strings.Count(out.String(), "■"))

	out.Reset()
	require.NoError(t, (&ShowCmd{ID: habit.ID, View: constants.ViewModeYear}).Run(ctx))
	assert.Contains(t, out.String(), "Last 365 days")
	assert.Equal(t, 365, strings.Count(out.String(), "■"))
}

func TestReferenceLocation(t *testing.T) {
	tests := []struct {
		name     string
		server   string
		override string
		want     string
		wantErr  bool
	}{
		{name: "server timezone", server: "America/New_York", want: "America/New_York"},
		{name: "matching override", server: "Europe/Paris", override: "Europe/Paris", want: "Europe/Paris"},
		{name: "conflicting override", server: "UTC", override: "America/New_York", wantErr: true},
		{name: "old server without timezone", override: "Asia/Tokyo", want: "Asia/Tokyo"},
		{name: "nothing given", want: "UTC"},
		{name: "invalid server timezone", server: "Not/AZone", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ReferenceLocation(tt.server, tt.override)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc.String())
		})
	}
}

func TestToggleCmd_ServerTimezoneUnmarksExistingDay(t *testing.T) {
	serverLoc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	remote := habits.NewMockRemote(serverLoc)
	habit := remote.SeedHabit("u1", "Read")
	remote.SeedEntry(habit.ID, time.Date(2024, 3, 5, 0, 0, 0, 0, serverLoc))

	loc, err := ReferenceLocation(serverLoc.String(), "")
	require.NoError(t, err)
	out := &bytes.Buffer{}
	ctx := &Context{
		Ctrl:    habits.New(remote, habits.Options{Location: loc}),
		Session: habits.Session{UserID: "u1", Token: "tok"},
		Out:     out,
		Timeout: time.Second,
		Now:     func() time.Time { return testNow },
	}

	require.NoError(t, (&ToggleCmd{ID: habit.ID, Date: "2024-03-05"}).Run(ctx))
	assert.Equal(t, "Read on 2024-03-05: not done (deleted)\n", out.String())
	assert.Zero(t, remote.EntryCount(habit.ID, time.Date(2024, 3, 5, 12, 0, 0, 0, serverLoc)))
	assert.Zero(t, remote.Calls(habits.MethodCreateEntry))
}
