package habits

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/belphemur/habit-tracker/internal/models"
	"github.com/google/uuid"
)

// Remote method names, used to count calls and inject failures on MockRemote
const (
	MethodListHabits  = "ListHabits"
	MethodCreateHabit = "CreateHabit"
	MethodUpdateHabit = "UpdateHabit"
	MethodDeleteHabit = "DeleteHabit"
	MethodListEntries = "ListEntries"
	MethodCreateEntry = "CreateEntry"
	MethodDeleteEntry = "DeleteEntry"
)

var _ Remote = (*MockRemote)(nil)

// MockRemote is an in-memory Remote for testing. It enforces ownership and the
// one-entry-per-day constraint the way the real store does.
type MockRemote struct {
	mu      sync.Mutex
	loc     *time.Location
	habits  map[string]*models.Habit
	entries map[string][]models.Entry
	calls   map[string]int
	failing map[string][]error

	// BeforeCall, when set, runs at the start of every call outside the lock
	BeforeCall func(method string)
}

// NewMockRemote creates an empty MockRemote normalizing dates in loc
func NewMockRemote(loc *time.Location) *MockRemote {
	if loc == nil {
		loc = time.UTC
	}
	return &MockRemote{
		loc:     loc,
		habits:  make(map[string]*models.Habit),
		entries: make(map[string][]models.Entry),
		calls:   make(map[string]int),
		failing: make(map[string][]error),
	}
}

// FailNext makes the next call of method return err
func (m *MockRemote) FailNext(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[method] = append(m.failing[method], err)
}

// Calls returns how many times method was called
func (m *MockRemote) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods
func (m *MockRemote) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// SeedHabit stores a habit directly, bypassing call accounting
func (m *MockRemote) SeedHabit(userID, name string) models.Habit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertHabit(userID, name)
}

// SeedEntry stores an entry directly, bypassing call accounting
func (m *MockRemote) SeedEntry(habitID string, date time.Time) models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.habits[habitID]
	entry := models.Entry{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    h.UserID,
		Date:      models.StartOfDay(date, m.loc),
		CreatedAt: time.Now(),
	}
	m.entries[habitID] = append(m.entries[habitID], entry)
	return entry
}

// EntryCount returns the number of stored entries of a habit on date's day
func (m *MockRemote) EntryCount(habitID string, date time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.DayKey(date, m.loc)
	count := 0
	for _, e := range m.entries[habitID] {
		if models.DayKey(e.Date, m.loc) == key {
			count++
		}
	}
	return count
}

func (m *MockRemote) insertHabit(userID, name string) models.Habit {
	now := time.Now()
	h := &models.Habit{ID: uuid.NewString(), UserID: userID, Name: name, CreatedAt: now, UpdatedAt: now}
	m.habits[h.ID] = h
	return *h
}

// begin records the call and returns an injected failure, if any.
// It takes the lock and leaves it held on return.
func (m *MockRemote) begin(method string) error {
	if m.BeforeCall != nil {
		m.BeforeCall(method)
	}
	m.mu.Lock()
	m.calls[method]++
	if queued := m.failing[method]; len(queued) > 0 {
		m.failing[method] = queued[1:]
		return queued[0]
	}
	return nil
}

func remoteErr(kind error, status int, format string, args ...any) error {
	return &models.RemoteError{Kind: kind, Status: status, Message: fmt.Sprintf(format, args...)}
}

// ownedHabit must be called with the lock held
func (m *MockRemote) ownedHabit(sess Session, id string) (*models.Habit, error) {
	h, ok := m.habits[id]
	if !ok || h.UserID != sess.UserID {
		return nil, remoteErr(models.ErrNotFound, http.StatusNotFound, "Habit not found")
	}
	return h, nil
}

func (m *MockRemote) ListHabits(ctx context.Context, sess Session) ([]models.HabitWithEntries, error) {
	err := m.begin(MethodListHabits)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var out []models.HabitWithEntries
	for _, h := range m.habits {
		if h.UserID != sess.UserID {
			continue
		}
		entries := append([]models.Entry{}, m.entries[h.ID]...)
		out = append(out, models.HabitWithEntries{Habit: *h, Entries: entries})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockRemote) CreateHabit(ctx context.Context, sess Session, name string) (*models.Habit, error) {
	err := m.begin(MethodCreateHabit)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if verr := models.ValidateHabitName(name); verr != nil {
		return nil, remoteErr(models.ErrValidation, http.StatusBadRequest, "%s", verr.Error())
	}
	h := m.insertHabit(sess.UserID, name)
	return &h, nil
}

func (m *MockRemote) UpdateHabit(ctx context.Context, sess Session, id, name string) (*models.Habit, error) {
	err := m.begin(MethodUpdateHabit)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	h, err := m.ownedHabit(sess, id)
	if err != nil {
		return nil, err
	}
	if verr := models.ValidateHabitName(name); verr != nil {
		return nil, remoteErr(models.ErrValidation, http.StatusBadRequest, "%s", verr.Error())
	}
	h.Name = name
	h.UpdatedAt = time.Now()
	out := *h
	return &out, nil
}

func (m *MockRemote) DeleteHabit(ctx context.Context, sess Session, id string) error {
	err := m.begin(MethodDeleteHabit)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if _, err := m.ownedHabit(sess, id); err != nil {
		return err
	}
	delete(m.habits, id)
	delete(m.entries, id)
	return nil
}

func (m *MockRemote) ListEntries(ctx context.Context, sess Session, habitID string) ([]models.Entry, error) {
	err := m.begin(MethodListEntries)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, err := m.ownedHabit(sess, habitID); err != nil {
		return nil, err
	}
	out := append([]models.Entry{}, m.entries[habitID]...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (m *MockRemote) CreateEntry(ctx context.Context, sess Session, habitID string, date time.Time) (*models.Entry, error) {
	err := m.begin(MethodCreateEntry)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if _, err := m.ownedHabit(sess, habitID); err != nil {
		return nil, err
	}
	day := models.StartOfDay(date, m.loc)
	key := models.DayKey(day, m.loc)
	for _, e := range m.entries[habitID] {
		if models.DayKey(e.Date, m.loc) == key {
			return nil, remoteErr(models.ErrConflict, http.StatusConflict, "Entry already exists for this date")
		}
	}
	entry := models.Entry{
		ID:        uuid.NewString(),
		HabitID:   habitID,
		UserID:    sess.UserID,
		Date:      day,
		CreatedAt: time.Now(),
	}
	m.entries[habitID] = append(m.entries[habitID], entry)
	return &entry, nil
}

func (m *MockRemote) DeleteEntry(ctx context.Context, sess Session, habitID, entryID string) error {
	err := m.begin(MethodDeleteEntry)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	if _, err := m.ownedHabit(sess, habitID); err != nil {
		return err
	}
	entries := m.entries[habitID]
	for i := range entries {
		if entries[i].ID == entryID {
			m.entries[habitID] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return remoteErr(models.ErrNotFound, http.StatusNotFound, "Entry not found")
}
