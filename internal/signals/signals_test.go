package signals

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHabitsChanged_KeyedListener(t *testing.T) {
	var mu sync.Mutex
	var got []HabitsChangedData

	OnHabitsChanged(func(ctx context.Context, data HabitsChangedData) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, data)
	}, "signals-test-habits")

	EmitHabitsChanged(context.Background(), HabitsChangedData{Kind: HabitCreated, UserID: "u1", HabitID: "h1"})

	OffHabitsChanged("signals-test-habits")
	EmitHabitsChanged(context.Background(), HabitsChangedData{Kind: HabitDeleted, UserID: "u1", HabitID: "h1"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []HabitsChangedData{{Kind: HabitCreated, UserID: "u1", HabitID: "h1"}}, got)
}

func TestUserSignedIn_KeyedListener(t *testing.T) {
	var mu sync.Mutex
	var got []UserSignedInData

	OnUserSignedIn(func(ctx context.Context, data UserSignedInData) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, data)
	}, "signals-test-sign-in")

	EmitUserSignedIn(context.Background(), UserSignedInData{UserID: "u1", Email: "a@example.com", NewUser: true})

	OffUserSignedIn("signals-test-sign-in")
	EmitUserSignedIn(context.Background(), UserSignedInData{UserID: "u2"})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []UserSignedInData{{UserID: "u1", Email: "a@example.com", NewUser: true}}, got)
}
