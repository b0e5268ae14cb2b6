package signals

import (
	"context"

	"github.com/maniartech/signals"
)

// HabitsChangeKind names the mutation that changed the habit collection
type HabitsChangeKind string

const (
	HabitsLoaded      HabitsChangeKind = "loaded"
	HabitCreated      HabitsChangeKind = "created"
	HabitRenamed      HabitsChangeKind = "renamed"
	HabitDeleted      HabitsChangeKind = "deleted"
	EntryCreated      HabitsChangeKind = "entry_created"
	EntryDeleted      HabitsChangeKind = "entry_deleted"
	EntriesReconciled HabitsChangeKind = "entries_reconciled"
)

// HabitsChangedData contains data associated with a habit collection change
type HabitsChangedData struct {
	Kind    HabitsChangeKind
	UserID  string
	HabitID string // empty for HabitsLoaded
}

// UserSignedInData contains data associated with a completed sign-in
type UserSignedInData struct {
	UserID  string
	Email   string
	NewUser bool
}

// Signal definitions using generics
var HabitsChanged = signals.New[HabitsChangedData]()
var UserSignedIn = signals.New[UserSignedInData]()

// EmitHabitsChanged emits a signal when the habit collection was mutated
func EmitHabitsChanged(ctx context.Context, data HabitsChangedData) {
	HabitsChanged.Emit(ctx, data)
}

// EmitUserSignedIn emits a signal when a user completed the OAuth flow
func EmitUserSignedIn(ctx context.Context, data UserSignedInData) {
	UserSignedIn.Emit(ctx, data)
}

// OnHabitsChanged registers a handler for habit collection changes
func OnHabitsChanged(handler func(ctx context.Context, data HabitsChangedData), key ...string) {
	if len(key) > 0 {
		HabitsChanged.AddListener(handler, key[0])
	} else {
		HabitsChanged.AddListener(handler)
	}
}

// OffHabitsChanged removes a keyed handler registered with OnHabitsChanged
func OffHabitsChanged(key string) {
	HabitsChanged.RemoveListener(key)
}

// OnUserSignedIn registers a handler for sign-in events
func OnUserSignedIn(handler func(ctx context.Context, data UserSignedInData), key ...string) {
	if len(key) > 0 {
		UserSignedIn.AddListener(handler, key[0])
	} else {
		UserSignedIn.AddListener(handler)
	}
}

// OffUserSignedIn removes a keyed handler registered with OnUserSignedIn
func OffUserSignedIn(key string) {
	UserSignedIn.RemoveListener(key)
}
