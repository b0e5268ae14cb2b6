package models

import (
	"errors"
	"fmt"
)

// Error kinds shared by the store, the HTTP layer and the client-side controller.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTransient       = errors.New("transient failure")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RemoteError is a non-success response from the remote habit store
type RemoteError struct {
	Kind    error // one of the Err* kinds above
	Status  int
	Message string
	Details map[string]any
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
}

// Unwrap returns the error kind
func (e *RemoteError) Unwrap() error {
	return e.Kind
}
