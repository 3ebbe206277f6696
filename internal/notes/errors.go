package notes

import (
	"errors"
	"fmt"
)

// ErrNotFound means the request was well formed but no note has that id.
var ErrNotFound = errors.New("note not found")

// ValidationError is returned when caller input fails a precondition.
// Message is safe to show to clients.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// StoreError wraps a failure from the database layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("notes: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
