package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports input that breaks a domain rule
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ErrEmptyBackup is returned by export when there are neither accounts nor goals to back up
var ErrEmptyBackup = &ValidationError{Message: "backup contains no accounts or goals"}

// ErrNotEmpty is returned when a write that requires an empty table finds rows in it at commit time
var ErrNotEmpty = errors.New("store already holds data")

// DecodeError reports a malformed backup document.
// It is always raised before the store is touched.
type DecodeError struct {
	Path string // location inside the document, e.g. "accounts[2].balance"
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid backup document: %v", e.Err)
	}
	return fmt.Sprintf("invalid backup document at %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StoreError wraps a low-level failure of the backing store.
// When returned from a save, none of the pending changes were applied.
type StoreError struct {
	Op         string
	Constraint bool // the store rejected the data (unique key, foreign key, ...)
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotFoundError reports an update or delete that referenced an unknown id
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}
