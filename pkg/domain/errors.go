package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record is absent from an index or store.
type ErrNotFound struct {
	Entity EntityType
	ID     int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ErrDuplicateKey is returned when inserting a record whose key already
// exists. Name is set instead of ID when the colliding key is a unique name.
type ErrDuplicateKey struct {
	Entity EntityType
	ID     int
	Name   string
}

func (e ErrDuplicateKey) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %q already exists", e.Entity, e.Name)
	}
	return fmt.Sprintf("%s %d already exists", e.Entity, e.ID)
}

// StoreError reports a failed remote store operation. Msg carries the
// diagnostic text; Err, when set, is the underlying driver error.
type StoreError struct {
	Op  string
	Msg string
	Err error
}

func (e *StoreError) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("store %s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("store %s: %s", e.Op, e.Msg)
	}
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError builds a StoreError for op wrapping err.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// InvariantViolation signals a broken structural invariant. It indicates a
// programming defect rather than a recoverable condition.
type InvariantViolation struct {
	Detail string
}

func (e InvariantViolation) Error() string {
	return "invariant violation: " + e.Detail
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsDuplicateKey reports whether err wraps ErrDuplicateKey.
func IsDuplicateKey(err error) bool {
	var dk ErrDuplicateKey
	return errors.As(err, &dk)
}

// IsStoreError reports whether err wraps *StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
