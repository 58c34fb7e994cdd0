package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the API layer can pick a status code.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindCapacity
	KindConflict
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindCapacity:
		return "capacity"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Category sentinels, matched with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrCapacity = errors.New("capacity exceeded")
	ErrConflict = errors.New("conflict")
	ErrStore    = errors.New("store failure")
)

// ErrStatusChanged is returned when an optimistic status transition matched no row:
// the record was changed by another operation after it was read.
var ErrStatusChanged = errors.New("record status changed by another operation")

// NotFoundError a referenced record does not exist or is not in the expected state.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CapacityError a tutor or tutee is already at the match cap.
type CapacityError struct {
	Message string
}

func (e *CapacityError) Error() string { return e.Message }

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// ConflictError the operation collides with concurrent work.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// StoreError wraps an unexpected failure of the persistent store.
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err; a nil err stays nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// KindOf reports the kind of err, looking through wrapping.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCapacity):
		return KindCapacity
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrStore):
		return KindStore
	default:
		return KindUnknown
	}
}
