package crud

import (
	"errors"
	"fmt"

	"github.com/matthewbaird/streamconsole/internal/types"
)

var (
	// ErrNetwork marks a failed remote call.
	ErrNetwork = errors.New("remote call failed")

	// ErrConflict marks a remote call that failed because the server-side
	// state moved on, such as deleting an already removed record.
	ErrConflict = errors.New("remote state conflict")

	// ErrStaleResponse marks a response superseded by a newer request. It
	// never reaches callers of the controller.
	ErrStaleResponse = errors.New("stale response")

	// ErrDeleteInFlight is returned when a delete for the same id is
	// already pending.
	ErrDeleteInFlight = errors.New("delete already in flight")
)

// NetworkError wraps a failed remote call.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// ConflictError wraps a remote call rejected because the record it targets
// no longer matches the server.
type ConflictError struct {
	Op  string
	ID  int64
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Op, e.ID, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Classify wraps err from a remote call as a ConflictError or NetworkError.
// Errors that already carry a classification are returned unchanged.
func Classify(op string, id int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNetwork) {
		return err
	}
	if errors.Is(err, types.ErrNotFound) {
		return &ConflictError{Op: op, ID: id, Err: err}
	}
	return &NetworkError{Op: op, Err: err}
}
