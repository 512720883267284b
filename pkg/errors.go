package pkg

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the session, registry and chat layers.
// Callers match them with errors.Is.
var (
	// ErrServiceUnavailable is returned when an operation needs the
	// completion service and no client is configured or reachable.
	ErrServiceUnavailable = errors.New("completion service unavailable")

	// ErrTurnInProgress is returned when a turn is requested for an
	// encounter whose previous turn has not finished.
	ErrTurnInProgress = errors.New("turn already in progress for encounter")

	// ErrEncounterNotFound is returned when an encounter id does not
	// resolve to a known encounter.
	ErrEncounterNotFound = errors.New("encounter not found")

	// ErrValidation is returned for rejected input, such as a blank
	// encounter name.
	ErrValidation = errors.New("invalid input")

	// ErrTurnTimeout is returned when a turn exceeds its deadline.
	ErrTurnTimeout = errors.New("turn deadline exceeded")
)

// PersistenceError wraps a storage backend failure.  Persistence is
// best-effort, so these are usually logged rather than propagated.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ParseError reports a model response that could not be decoded into the
// expected structured form.  Raw retains the offending text for logging.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("structured response parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
