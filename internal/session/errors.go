package session

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownOption  = errors.New("unknown option")
	ErrSubmitInFlight = errors.New("submit already in flight")
	ErrNoPlayable     = errors.New("quiz has no playable questions")
)

// StateError is returned when an operation is not valid in the current state.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: not allowed while %s", e.Op, e.State)
}

// UnansweredError asks the caller to confirm submitting an incomplete attempt.
type UnansweredError struct {
	Count int
}

func (e *UnansweredError) Error() string {
	return fmt.Sprintf("%d question(s) unanswered", e.Count)
}

// SubmitError wraps a failed submission. Answers are kept; retrying is safe.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return "submit failed: " + e.Err.Error() }
func (e *SubmitError) Unwrap() error { return e.Err }
