package session

import (
	"errors"
	"fmt"
)

var (
	// ErrMutationRejected is returned when an answer or move is attempted
	// outside the active phase. State is left untouched.
	ErrMutationRejected = errors.New("session: mutation rejected, session is not active")
	ErrSubmitInProgress = errors.New("session: submission already in progress")
	ErrClockStarted     = errors.New("session: clock already started")
	ErrSessionNotFound  = errors.New("session: not found")
	ErrInvalidOption    = errors.New("session: invalid option label")
)

type StartReason string

const (
	ReasonPermissionDenied      StartReason = "permission_denied"
	ReasonInsufficientPool      StartReason = "insufficient_pool"
	ReasonRepositoryUnavailable StartReason = "repository_unavailable"
	ReasonInvalidConfig         StartReason = "invalid_config"
	ReasonSessionActive         StartReason = "session_active"
)

// StartError is fatal to session creation. The host routes the taker elsewhere.
type StartError struct {
	Reason StartReason
	Err    error
}

func (e *StartError) Error() string {
	if e.Err == nil {
		return "session start: " + string(e.Reason)
	}
	return fmt.Sprintf("session start: %s: %v", e.Reason, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// EmptyPoolError reports a section whose pool cannot fill the draw.
type EmptyPoolError struct {
	Section Section
	Have    int
	Want    int
}

func (e *EmptyPoolError) Error() string {
	return fmt.Sprintf("section %q has %d questions, need %d", e.Section, e.Have, e.Want)
}

// SubmissionError wraps an attempt-store failure. When Retryable is true the
// session sits in PhaseSubmitFailed and RequestSubmit may be called again.
type SubmissionError struct {
	Attempt   int
	Retryable bool
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func startErr(reason StartReason, err error) error {
	return &StartError{Reason: reason, Err: err}
}
