package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session key cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSnapshotCorrupt is returned by stores when a persisted snapshot cannot be decoded.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	// ErrGateViolation is returned when a commit is attempted without satisfying the step gate.
	ErrGateViolation = errors.New("gate violation")

	// ErrFetchFailure wraps failures of hierarchy or step data providers.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrSubmitFailure wraps failures reported by the step submitter.
	ErrSubmitFailure = errors.New("submit failure")

	// ErrSessionClosed is returned when a transition is attempted on a completed or abandoned session.
	ErrSessionClosed = errors.New("session closed")

	// ErrInvalidJump is returned when jumping to the current or a later step.
	ErrInvalidJump = errors.New("invalid jump target")

	// ErrPayloadKind is returned when a payload variant does not match the step definition.
	ErrPayloadKind = errors.New("payload kind mismatch")

	// ErrMalformedItem is returned when external data enters the hierarchy without an id.
	ErrMalformedItem = errors.New("malformed item")

	// ErrInvalidSteps is returned when a step list cannot drive a session.
	ErrInvalidSteps = errors.New("invalid step definitions")

	// ErrBusy is returned when a submission is attempted while another is in flight.
	ErrBusy = errors.New("submission already in flight")

	// ErrStale is returned when an operation result arrives after the session moved on.
	ErrStale = errors.New("result superseded")
)

// Severity tells the user whether a failed step can simply be retried.
type Severity string

const (
	SeverityRetryable Severity = "retryable" // Transient, try the same submission again
	SeverityBlocking  Severity = "blocking"  // Upstream precondition changed, go back
)

// StepError is the user-visible failure descriptor stored in Session.TransientError.
type StepError struct {
	StepID   string   `json:"step_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Cause    error    `json:"-"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepID, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the same submission may be attempted again.
func (e *StepError) Retryable() bool {
	return e.Severity != SeverityBlocking
}

type blockingError struct {
	err error
}

func (b *blockingError) Error() string { return b.err.Error() }
func (b *blockingError) Unwrap() error { return b.err }

// Blocking marks err as a blocking failure: the options the step depended on
// changed and the user has to go back. Submitters use it to opt out of the
// retryable default.
func Blocking(err error) error {
	if err == nil {
		return nil
	}
	return &blockingError{err: err}
}

// IsBlocking reports whether err was marked with Blocking.
func IsBlocking(err error) bool {
	var b *blockingError
	return errors.As(err, &b)
}

// Classify converts a provider or submitter error into a StepError.
// kind is ErrFetchFailure or ErrSubmitFailure and is joined into the cause.
func Classify(stepID string, kind error, err error) *StepError {
	if err == nil {
		return nil
	}
	var existing *StepError
	if errors.As(err, &existing) {
		return existing
	}

	severity := SeverityRetryable
	if IsBlocking(err) {
		severity = SeverityBlocking
	}

	return &StepError{
		StepID:   stepID,
		Severity: severity,
		Message:  err.Error(),
		Cause:    fmt.Errorf("%w: %w", kind, err),
	}
}
