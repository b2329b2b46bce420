package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// SubmitRequest is one step submission.
type SubmitRequest struct {
	SessionKey string `json:"session_key"`
	StepID     string `json:"step_id"`

	// Payload is the candidate payload of the step.
	Payload domain.Payload `json:"-"`

	// Upstream holds the payloads already committed by earlier steps.
	Upstream domain.Payloads `json:"-"`

	// IdempotencyKey is deterministic for (session, step, payload), so a retried
	// submission carries the same key.
	IdempotencyKey string `json:"idempotency_key"`
}

// SubmitResult is the outcome of an accepted submission.
type SubmitResult struct {
	// Committed is the value the collaborator stored, if it returns one
	// (e.g. a created entity id).
	Committed any `json:"committed,omitempty"`
}

// Submitter sends a step payload to the system of record.
// A failure should be wrapped with domain.Blocking when the precondition the
// step relied on is no longer valid; any other error is treated as retryable.
// Retryable failures must be safe to resubmit with the same IdempotencyKey.
type Submitter interface {
	SubmitStep(ctx context.Context, req SubmitRequest) (SubmitResult, error)
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, req SubmitRequest) (SubmitResult, error)

// SubmitStep calls f.
func (f SubmitterFunc) SubmitStep(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	return f(ctx, req)
}
