package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/google/uuid"
)

// idempotencyNamespace scopes the name-based UUIDs used as idempotency keys.
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/aretw0/stepwise/submit"))

// IdempotencyKey derives a stable key for (session, step, payload) so that a
// retried submission of the same payload is recognisable downstream.
func IdempotencyKey(sessionKey, stepID string, payload domain.Payload) (string, error) {
	data, err := domain.EncodePayload(payload)
	if err != nil {
		return "", err
	}
	name := make([]byte, 0, len(sessionKey)+len(stepID)+len(data)+2)
	name = append(name, sessionKey...)
	name = append(name, 0)
	name = append(name, stepID...)
	name = append(name, 0)
	name = append(name, data...)
	return uuid.NewSHA1(idempotencyNamespace, name).String(), nil
}

// Run submits candidate for step. Without a configured submitter the payload
// is accepted as is. Failures come back as a classified *domain.StepError.
func (r *Runner) Run(ctx context.Context, sessionKey string, step domain.StepDefinition, upstream domain.Payloads, candidate domain.Payload) (ports.SubmitResult, *domain.StepError) {
	if r.submitter == nil {
		return ports.SubmitResult{}, nil
	}

	key, err := IdempotencyKey(sessionKey, step.ID, candidate)
	if err != nil {
		return ports.SubmitResult{}, domain.Classify(step.ID, domain.ErrSubmitFailure, err)
	}

	if r.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.submitTimeout)
		defer cancel()
	}

	result, err := r.submitter.SubmitStep(ctx, ports.SubmitRequest{
		SessionKey:     sessionKey,
		StepID:         step.ID,
		Payload:        candidate,
		Upstream:       upstream.Clone(),
		IdempotencyKey: key,
	})
	if err != nil {
		stepErr := domain.Classify(step.ID, domain.ErrSubmitFailure, err)
		if errors.Is(err, context.DeadlineExceeded) {
			stepErr.Message = "submission timed out, try again"
		}
		r.logger.Warn("Submission failed",
			"session_key", sessionKey,
			"step_id", step.ID,
			"severity", string(stepErr.Severity),
			"idempotency_key", key,
			"err", err,
		)
		return ports.SubmitResult{}, stepErr
	}

	r.logger.Debug("Submission accepted",
		"session_key", sessionKey,
		"step_id", step.ID,
		"idempotency_key", key,
	)
	return result, nil
}
