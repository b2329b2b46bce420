package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepwise/pkg/domain"
)

// LogHooks returns hooks that write one log line per lifecycle event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	step := func(msg string) func(context.Context, *domain.StepEvent) {
		return func(ctx context.Context, e *domain.StepEvent) {
			attrs := []any{"session_key", e.SessionKey, "step_id", e.StepID, "index", e.Index}
			if e.Error != nil {
				attrs = append(attrs, "severity", e.Error.Severity, "err", e.Error.Message)
				logger.WarnContext(ctx, msg, attrs...)
				return
			}
			logger.InfoContext(ctx, msg, attrs...)
		}
	}
	return domain.LifecycleHooks{
		OnStepEnter:   step("step_enter"),
		OnStepCommit:  step("step_commit"),
		OnStepFailure: step("step_failure"),
		OnComplete:    step("session_complete"),
		OnAbandon:     step("session_abandon"),
		OnFetch: func(ctx context.Context, e *domain.FetchEvent) {
			logger.DebugContext(ctx, "fetch",
				"session_key", e.SessionKey,
				"step_id", e.StepID,
				"level", e.Level.String(),
				"parents", e.Parents,
				"items", e.Items,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
	}
}

// Chain merges hooks; each event is delivered in the order given.
func Chain(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnStepEnter = chainStep(out.OnStepEnter, h.OnStepEnter)
		out.OnStepCommit = chainStep(out.OnStepCommit, h.OnStepCommit)
		out.OnStepFailure = chainStep(out.OnStepFailure, h.OnStepFailure)
		out.OnComplete = chainStep(out.OnComplete, h.OnComplete)
		out.OnAbandon = chainStep(out.OnAbandon, h.OnAbandon)
		out.OnFetch = chainFetch(out.OnFetch, h.OnFetch)
	}
	return out
}

func chainStep(a, b func(context.Context, *domain.StepEvent)) func(context.Context, *domain.StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainFetch(a, b func(context.Context, *domain.FetchEvent)) func(context.Context, *domain.FetchEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *domain.FetchEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
