package stepwise

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
)

// CompleteFunc receives the final payload bundle of a completed session.
type CompleteFunc func(ctx context.Context, sessionKey string, payloads domain.Payloads)

// AbandonFunc is called when a session is abandoned.
type AbandonFunc func(ctx context.Context, sessionKey string)

// Option defines a functional option for configuring the Wizard.
type Option func(*Wizard)

// WithProvider sets the hierarchy provider used to load step options.
// If it also implements ports.RootProvider it serves Level0 as well.
func WithProvider(p ports.HierarchyProvider) Option {
	return func(w *Wizard) {
		w.runnerOpts = append(w.runnerOpts, runtime.WithProvider(p))
	}
}

// WithRootProvider sets the Level0 provider explicitly.
func WithRootProvider(p ports.RootProvider) Option {
	return func(w *Wizard) {
		w.runnerOpts = append(w.runnerOpts, runtime.WithRootProvider(p))
	}
}

// WithSubmitter sets the collaborator that receives each step payload.
func WithSubmitter(s ports.Submitter) Option {
	return func(w *Wizard) {
		w.runnerOpts = append(w.runnerOpts, runtime.WithSubmitter(s))
	}
}

// WithSubmitTimeout bounds each submission. Zero (the default) waits indefinitely.
func WithSubmitTimeout(d time.Duration) Option {
	return func(w *Wizard) {
		w.runnerOpts = append(w.runnerOpts, runtime.WithSubmitTimeout(d))
	}
}

// WithStore persists progress through an existing session store.
func WithStore(store *session.Store) Option {
	return func(w *Wizard) {
		w.store = store
	}
}

// WithSnapshotStore persists progress through a snapshot backend.
func WithSnapshotStore(backend ports.SnapshotStore) Option {
	return func(w *Wizard) {
		w.backend = backend
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Wizard) {
		w.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		w.logger = logger
	}
}

// WithOnComplete registers the completion callback. It runs exactly once.
func WithOnComplete(fn CompleteFunc) Option {
	return func(w *Wizard) {
		w.onComplete = fn
	}
}

// WithOnAbandon registers the abandonment callback. It runs exactly once.
func WithOnAbandon(fn AbandonFunc) Option {
	return func(w *Wizard) {
		w.onAbandon = fn
	}
}

// WithClock overrides the clock used for event timestamps and snapshots.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		if now != nil {
			w.now = now
		}
	}
}
