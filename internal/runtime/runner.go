package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Runner performs step data resolution and submission.
// It holds no session state and is safe for concurrent use.
type Runner struct {
	roots     ports.RootProvider
	provider  ports.HierarchyProvider
	submitter ports.Submitter
	logger    *slog.Logger
	hooks     domain.LifecycleHooks

	submitTimeout time.Duration
	now           func() time.Time

	flights singleflight.Group
}

// Option configures the Runner.
type Option func(*Runner)

// WithProvider sets the hierarchy provider. If it also implements
// ports.RootProvider it serves Level0 as well.
func WithProvider(p ports.HierarchyProvider) Option {
	return func(r *Runner) {
		r.provider = p
		if roots, ok := p.(ports.RootProvider); ok && r.roots == nil {
			r.roots = roots
		}
	}
}

// WithRootProvider sets the Level0 provider explicitly.
func WithRootProvider(p ports.RootProvider) Option {
	return func(r *Runner) {
		r.roots = p
	}
}

// WithSubmitter sets the collaborator that receives step payloads.
// Without one, submissions are accepted locally.
func WithSubmitter(s ports.Submitter) Option {
	return func(r *Runner) {
		r.submitter = s
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHooks registers observability hooks for fetches.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.hooks = hooks
	}
}

// WithSubmitTimeout bounds each submission. Zero disables the bound.
func WithSubmitTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.submitTimeout = d
	}
}

// WithClock overrides the clock used for event timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
