package stepwise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
)

// StepData is the grouped option list of a step.
type StepData = runtime.StepData

// ErrSaveFailed is the cause recorded when progress could not be persisted.
var ErrSaveFailed = errors.New("progress could not be saved")

// Wizard drives one session. It is safe for concurrent use: state changes are
// serialised, I/O runs outside the lock, and results are applied only while
// the session is still where the operation left it.
type Wizard struct {
	key   string
	steps []domain.StepDefinition

	runner     *runtime.Runner
	runnerOpts []runtime.Option
	queue      *runtime.EffectQueue
	store      *session.Store
	backend    ports.SnapshotStore

	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	onComplete CompleteFunc
	onAbandon  AbandonFunc

	mu         sync.Mutex
	session    *domain.Session
	submitting bool
	finished   bool
	preview    *StepData

	// inflight counts submissions and fetches; reloading marks a queued
	// upstream reload. Together they drive the session's loading flag.
	inflight  int
	reloading bool

	// persistMu orders snapshot writes by commit order without holding mu during I/O.
	persistMu sync.Mutex
}

// New creates a wizard for sessionKey over steps. Call Start before use.
func New(sessionKey string, steps []domain.StepDefinition, opts ...Option) (*Wizard, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is required")
	}

	w := &Wizard{
		key:    sessionKey,
		steps:  append([]domain.StepDefinition(nil), steps...),
		logger: logging.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	s, err := domain.NewSession(w.key, w.steps)
	if err != nil {
		return nil, err
	}
	w.session = s

	w.logger = w.logger.With("session_key", w.key)
	if w.store == nil && w.backend != nil {
		w.store = session.NewStore(w.backend, session.WithLogger(w.logger), session.WithClock(w.now))
	}

	runnerOpts := append([]runtime.Option{
		runtime.WithLogger(w.logger),
		runtime.WithHooks(w.hooks),
		runtime.WithClock(w.now),
	}, w.runnerOpts...)
	w.runner = runtime.NewRunner(runnerOpts...)
	w.queue = runtime.NewEffectQueue(context.Background(), runtime.WithQueueLogger(w.logger))

	return w, nil
}

// Key returns the session key.
func (w *Wizard) Key() string {
	return w.key
}

// Close stops the background effect worker.
func (w *Wizard) Close() {
	w.queue.Close()
}

// Start resumes the saved session for the key, or starts a fresh one.
// A corrupt snapshot counts as no snapshot.
func (w *Wizard) Start(ctx context.Context) (*domain.Session, error) {
	var (
		payloads domain.Payloads
		found    bool
	)
	if w.store != nil {
		var err error
		payloads, found, err = w.store.LoadPayloads(ctx, w.key)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	var (
		s   *domain.Session
		err error
	)
	if found {
		s, err = domain.Resume(w.key, w.steps, payloads)
	} else {
		s, err = domain.NewSession(w.key, w.steps)
	}
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.session = s
	w.finished = false
	w.preview = nil
	view := s.Clone()
	w.mu.Unlock()

	w.logger.Info("Session started", "resumed", found, "step_id", view.Current().ID)
	w.emitStep(ctx, w.hooks.OnStepEnter, domain.EventStepEnter, view, nil)
	return view, nil
}

// View returns a read-only copy of the session.
func (w *Wizard) View() *domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Clone()
}

// Submit validates p against the active step, sends it through the submitter
// and, on success, commits it and moves on. A gate or kind violation is
// returned before any I/O. A submitter failure is recorded as the session's
// transient error and returned as *domain.StepError. If the session moved
// while the submission was in flight, the result is dropped and ErrStale returned.
func (w *Wizard) Submit(ctx context.Context, p domain.Payload) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return domain.ErrBusy
	}
	s := w.session
	if err := s.CheckAdvance(p); err != nil {
		w.mu.Unlock()
		return err
	}
	tag := s.Tag()
	step := s.Current()
	upstream := s.Payloads.Clone()
	s.DismissError()
	w.submitting = true
	w.track(1)
	w.mu.Unlock()

	_, stepErr := w.runner.Run(ctx, w.key, step, upstream, p)

	w.mu.Lock()
	w.submitting = false
	w.track(-1)
	if !s.Matches(tag) || s != w.session {
		w.mu.Unlock()
		w.logger.Debug("Discarding overtaken submission", "step_id", step.ID)
		return domain.ErrStale
	}

	if stepErr != nil {
		s.Fail(stepErr)
		w.syncLoading()
		view := s.Clone()
		w.mu.Unlock()
		w.emitStep(ctx, w.hooks.OnStepFailure, domain.EventStepFailure, view, stepErr)
		return stepErr
	}

	committedAt := s.Tag()
	completed, err := s.Commit(p)
	w.syncLoading()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	view := s.Clone()
	committedView := *view
	committedView.CurrentIndex = committedAt.Index

	if completed {
		fire := !w.finished
		w.finished = true
		w.preview = nil
		w.mu.Unlock()

		w.emitStep(ctx, w.hooks.OnStepCommit, domain.EventStepCommit, &committedView, nil)
		w.clearSnapshot(ctx)
		w.logger.Info("Session completed", "steps", len(view.Steps))
		if fire {
			w.emitStep(ctx, w.hooks.OnComplete, domain.EventComplete, view, nil)
			if w.onComplete != nil {
				w.onComplete(ctx, w.key, view.Payloads.Clone())
			}
		}
		return nil
	}

	// Hand over to persistMu before releasing mu so snapshots land in commit order.
	w.persistMu.Lock()
	w.mu.Unlock()

	w.emitStep(ctx, w.hooks.OnStepCommit, domain.EventStepCommit, &committedView, nil)
	saveErr := w.saveSnapshot(ctx, view)
	w.persistMu.Unlock()

	if saveErr != nil {
		w.mu.Lock()
		if s.Matches(view.Tag()) && s == w.session {
			s.Fail(&domain.StepError{
				StepID:   view.Current().ID,
				Severity: domain.SeverityRetryable,
				Message:  ErrSaveFailed.Error(),
				Cause:    fmt.Errorf("%w: %w", ErrSaveFailed, saveErr),
			})
			w.syncLoading()
		}
		w.mu.Unlock()
	}

	w.emitStep(ctx, w.hooks.OnStepEnter, domain.EventStepEnter, view, nil)
	return nil
}

// Retreat goes back one step. From the first step it abandons the session.
func (w *Wizard) Retreat(ctx context.Context) error {
	w.mu.Lock()
	abandoned, err := w.session.Retreat()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.preview = nil
	view := w.session.Clone()
	w.mu.Unlock()

	if abandoned {
		w.abandoned(ctx, view)
		return nil
	}
	w.emitStep(ctx, w.hooks.OnStepEnter, domain.EventStepEnter, view, nil)
	return nil
}

// JumpTo revisits an earlier step. Later payloads are kept.
func (w *Wizard) JumpTo(ctx context.Context, index int) error {
	w.mu.Lock()
	if err := w.session.JumpTo(index); err != nil {
		w.mu.Unlock()
		return err
	}
	w.preview = nil
	view := w.session.Clone()
	w.mu.Unlock()

	w.emitStep(ctx, w.hooks.OnStepEnter, domain.EventStepEnter, view, nil)
	return nil
}

// Abandon discards the session. It is a no-op on a closed session.
func (w *Wizard) Abandon(ctx context.Context) error {
	w.mu.Lock()
	if !w.session.Abandon() {
		w.mu.Unlock()
		return nil
	}
	w.preview = nil
	view := w.session.Clone()
	w.mu.Unlock()

	w.abandoned(ctx, view)
	return nil
}

// DismissError clears the transient error.
func (w *Wizard) DismissError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.session.DismissError()
}

// Options loads the grouped options of the active step, filtered by the
// selection committed upstream. A fetch failure is recorded as the transient
// error and returned.
func (w *Wizard) Options(ctx context.Context) (StepData, error) {
	w.mu.Lock()
	s := w.session
	if !s.Open() {
		w.mu.Unlock()
		return StepData{}, fmt.Errorf("%w: %s", domain.ErrSessionClosed, s.Status)
	}
	tag := s.Tag()
	step := s.Current()
	upstream := s.Payloads.Clone()
	if cached, ok := w.previewFor(step, upstream); ok {
		w.mu.Unlock()
		return cached, nil
	}
	w.track(1)
	w.mu.Unlock()

	data, err := w.runner.Resolve(ctx, w.key, step, upstream)

	w.mu.Lock()
	w.track(-1)
	if !s.Matches(tag) || s != w.session {
		w.mu.Unlock()
		return StepData{}, domain.ErrStale
	}
	if err != nil {
		var stepErr *domain.StepError
		if errors.As(err, &stepErr) {
			s.Fail(stepErr)
			w.syncLoading()
		}
		view := s.Clone()
		w.mu.Unlock()
		w.emitStep(ctx, w.hooks.OnStepFailure, domain.EventStepFailure, view, stepErr)
		return StepData{}, err
	}
	w.mu.Unlock()
	return data, nil
}

// Pending is the handle of a queued upstream-change effect.
type Pending struct {
	w      *Wizard
	ticket uint64
	tag    domain.OpTag
	result <-chan runtime.Result
}

// Wait blocks until the effect finishes. It returns domain.ErrStale when a
// newer request or a navigation superseded it.
func (p *Pending) Wait(ctx context.Context) (StepData, error) {
	if p.result == nil {
		return StepData{}, nil
	}
	var res runtime.Result
	select {
	case res = <-p.result:
	case <-ctx.Done():
		return StepData{}, ctx.Err()
	}
	if res.Err != nil {
		return StepData{}, res.Err
	}

	w := p.w
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.queue.Latest(p.ticket) || !w.session.Matches(p.tag) {
		return StepData{}, domain.ErrStale
	}
	data := res.Value.(StepData)
	w.preview = &data
	return data, nil
}

// UpstreamChanged reports that the active step's selection changed before it
// was committed. It queues a reload of the options of the step that depends
// on it; only the newest request is applied. The session shows loading until
// the newest reload finishes, and a failed reload is recorded as its transient
// error. Without a dependent step the returned handle resolves immediately to
// empty data.
func (w *Wizard) UpstreamChanged(ctx context.Context, sel domain.Selection) *Pending {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.session
	tag := s.Tag()
	current := s.Current()
	dependent, ok := w.dependentOf(current.ID, s.CurrentIndex)
	upstream := s.Payloads.With(current.ID, domain.SelectionPayload{Selection: sel})
	if !ok || !s.Open() {
		return &Pending{w: w}
	}

	// ticket is read by reloaded under mu, which is held until it is assigned.
	var ticket uint64
	var ch <-chan runtime.Result
	ticket, ch = w.queue.Enqueue(runtime.Effect{
		Name: "reload:" + dependent.ID,
		Run: func(qctx context.Context) (any, error) {
			ctx, cancel := mergeCancel(ctx, qctx)
			defer cancel()
			data, err := w.runner.Resolve(ctx, w.key, dependent, upstream)
			w.reloaded(ctx, s, &ticket, tag, err)
			return data, err
		},
	})
	w.reloading = true
	w.syncLoading()
	return &Pending{w: w, ticket: ticket, tag: tag, result: ch}
}

// reloaded settles the loading flag once the newest reload returns and
// records its failure while the session is still where it was requested.
func (w *Wizard) reloaded(ctx context.Context, s *domain.Session, ticket *uint64, tag domain.OpTag, err error) {
	w.mu.Lock()
	if !w.queue.Latest(*ticket) {
		w.mu.Unlock()
		return
	}
	w.reloading = false
	w.syncLoading()

	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrStale) {
		w.mu.Unlock()
		return
	}
	var stepErr *domain.StepError
	if s != w.session || !s.Matches(tag) || !errors.As(err, &stepErr) {
		w.mu.Unlock()
		return
	}
	s.Fail(stepErr)
	w.syncLoading()
	view := s.Clone()
	w.mu.Unlock()
	w.emitStep(ctx, w.hooks.OnStepFailure, domain.EventStepFailure, view, stepErr)
}

// track adjusts the in-flight count. Caller holds mu.
func (w *Wizard) track(delta int) {
	w.inflight += delta
	w.syncLoading()
}

// syncLoading mirrors in-flight work on the session. Caller holds mu.
func (w *Wizard) syncLoading() {
	w.session.SetLoading(w.inflight > 0 || w.reloading)
}

// Preview returns the most recently applied upstream-change result.
func (w *Wizard) Preview() (StepData, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.preview == nil {
		return StepData{}, false
	}
	return *w.preview, true
}

func (w *Wizard) dependentOf(stepID string, from int) (domain.StepDefinition, bool) {
	for _, step := range w.steps[from+1:] {
		if step.Source != nil && step.Source.ParentStep == stepID {
			return step, true
		}
	}
	return domain.StepDefinition{}, false
}

// previewFor reuses a preloaded result when it was computed for the same
// step and the same parent selection that is now committed. Caller holds mu.
func (w *Wizard) previewFor(step domain.StepDefinition, upstream domain.Payloads) (StepData, bool) {
	if w.preview == nil || w.preview.StepID != step.ID || step.Source == nil {
		return StepData{}, false
	}
	committed, ok := upstream.Selection(step.Source.ParentStep)
	if !ok || !committed.Equal(w.preview.Parents) {
		return StepData{}, false
	}
	return *w.preview, true
}

func (w *Wizard) abandoned(ctx context.Context, view *domain.Session) {
	w.mu.Lock()
	fire := !w.finished
	w.finished = true
	w.mu.Unlock()

	w.clearSnapshot(ctx)
	w.logger.Info("Session abandoned")
	if !fire {
		return
	}
	w.emitStep(ctx, w.hooks.OnAbandon, domain.EventAbandon, view, nil)
	if w.onAbandon != nil {
		w.onAbandon(ctx, w.key)
	}
}

func (w *Wizard) saveSnapshot(ctx context.Context, view *domain.Session) error {
	if w.store == nil {
		return nil
	}
	if err := w.store.SavePayloads(ctx, w.key, view.Payloads, view.CurrentIndex); err != nil {
		w.logger.Warn("Failed to save snapshot", "step_id", view.Current().ID, "err", err)
		return err
	}
	return nil
}

func (w *Wizard) clearSnapshot(ctx context.Context) {
	if w.store == nil {
		return
	}
	w.persistMu.Lock()
	defer w.persistMu.Unlock()
	if err := w.store.Clear(ctx, w.key); err != nil {
		w.logger.Warn("Failed to clear snapshot", "err", err)
	}
}

func (w *Wizard) emitStep(ctx context.Context, hook func(context.Context, *domain.StepEvent), typ domain.EventType, view *domain.Session, stepErr *domain.StepError) {
	if hook == nil {
		return
	}
	index := view.CurrentIndex
	hook(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{
			Timestamp:  w.now(),
			Type:       typ,
			SessionKey: w.key,
		},
		StepID: view.Steps[index].ID,
		Index:  index,
		Error:  stepErr,
	})
}

// mergeCancel returns a context that carries a's values and is canceled when
// either a or b is done.
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
