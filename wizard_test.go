package stepwise_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/pkg/adapters/catalog"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func permissionProvider(t *testing.T) *memory.Provider {
	t.Helper()
	p, err := memory.NewProvider(
		[]domain.Item{{ID: "hr", Name: "HR"}, {ID: "fin", Name: "Finance"}},
		[]domain.Item{
			{ID: "hr.emp", Name: "Employees", ParentID: "hr"},
			{ID: "hr.pay", Name: "Payroll", ParentID: "hr"},
			{ID: "hr.org", Name: "Org chart", ParentID: "hr"},
			{ID: "fin.inv", Name: "Invoices", ParentID: "fin"},
		},
		[]domain.Item{
			{ID: "api.emp.list", Name: "List employees", ParentID: "hr.emp"},
			{ID: "api.emp.edit", Name: "Edit employee", ParentID: "hr.emp"},
			{ID: "api.pay.run", Name: "Run payroll", ParentID: "hr.pay"},
			{ID: "api.org.view", Name: "View org", ParentID: "hr.org"},
			{ID: "api.inv.list", Name: "List invoices", ParentID: "fin.inv"},
		},
	)
	require.NoError(t, err)
	return p
}

func permissionSteps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{
			ID: "modules", Kind: domain.KindSelection,
			Source: &domain.LevelSource{Level: domain.Level0},
			Gate:   domain.RequireSelection("modules"),
		},
		{
			ID: "menus", Kind: domain.KindSelection,
			Source: &domain.LevelSource{Level: domain.Level1, ParentStep: "modules"},
			Gate:   domain.RequireSelection("modules", "menus"),
		},
		{
			ID: "apis", Kind: domain.KindSelection,
			Source: &domain.LevelSource{Level: domain.Level2, ParentStep: "menus"},
		},
	}
}

type recorder struct {
	mu        sync.Mutex
	completed []domain.Payloads
	abandoned int
}

func (r *recorder) onComplete(_ context.Context, _ string, p domain.Payloads) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, p)
}

func (r *recorder) onAbandon(context.Context, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned++
}

func newWizard(t *testing.T, store ports.SnapshotStore, rec *recorder, opts ...stepwise.Option) *stepwise.Wizard {
	t.Helper()
	base := []stepwise.Option{
		stepwise.WithProvider(permissionProvider(t)),
		stepwise.WithSnapshotStore(store),
		stepwise.WithOnComplete(rec.onComplete),
		stepwise.WithOnAbandon(rec.onAbandon),
	}
	w, err := stepwise.New(stepwise.SessionKey("role-create", ""), permissionSteps(), append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w
}

func TestWizard_HappyPath(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	rec := &recorder{}
	w := newWizard(t, store, rec)

	view, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentIndex)

	roots, err := w.Options(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hr", "fin"}, roots.Groups.ItemIDs())

	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))
	assert.Equal(t, 1, w.View().CurrentIndex)

	menus, err := w.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr"}, menus.Groups.Keys())
	assert.ElementsMatch(t, []string{"hr.emp", "hr.pay", "hr.org"}, menus.Groups.ItemIDs())

	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr.emp", "hr.pay")))

	apis, err := w.Options(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hr.emp", "hr.pay"}, apis.Groups.Keys())
	assert.ElementsMatch(t, []string{"api.emp.list", "api.emp.edit", "api.pay.run"}, apis.Groups.ItemIDs())

	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("api.emp.list", "api.pay.run")))

	final := w.View()
	assert.Equal(t, domain.StatusCompleted, final.Status)

	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys, "snapshot is cleared on completion")

	require.Len(t, rec.completed, 1)
	bundle := rec.completed[0]
	modules, _ := bundle.Selection("modules")
	menusSel, _ := bundle.Selection("menus")
	apisSel, _ := bundle.Selection("apis")
	assert.Equal(t, []string{"hr"}, modules.IDs())
	assert.Equal(t, []string{"hr.emp", "hr.pay"}, menusSel.IDs())
	assert.Equal(t, []string{"api.emp.list", "api.pay.run"}, apisSel.IDs())

	assert.ErrorIs(t, w.Submit(ctx, domain.NewSelectionPayload("x")), domain.ErrSessionClosed)
	assert.Len(t, rec.completed, 1)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitStep(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
	args := m.Called(req.StepID, req.IdempotencyKey)
	return ports.SubmitResult{}, args.Error(0)
}

func TestWizard_RetryableFailureThenRetry(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sub := new(mockSubmitter)
	sub.On("SubmitStep", "modules", mock.Anything).Return(nil)
	sub.On("SubmitStep", "menus", mock.Anything).Return(errors.New("503 service unavailable")).Once()
	sub.On("SubmitStep", "menus", mock.Anything).Return(nil).Once()

	w := newWizard(t, store, &recorder{}, stepwise.WithSubmitter(sub))
	_, err := w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))

	before, err := store.Load(ctx, w.Key())
	require.NoError(t, err)

	menus := domain.NewSelectionPayload("hr.emp", "hr.pay")
	err = w.Submit(ctx, menus)
	var stepErr *domain.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.True(t, stepErr.Retryable())

	view := w.View()
	assert.Equal(t, 1, view.CurrentIndex)
	assert.NotContains(t, view.Payloads, "menus")
	require.NotNil(t, view.TransientError)
	assert.Equal(t, domain.SeverityRetryable, view.TransientError.Severity)
	assert.False(t, view.Loading, "loading is cleared on failure")

	after, err := store.Load(ctx, w.Key())
	require.NoError(t, err)
	assert.Equal(t, before.Payloads.Clone(), after.Payloads.Clone(), "failure does not touch the snapshot")

	require.NoError(t, w.Submit(ctx, menus))
	view = w.View()
	assert.Equal(t, 2, view.CurrentIndex)
	assert.Contains(t, view.Payloads, "menus")
	assert.Nil(t, view.TransientError)

	sub.AssertNumberOfCalls(t, "SubmitStep", 3)

	// Both attempts carried the same idempotency key.
	var keys []string
	for _, call := range sub.Calls {
		if call.Arguments.String(0) == "menus" {
			keys = append(keys, call.Arguments.String(1))
		}
	}
	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
}

func TestWizard_BlockingFailure(t *testing.T) {
	ctx := context.Background()
	submitter := ports.SubmitterFunc(func(context.Context, ports.SubmitRequest) (ports.SubmitResult, error) {
		return ports.SubmitResult{}, domain.Blocking(errors.New("module was removed"))
	})
	w := newWizard(t, memory.NewStore(), &recorder{}, stepwise.WithSubmitter(submitter))
	_, err := w.Start(ctx)
	require.NoError(t, err)

	err = w.Submit(ctx, domain.NewSelectionPayload("hr"))
	assert.ErrorIs(t, err, domain.ErrSubmitFailure)

	view := w.View()
	require.NotNil(t, view.TransientError)
	assert.False(t, view.TransientError.Retryable())

	w.DismissError()
	assert.Nil(t, w.View().TransientError)
}

func TestWizard_ResumeAfterReload(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	first := newWizard(t, store, &recorder{})
	_, err := first.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Submit(ctx, domain.NewSelectionPayload("hr")))
	first.Close()

	second := newWizard(t, store, &recorder{})
	view, err := second.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentIndex)
	sel, ok := view.Payloads.Selection("modules")
	require.True(t, ok)
	assert.Equal(t, []string{"hr"}, sel.IDs())

	menus, err := second.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr"}, menus.Groups.Keys())
}

func TestWizard_CorruptSnapshotStartsFresh(t *testing.T) {
	ctx := context.Background()
	w := newWizard(t, corruptStore{memory.NewStore()}, &recorder{})

	view, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentIndex)
	assert.Empty(t, view.Payloads)
}

type corruptStore struct {
	*memory.Store
}

func (corruptStore) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, domain.ErrSnapshotCorrupt
}

func TestWizard_GateViolationBeforeIO(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	submitter := ports.SubmitterFunc(func(context.Context, ports.SubmitRequest) (ports.SubmitResult, error) {
		calls.Add(1)
		return ports.SubmitResult{}, nil
	})
	w := newWizard(t, memory.NewStore(), &recorder{}, stepwise.WithSubmitter(submitter))
	_, err := w.Start(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, w.Submit(ctx, domain.NewSelectionPayload()), domain.ErrGateViolation)
	assert.ErrorIs(t, w.Submit(ctx, domain.NewFieldsPayload(nil)), domain.ErrPayloadKind)
	assert.Zero(t, calls.Load())
	assert.Nil(t, w.View().TransientError)
}

func TestWizard_RetreatFromFirstStepAbandonsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	rec := &recorder{}
	w := newWizard(t, store, rec)
	_, err := w.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))
	require.NoError(t, w.Retreat(ctx))
	assert.Equal(t, 0, w.View().CurrentIndex)
	assert.Contains(t, w.View().Payloads, "modules", "retreat keeps payloads")

	require.NoError(t, w.Retreat(ctx))
	assert.Equal(t, domain.StatusAbandoned, w.View().Status)
	assert.ErrorIs(t, w.Retreat(ctx), domain.ErrSessionClosed)
	require.NoError(t, w.Abandon(ctx))

	assert.Equal(t, 1, rec.abandoned)
	assert.Empty(t, w.View().Payloads)
	keys, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestWizard_JumpKeepsPayloads(t *testing.T) {
	ctx := context.Background()
	w := newWizard(t, memory.NewStore(), &recorder{})
	_, err := w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr.emp")))

	assert.ErrorIs(t, w.JumpTo(ctx, 2), domain.ErrInvalidJump)
	require.NoError(t, w.JumpTo(ctx, 0))

	view := w.View()
	assert.Equal(t, 0, view.CurrentIndex)
	assert.Contains(t, view.Payloads, "menus")
}

func TestWizard_NavigationDiscardsInFlightSubmit(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	submitter := ports.SubmitterFunc(func(_ context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		if req.StepID == "menus" {
			close(entered)
			<-release
		}
		return ports.SubmitResult{}, nil
	})
	store := memory.NewStore()
	w := newWizard(t, store, &recorder{}, stepwise.WithSubmitter(submitter))
	_, err := w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))

	done := make(chan error, 1)
	go func() { done <- w.Submit(ctx, domain.NewSelectionPayload("hr.emp")) }()
	<-entered

	assert.True(t, w.View().Loading)
	assert.ErrorIs(t, w.Submit(ctx, domain.NewSelectionPayload("hr.emp")), domain.ErrBusy)

	require.NoError(t, w.Retreat(ctx))
	close(release)

	assert.ErrorIs(t, <-done, domain.ErrStale)
	view := w.View()
	assert.Equal(t, 0, view.CurrentIndex)
	assert.NotContains(t, view.Payloads, "menus")
	assert.False(t, view.Loading)
}

type failingSaveStore struct {
	*memory.Store
}

func (failingSaveStore) Save(context.Context, string, *domain.Snapshot) error {
	return errors.New("disk full")
}

func TestWizard_SaveFailureKeepsCommit(t *testing.T) {
	ctx := context.Background()
	w := newWizard(t, failingSaveStore{memory.NewStore()}, &recorder{})
	_, err := w.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))

	view := w.View()
	assert.Equal(t, 1, view.CurrentIndex)
	assert.Contains(t, view.Payloads, "modules")
	require.NotNil(t, view.TransientError)
	assert.True(t, view.TransientError.Retryable())
	assert.ErrorIs(t, view.TransientError, stepwise.ErrSaveFailed)
}

type flakyProvider struct {
	*memory.Provider
	fail atomic.Bool
}

func (f *flakyProvider) FetchLevel1(ctx context.Context, parents domain.Selection) ([]domain.Item, error) {
	if f.fail.Load() {
		return nil, errors.New("timeout")
	}
	return f.Provider.FetchLevel1(ctx, parents)
}

func TestWizard_FetchFailureIsTransient(t *testing.T) {
	ctx := context.Background()
	provider := &flakyProvider{Provider: permissionProvider(t)}
	provider.fail.Store(true)

	w, err := stepwise.New("k", permissionSteps(), stepwise.WithProvider(provider))
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))

	_, err = w.Options(ctx)
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
	view := w.View()
	require.NotNil(t, view.TransientError)
	assert.Contains(t, view.Payloads, "modules", "fetch failure keeps payloads")

	provider.fail.Store(false)
	data, err := w.Options(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, data.Groups.ItemIDs())
}

func TestWizard_UpstreamChangedLastRequestWins(t *testing.T) {
	ctx := context.Background()
	w := newWizard(t, memory.NewStore(), &recorder{})
	_, err := w.Start(ctx)
	require.NoError(t, err)

	older := w.UpstreamChanged(ctx, domain.NewSelection("fin"))
	newer := w.UpstreamChanged(ctx, domain.NewSelection("hr"))

	_, err = older.Wait(ctx)
	assert.ErrorIs(t, err, domain.ErrStale)

	data, err := newer.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "menus", data.StepID)
	assert.Equal(t, []string{"hr"}, data.Groups.Keys())

	preview, ok := w.Preview()
	require.True(t, ok)
	assert.Equal(t, data.Groups.ItemIDs(), preview.Groups.ItemIDs())

	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))
	options, err := w.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, preview.Groups.ItemIDs(), options.Groups.ItemIDs())
}

func TestWizard_RevisitedStepKeepsStaleSelection(t *testing.T) {
	ctx := context.Background()
	c := &catalog.Catalog{
		Level0: []domain.Item{{ID: "hr", Name: "HR"}, {ID: "fin", Name: "Finance"}},
		Level1: []domain.Item{
			{ID: "hr.emp", Name: "Employees", ParentID: "hr"},
			{ID: "fin.inv", Name: "Invoices", ParentID: "fin"},
		},
		Level2: []domain.Item{{ID: "api.emp.list", Name: "List employees", ParentID: "hr.emp"}},
	}
	provider, err := catalog.NewProvider(c)
	require.NoError(t, err)
	steps := permissionSteps()
	w, err := stepwise.New("k", steps,
		stepwise.WithProvider(provider),
		stepwise.WithSubmitter(catalog.NewSubmitter(provider, steps, nil)),
	)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr", "fin")))
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr.emp", "fin.inv")))

	require.NoError(t, w.JumpTo(ctx, 0))
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))

	view := w.View()
	require.Equal(t, 1, view.CurrentIndex)
	shown, ok := view.Payloads.Selection("menus")
	require.True(t, ok)
	assert.True(t, shown.Has("fin.inv"), "the earlier selection is shown again")

	require.NoError(t, w.Submit(ctx, domain.SelectionPayload{Selection: shown}))
	view = w.View()
	assert.Equal(t, 2, view.CurrentIndex)
	assert.Nil(t, view.TransientError)
}

func TestWizard_LoadingHeldWhileSubmitInFlight(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	submitter := ports.SubmitterFunc(func(_ context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
		if req.StepID == "menus" {
			close(entered)
			<-release
		}
		return ports.SubmitResult{}, nil
	})
	w := newWizard(t, memory.NewStore(), &recorder{}, stepwise.WithSubmitter(submitter))
	_, err := w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))

	done := make(chan error, 1)
	go func() { done <- w.Submit(ctx, domain.NewSelectionPayload("hr.emp")) }()
	<-entered
	require.True(t, w.View().Loading)

	_, err = w.Options(ctx)
	require.NoError(t, err)
	assert.True(t, w.View().Loading, "a finished fetch must not clear loading of a running submission")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, w.View().Loading)
}

func TestWizard_UpstreamReloadFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	provider := &flakyProvider{Provider: permissionProvider(t)}
	provider.fail.Store(true)

	w, err := stepwise.New("k", permissionSteps(), stepwise.WithProvider(provider))
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	_, err = w.UpstreamChanged(ctx, domain.NewSelection("hr")).Wait(ctx)
	require.ErrorIs(t, err, domain.ErrFetchFailure)

	view := w.View()
	require.NotNil(t, view.TransientError)
	assert.Equal(t, "menus", view.TransientError.StepID)
	assert.False(t, view.Loading)
	assert.Equal(t, 0, view.CurrentIndex)
}

type gatedProvider struct {
	*memory.Provider
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) FetchLevel1(ctx context.Context, parents domain.Selection) ([]domain.Item, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.Provider.FetchLevel1(ctx, parents)
}

func TestWizard_LoadingWhileUpstreamReloads(t *testing.T) {
	ctx := context.Background()
	provider := &gatedProvider{
		Provider: permissionProvider(t),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	w, err := stepwise.New("k", permissionSteps(), stepwise.WithProvider(provider))
	require.NoError(t, err)
	defer w.Close()
	_, err = w.Start(ctx)
	require.NoError(t, err)

	pending := w.UpstreamChanged(ctx, domain.NewSelection("hr"))
	<-provider.entered
	assert.True(t, w.View().Loading)

	close(provider.release)
	data, err := pending.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "menus", data.StepID)
	assert.False(t, w.View().Loading)
}

func TestWizard_ResumeAsksAgainForRedactedFields(t *testing.T) {
	ctx := context.Background()
	steps := []domain.StepDefinition{
		{
			ID: "modules", Kind: domain.KindSelection,
			Source: &domain.LevelSource{Level: domain.Level0},
			Gate:   domain.RequireSelection("modules"),
		},
		{ID: "identity", Kind: domain.KindFields},
		{ID: "notes", Kind: domain.KindFields},
	}
	backend := middleware.NewPIIMiddleware([]string{"ssn"})(memory.NewStore())
	identity := domain.NewFieldsPayload(map[string]any{"name": "Ann", "ssn": "123-45-6789"})

	first, err := stepwise.New("k", steps,
		stepwise.WithProvider(permissionProvider(t)),
		stepwise.WithSnapshotStore(backend),
	)
	require.NoError(t, err)
	_, err = first.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, first.Submit(ctx, domain.NewSelectionPayload("hr")))
	require.NoError(t, first.Submit(ctx, identity))
	first.Close()

	rec := &recorder{}
	second, err := stepwise.New("k", steps,
		stepwise.WithProvider(permissionProvider(t)),
		stepwise.WithSnapshotStore(backend),
		stepwise.WithOnComplete(rec.onComplete),
	)
	require.NoError(t, err)
	defer second.Close()

	view, err := second.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentIndex, "the redacted step is asked again")
	assert.Contains(t, view.Payloads, "modules")
	assert.NotContains(t, view.Payloads, "identity")

	require.NoError(t, second.Submit(ctx, identity))
	require.NoError(t, second.Submit(ctx, domain.NewFieldsPayload(map[string]any{"reason": "audit"})))

	require.Len(t, rec.completed, 1)
	got := rec.completed[0]["identity"].(domain.FieldsPayload)
	assert.Equal(t, "123-45-6789", got.Values["ssn"])
}

func TestWizard_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var events []domain.EventType
	record := func(_ context.Context, e *domain.StepEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
	}
	w := newWizard(t, memory.NewStore(), &recorder{},
		stepwise.WithLifecycleHooks(domain.LifecycleHooks{
			OnStepEnter:  record,
			OnStepCommit: record,
			OnComplete:   record,
		}),
		stepwise.WithClock(func() time.Time { return time.Unix(0, 0) }),
	)
	_, err := w.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr")))
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("hr.emp")))
	require.NoError(t, w.Submit(ctx, domain.NewSelectionPayload("api.emp.list")))

	assert.Equal(t, []domain.EventType{
		domain.EventStepEnter,
		domain.EventStepCommit, domain.EventStepEnter,
		domain.EventStepCommit, domain.EventStepEnter,
		domain.EventStepCommit, domain.EventComplete,
	}, events)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "role-edit:42", stepwise.SessionKey("role-edit", "42"))
	assert.Equal(t, "role-create:new", stepwise.SessionKey("role-create", " "))
}
