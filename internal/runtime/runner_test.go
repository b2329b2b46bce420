package runtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/stepwise/internal/runtime"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func permissionProvider(t *testing.T) *memory.Provider {
	t.Helper()
	p, err := memory.NewProvider(
		[]domain.Item{{ID: "hr", Name: "HR"}, {ID: "fin", Name: "Finance"}},
		[]domain.Item{
			{ID: "hr.emp", Name: "Employees", ParentID: "hr"},
			{ID: "hr.pay", Name: "Payroll", ParentID: "hr"},
			{ID: "fin.inv", Name: "Invoices", ParentID: "fin"},
		},
		[]domain.Item{
			{ID: "api.emp.list", Name: "List employees", ParentID: "hr.emp"},
			{ID: "api.inv.list", Name: "List invoices", ParentID: "fin.inv"},
		},
	)
	require.NoError(t, err)
	return p
}

func steps() []domain.StepDefinition {
	return []domain.StepDefinition{
		{ID: "modules", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level0}},
		{ID: "menus", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level1, ParentStep: "modules"}},
		{ID: "apis", Kind: domain.KindSelection, Source: &domain.LevelSource{Level: domain.Level2, ParentStep: "menus"}},
		{ID: "confirm", Kind: domain.KindFields},
	}
}

// countingProvider counts calls and can block until released.
type countingProvider struct {
	ports.HierarchyProvider
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	err     error
	items   []domain.Item
}

func (c *countingProvider) FetchLevel1(ctx context.Context, parents domain.Selection) ([]domain.Item, error) {
	c.calls.Add(1)
	if c.entered != nil {
		c.entered <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.items != nil {
		return c.items, nil
	}
	return c.HierarchyProvider.FetchLevel1(ctx, parents)
}

func TestResolve_RootsAndChildren(t *testing.T) {
	runner := runtime.NewRunner(runtime.WithProvider(permissionProvider(t)))
	ctx := context.Background()
	s := steps()

	roots, err := runner.Resolve(ctx, "k", s[0], domain.Payloads{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hr", "fin"}, roots.Groups.ItemIDs())
	assert.Equal(t, []string{hierarchy.RootGroup}, roots.Groups.Keys())

	upstream := domain.Payloads{"modules": domain.NewSelectionPayload("hr")}
	menus, err := runner.Resolve(ctx, "k", s[1], upstream)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr"}, menus.Groups.Keys())
	assert.ElementsMatch(t, []string{"hr.emp", "hr.pay"}, menus.Groups.ItemIDs())
	assert.True(t, menus.Parents.Has("hr"))
}

func TestResolve_EmptyParentSkipsFetch(t *testing.T) {
	provider := &countingProvider{HierarchyProvider: permissionProvider(t)}
	runner := runtime.NewRunner(runtime.WithProvider(provider))

	data, err := runner.Resolve(context.Background(), "k", steps()[1], domain.Payloads{
		"modules": domain.NewSelectionPayload(),
	})
	require.NoError(t, err)
	assert.True(t, data.HasOptions())
	assert.Zero(t, data.Groups.Len())
	assert.Zero(t, provider.calls.Load(), "no fetch for an empty parent selection")
}

func TestResolve_NoSource(t *testing.T) {
	runner := runtime.NewRunner()
	data, err := runner.Resolve(context.Background(), "k", steps()[3], domain.Payloads{})
	require.NoError(t, err)
	assert.False(t, data.HasOptions())
}

func TestResolve_FetchFailure(t *testing.T) {
	provider := &countingProvider{err: errors.New("upstream down")}
	var events []*domain.FetchEvent
	runner := runtime.NewRunner(
		runtime.WithProvider(provider),
		runtime.WithHooks(domain.LifecycleHooks{
			OnFetch: func(_ context.Context, e *domain.FetchEvent) { events = append(events, e) },
		}),
	)

	_, err := runner.Resolve(context.Background(), "k", steps()[1], domain.Payloads{
		"modules": domain.NewSelectionPayload("hr"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetchFailure)

	var stepErr *domain.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "menus", stepErr.StepID)
	assert.True(t, stepErr.Retryable())

	require.Len(t, events, 1)
	assert.True(t, events[0].IsError)
	assert.Equal(t, domain.Level1, events[0].Level)
}

func TestResolve_MalformedItemsRejected(t *testing.T) {
	provider := &countingProvider{items: []domain.Item{{ID: "", Name: "ghost", ParentID: "hr"}}}
	runner := runtime.NewRunner(runtime.WithProvider(provider))

	_, err := runner.Resolve(context.Background(), "k", steps()[1], domain.Payloads{
		"modules": domain.NewSelectionPayload("hr"),
	})
	assert.ErrorIs(t, err, domain.ErrMalformedItem)
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
}

func TestResolve_MissingRootProvider(t *testing.T) {
	runner := runtime.NewRunner()
	_, err := runner.Resolve(context.Background(), "k", steps()[0], domain.Payloads{})
	assert.ErrorIs(t, err, domain.ErrFetchFailure)
}

func TestResolve_DeduplicatesConcurrentFetches(t *testing.T) {
	provider := &countingProvider{
		HierarchyProvider: permissionProvider(t),
		entered:           make(chan struct{}, 2),
		release:           make(chan struct{}),
	}
	runner := runtime.NewRunner(runtime.WithProvider(provider))
	upstream := domain.Payloads{"modules": domain.NewSelectionPayload("hr")}

	var wg sync.WaitGroup
	results := make([]runtime.StepData, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data, err := runner.Resolve(context.Background(), "k", steps()[1], upstream)
			assert.NoError(t, err)
			results[i] = data
		}(i)
		if i == 0 {
			<-provider.entered
		}
	}
	time.Sleep(50 * time.Millisecond) // let the second caller join the flight
	close(provider.release)
	wg.Wait()

	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, results[0].Groups.ItemIDs(), results[1].Groups.ItemIDs())
}
