package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
)

// Provider implements ports.HierarchyProvider and ports.RootProvider over a
// fixed in-memory hierarchy. Useful for tests and static catalogs.
type Provider struct {
	h *hierarchy.Hierarchy
}

// NewProvider validates the levels (Level0 first) and builds a provider.
func NewProvider(levels ...[]domain.Item) (*Provider, error) {
	h, err := hierarchy.New(levels...)
	if err != nil {
		return nil, fmt.Errorf("failed to build hierarchy: %w", err)
	}
	return &Provider{h: h}, nil
}

// NewFromHierarchy wraps an already validated hierarchy.
func NewFromHierarchy(h *hierarchy.Hierarchy) *Provider {
	return &Provider{h: h}
}

// Hierarchy exposes the underlying read model.
func (p *Provider) Hierarchy() *hierarchy.Hierarchy {
	return p.h
}

// FetchRoots returns all Level0 items.
func (p *Provider) FetchRoots(ctx context.Context) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.h.Items(domain.Level0), nil
}

// FetchLevel1 returns the Level1 children of parentIDs.
func (p *Provider) FetchLevel1(ctx context.Context, parentIDs domain.Selection) ([]domain.Item, error) {
	return p.fetch(ctx, domain.Level1, parentIDs)
}

// FetchLevel2 returns the Level2 children of parentIDs.
func (p *Provider) FetchLevel2(ctx context.Context, parentIDs domain.Selection) ([]domain.Item, error) {
	return p.fetch(ctx, domain.Level2, parentIDs)
}

func (p *Provider) fetch(ctx context.Context, level domain.Level, parentIDs domain.Selection) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if parentIDs.IsEmpty() {
		return []domain.Item{}, nil
	}
	var out []domain.Item
	for _, item := range p.h.Items(level) {
		if parentIDs.Has(item.ParentID) {
			out = append(out, item)
		}
	}
	if out == nil {
		out = []domain.Item{}
	}
	return out, nil
}
