package ports

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
)

// HierarchyProvider fetches the children of selected parents.
// Implementations must return an empty list, not an error, for an empty parent set.
type HierarchyProvider interface {
	// FetchLevel1 returns the Level1 items owned by the given Level0 ids.
	FetchLevel1(ctx context.Context, parentIDs domain.Selection) ([]domain.Item, error)

	// FetchLevel2 returns the Level2 items owned by the given Level1 ids.
	FetchLevel2(ctx context.Context, parentIDs domain.Selection) ([]domain.Item, error)
}

// RootProvider fetches the unconstrained Level0 items.
// Providers that know their roots implement it alongside HierarchyProvider.
type RootProvider interface {
	FetchRoots(ctx context.Context) ([]domain.Item, error)
}
