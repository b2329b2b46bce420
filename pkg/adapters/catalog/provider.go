package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
)

// Provider serves a catalog as a ports.RootProvider and ports.HierarchyProvider.
// The catalog can be swapped at runtime with Reload.
type Provider struct {
	mu      sync.RWMutex
	catalog *Catalog
	items   *memory.Provider
	path    string
	logger  *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider validates c and serves it.
func NewProvider(c *Catalog, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.swap(c); err != nil {
		return nil, err
	}
	return p, nil
}

// NewFileProvider serves the catalog at path. Reload rereads it.
func NewFileProvider(path string, opts ...ProviderOption) (*Provider, error) {
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := NewProvider(c, opts...)
	if err != nil {
		return nil, err
	}
	p.path = path
	return p, nil
}

// Reload rereads the catalog file. On error the current catalog stays in place.
func (p *Provider) Reload() error {
	if p.path == "" {
		return fmt.Errorf("catalog was not loaded from a file")
	}
	c, err := LoadFile(p.path)
	if err != nil {
		p.logger.Warn("Catalog reload failed, keeping previous version", "path", p.path, "err", err)
		return err
	}
	if err := p.swap(c); err != nil {
		return err
	}
	p.logger.Info("Catalog reloaded", "path", p.path)
	return nil
}

// Catalog returns the catalog currently served.
func (p *Provider) Catalog() *Catalog {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog
}

func (p *Provider) swap(c *Catalog) error {
	if err := c.Validate(); err != nil {
		return err
	}
	h, err := c.Hierarchy()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	p.mu.Lock()
	p.catalog = c
	p.items = memory.NewFromHierarchy(h)
	p.mu.Unlock()
	return nil
}

func (p *Provider) current() *memory.Provider {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.items
}

// FetchRoots returns every Level0 item.
func (p *Provider) FetchRoots(ctx context.Context) ([]domain.Item, error) {
	return p.current().FetchRoots(ctx)
}

// FetchLevel1 returns the Level1 children of parentIDs.
func (p *Provider) FetchLevel1(ctx context.Context, parentIDs domain.Selection) ([]domain.Item, error) {
	return p.current().FetchLevel1(ctx, parentIDs)
}

// FetchLevel2 returns the Level2 children of parentIDs.
func (p *Provider) FetchLevel2(ctx context.Context, parentIDs domain.Selection) ([]domain.Item, error) {
	return p.current().FetchLevel2(ctx, parentIDs)
}
