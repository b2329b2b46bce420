package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/internal/compiler"
	"github.com/aretw0/stepwise/internal/config"
	"github.com/aretw0/stepwise/pkg/adapters/catalog"
	"github.com/aretw0/stepwise/pkg/adapters/rest"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// app is everything a wizard needs except its session key.
type app struct {
	flow     *compiler.Flow
	provider *catalog.Provider
	storage  *storage
	hooks    domain.LifecycleHooks
}

// loadFlow compiles the flow file. An external catalog file replaces the
// inline one and can be reloaded later.
func loadFlow(path, catalogPath string, logger *slog.Logger) (*compiler.Flow, *catalog.Provider, error) {
	flow, err := compiler.NewParser().ParseFile(path)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case catalogPath != "":
		p, err := catalog.NewFileProvider(catalogPath, catalog.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return flow, p, nil
	case flow.Catalog != nil:
		p, err := catalog.NewProvider(flow.Catalog, catalog.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return flow, p, nil
	default:
		return flow, nil, nil
	}
}

// submitter checks selections against the catalog and forwards accepted
// payloads to the configured endpoint, if any.
func submitter(c config.SubmitConfig, steps []domain.StepDefinition, p *catalog.Provider, logger *slog.Logger) ports.Submitter {
	var next ports.Submitter
	if c.Endpoint != "" {
		opts := []rest.Option{
			rest.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
			rest.WithLogger(logger),
		}
		if c.Token != "" {
			opts = append(opts, rest.WithHeader("Authorization", "Bearer "+c.Token))
		}
		next = rest.New(c.Endpoint, opts...)
	}
	if p == nil {
		return next
	}
	return catalog.NewSubmitter(p, steps, next)
}

// newWizard builds a wizard for key over the loaded flow.
func (a *app) newWizard(key string) (*stepwise.Wizard, error) {
	opts := []stepwise.Option{
		stepwise.WithStore(a.storage.store),
		stepwise.WithLifecycleHooks(a.hooks),
		stepwise.WithLogger(logger),
		stepwise.WithSubmitTimeout(cfg.Submit.Timeout),
	}
	if a.provider != nil {
		opts = append(opts, stepwise.WithProvider(a.provider))
	}
	if s := submitter(cfg.Submit, a.flow.Steps, a.provider, logger); s != nil {
		opts = append(opts, stepwise.WithSubmitter(s))
	}
	wz, err := stepwise.New(key, a.flow.Steps, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create wizard: %w", err)
	}
	return wz, nil
}
