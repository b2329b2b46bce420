package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// ErrUnknownItem is returned when a submitted id is not in the catalog at the
// step's level.
var ErrUnknownItem = errors.New("item not in catalog")

// Submitter checks selection payloads against the catalog before they are
// committed. Unknown ids fail as blocking: the catalog changed under the user
// and retrying the same payload cannot succeed. Ids whose parent is no longer
// selected upstream are stale, not unknown, and pass.
type Submitter struct {
	provider *Provider
	sources  map[string]*domain.LevelSource
	next     ports.Submitter
}

// NewSubmitter validates submissions of steps against p. When next is not
// nil, accepted payloads are forwarded to it.
func NewSubmitter(p *Provider, steps []domain.StepDefinition, next ports.Submitter) *Submitter {
	sources := make(map[string]*domain.LevelSource, len(steps))
	for _, step := range steps {
		if step.Source != nil {
			sources[step.ID] = step.Source
		}
	}
	return &Submitter{provider: p, sources: sources, next: next}
}

// SubmitStep implements ports.Submitter.
func (s *Submitter) SubmitStep(ctx context.Context, req ports.SubmitRequest) (ports.SubmitResult, error) {
	if err := s.check(req); err != nil {
		return ports.SubmitResult{}, err
	}
	if s.next != nil {
		return s.next.SubmitStep(ctx, req)
	}
	return ports.SubmitResult{Committed: req.Payload}, nil
}

func (s *Submitter) check(req ports.SubmitRequest) error {
	source, ok := s.sources[req.StepID]
	if !ok {
		return nil
	}
	payload, ok := req.Payload.(domain.SelectionPayload)
	if !ok {
		return nil
	}

	c := s.provider.Catalog()
	var missing []string
	for _, id := range payload.Selection.IDs() {
		if _, level, found := c.Lookup(id); !found || level != source.Level {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return domain.Blocking(fmt.Errorf("%w: %s", ErrUnknownItem, strings.Join(missing, ", ")))
	}
	return nil
}
