package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
)

var errNoProvider = errors.New("no provider configured for level")

// StepData is what a step shows: its grouped options and the parent
// selection they were filtered by.
type StepData struct {
	StepID  string
	Level   domain.Level
	Parents domain.Selection
	Groups  hierarchy.Groups
}

// HasOptions reports whether the step is fed by the hierarchy.
func (d StepData) HasOptions() bool {
	return d.Groups != nil
}

// Resolve loads the options of step given the payloads committed upstream.
// Steps without a level source resolve to empty data. For Level1 and Level2,
// an empty parent selection yields empty groups without calling the provider.
// Failures are returned as *domain.StepError wrapping domain.ErrFetchFailure.
func (r *Runner) Resolve(ctx context.Context, sessionKey string, step domain.StepDefinition, upstream domain.Payloads) (StepData, error) {
	data := StepData{StepID: step.ID, Parents: domain.EmptySelection()}
	if step.Source == nil {
		return data, nil
	}
	data.Level = step.Source.Level

	if data.Level != domain.Level0 {
		if sel, ok := upstream.Selection(step.Source.ParentStep); ok {
			data.Parents = sel
		}
		if data.Parents.IsEmpty() {
			data.Groups = hierarchy.Groups{}
			return data, nil
		}
	}

	items, err := r.fetch(ctx, sessionKey, step.ID, data.Level, data.Parents)
	if err != nil {
		r.logger.Warn("Fetch failed",
			"session_key", sessionKey,
			"step_id", step.ID,
			"level", data.Level.String(),
			"err", err,
		)
		return data, domain.Classify(step.ID, domain.ErrFetchFailure, err)
	}

	if data.Level == domain.Level0 {
		data.Groups = hierarchy.Groups{hierarchy.RootGroup: items}
	} else {
		// Providers may over-fetch; only children of selected parents are shown.
		data.Groups = hierarchy.FilterByParentSelection(items, data.Parents)
	}
	return data, nil
}

// fetch collapses identical concurrent requests into one provider call.
func (r *Runner) fetch(ctx context.Context, sessionKey, stepID string, level domain.Level, parents domain.Selection) ([]domain.Item, error) {
	key := level.String() + "|" + strings.Join(parents.IDs(), ",")

	start := r.now()
	v, err, shared := r.flights.Do(key, func() (any, error) {
		items, err := r.call(ctx, level, parents)
		if err != nil {
			return nil, err
		}
		// Items enter the engine here; reject malformed ones before they reach a session.
		if err := hierarchy.ValidateItems(level, items); err != nil {
			return nil, err
		}
		return items, nil
	})
	duration := r.now().Sub(start)

	var items []domain.Item
	if err == nil {
		items = v.([]domain.Item)
	}

	r.logger.Debug("Fetched level",
		"session_key", sessionKey,
		"step_id", stepID,
		"level", level.String(),
		"parents", parents.Len(),
		"items", len(items),
		"shared", shared,
	)

	if r.hooks.OnFetch != nil {
		r.hooks.OnFetch(ctx, &domain.FetchEvent{
			EventBase: domain.EventBase{
				Timestamp:  r.now(),
				Type:       domain.EventFetch,
				SessionKey: sessionKey,
			},
			StepID:   stepID,
			Level:    level,
			Parents:  parents.Len(),
			Items:    len(items),
			Duration: duration,
			IsError:  err != nil,
		})
	}

	if err != nil {
		return nil, err
	}
	// Shared results must not be mutated by one caller under another.
	return append([]domain.Item(nil), items...), nil
}

func (r *Runner) call(ctx context.Context, level domain.Level, parents domain.Selection) ([]domain.Item, error) {
	switch level {
	case domain.Level0:
		if r.roots == nil {
			return nil, fmt.Errorf("%w %s", errNoProvider, level)
		}
		return r.roots.FetchRoots(ctx)
	case domain.Level1:
		if r.provider == nil {
			return nil, fmt.Errorf("%w %s", errNoProvider, level)
		}
		return r.provider.FetchLevel1(ctx, parents)
	case domain.Level2:
		if r.provider == nil {
			return nil, fmt.Errorf("%w %s", errNoProvider, level)
		}
		return r.provider.FetchLevel2(ctx, parents)
	default:
		return nil, fmt.Errorf("unsupported level %d", level)
	}
}
