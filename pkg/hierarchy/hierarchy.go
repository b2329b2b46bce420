package hierarchy

import (
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Hierarchy holds validated item lists for up to three levels.
type Hierarchy struct {
	levels [][]domain.Item
}

// New validates and indexes the given levels (Level0 first).
// Malformed items are rejected here, at the boundary where external data
// enters; duplicated ids within a level keep the first occurrence.
func New(levels ...[]domain.Item) (*Hierarchy, error) {
	if len(levels) > int(domain.Level2)+1 {
		return nil, fmt.Errorf("hierarchy supports at most 3 levels, got %d", len(levels))
	}

	h := &Hierarchy{levels: make([][]domain.Item, len(levels))}
	for i, items := range levels {
		level := domain.Level(i)
		if err := ValidateItems(level, items); err != nil {
			return nil, err
		}
		h.levels[i] = dedupe(items)
	}
	return h, nil
}

// ValidateItems checks every item for the given level.
func ValidateItems(level domain.Level, items []domain.Item) error {
	for _, item := range items {
		if err := item.Validate(level); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(items []domain.Item) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Depth returns the number of loaded levels.
func (h *Hierarchy) Depth() int {
	return len(h.levels)
}

// Items returns a copy of the items at level.
func (h *Hierarchy) Items(level domain.Level) []domain.Item {
	if int(level) >= len(h.levels) || level < 0 {
		return nil
	}
	return append([]domain.Item(nil), h.levels[level]...)
}

// Roots returns every Level0 item as a single group keyed by RootGroup.
func (h *Hierarchy) Roots() Groups {
	roots := h.Items(domain.Level0)
	if len(roots) == 0 {
		return Groups{}
	}
	return Groups{RootGroup: roots}
}

// Children returns the items of level whose parent is selected, grouped by parent.
// Items whose parent does not exist in the level above are excluded.
func (h *Hierarchy) Children(level domain.Level, parentSelection domain.Selection) Groups {
	if level == domain.Level0 {
		return h.Roots()
	}
	parents := make(map[string]struct{})
	for _, p := range h.Items(level - 1) {
		parents[p.ID] = struct{}{}
	}

	attached := make([]domain.Item, 0)
	for _, item := range h.Items(level) {
		if _, ok := parents[item.ParentID]; ok {
			attached = append(attached, item)
		}
	}
	return FilterByParentSelection(attached, parentSelection)
}

// Dangling returns the items of level whose parent is missing from the level above.
func (h *Hierarchy) Dangling(level domain.Level) []domain.Item {
	if level == domain.Level0 {
		return nil
	}
	parents := make(map[string]struct{})
	for _, p := range h.Items(level - 1) {
		parents[p.ID] = struct{}{}
	}
	var out []domain.Item
	for _, item := range h.Items(level) {
		if _, ok := parents[item.ParentID]; !ok {
			out = append(out, item)
		}
	}
	return out
}
