package hierarchy

import "github.com/aretw0/stepwise/pkg/domain"

// Stats describes how much of a group is selected.
type Stats struct {
	Selected int `json:"selected"`
	Total    int `json:"total"`
}

// All reports whether every item of the group is selected.
func (s Stats) All() bool {
	return s.Total > 0 && s.Selected == s.Total
}

// ToggleItem adds itemID if absent and removes it if present.
func ToggleItem(selection domain.Selection, itemID string) domain.Selection {
	return selection.Toggle(itemID)
}

// ToggleGroup deselects the whole group when all of it is selected and
// otherwise selects all of it. A partially selected group is completed,
// never cleared.
func ToggleGroup(selection domain.Selection, groupItemIDs []string) domain.Selection {
	if len(groupItemIDs) > 0 && selection.ContainsAll(groupItemIDs) {
		return selection.Without(groupItemIDs...)
	}
	return selection.Union(groupItemIDs...)
}

// SelectAll selects the full candidate set, regardless of any search filter.
func SelectAll(allItemIDs []string) domain.Selection {
	return domain.NewSelection(allItemIDs...)
}

// ClearAll returns an empty selection.
func ClearAll() domain.Selection {
	return domain.EmptySelection()
}

// GroupStats counts the selected items of a group.
func GroupStats(groupItems []domain.Item, selection domain.Selection) Stats {
	stats := Stats{Total: len(groupItems)}
	for _, item := range groupItems {
		if selection.Has(item.ID) {
			stats.Selected++
		}
	}
	return stats
}

// Prune drops ids that are not in visibleIDs. The wizard never calls it:
// stale downstream ids are kept until the user changes them. It exists for
// hosts that want to confirm and discard them explicitly.
func Prune(selection domain.Selection, visibleIDs []string) domain.Selection {
	visible := domain.NewSelection(visibleIDs...)
	var keep []string
	for _, id := range selection.IDs() {
		if visible.Has(id) {
			keep = append(keep, id)
		}
	}
	return domain.NewSelection(keep...)
}
