package hierarchy

import (
	"sort"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// RootGroup is the group key used for Level0 items, which have no parent.
const RootGroup = ""

// Groups maps a parent id to its visible children, in input order.
type Groups map[string][]domain.Item

// Keys returns the parent ids in lexical order.
func (g Groups) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ItemIDs returns every item id across all groups, in group order.
func (g Groups) ItemIDs() []string {
	var ids []string
	for _, k := range g.Keys() {
		for _, item := range g[k] {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// GroupIDs returns the item ids of one group.
func (g Groups) GroupIDs(parentID string) []string {
	items := g[parentID]
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

// Len returns the total number of items.
func (g Groups) Len() int {
	n := 0
	for _, items := range g {
		n += len(items)
	}
	return n
}

// Stats returns GroupStats for every group.
func (g Groups) Stats(selection domain.Selection) map[string]Stats {
	out := make(map[string]Stats, len(g))
	for k, items := range g {
		out[k] = GroupStats(items, selection)
	}
	return out
}

// FilterByParentSelection keeps the items whose parent is selected and groups
// them by parent. An empty parent selection yields an empty result, which
// callers render as "select something upstream first".
func FilterByParentSelection(items []domain.Item, parentSelection domain.Selection) Groups {
	out := Groups{}
	if parentSelection.IsEmpty() {
		return out
	}
	for _, item := range items {
		if parentSelection.Has(item.ParentID) {
			out[item.ParentID] = append(out[item.ParentID], item)
		}
	}
	return out
}

// Search keeps items whose name or any attribute value contains query,
// case-insensitively. Groups left empty are dropped. An empty query returns
// a copy of the input.
func Search(groups Groups, query string) Groups {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make(Groups, len(groups))
	for k, items := range groups {
		var kept []domain.Item
		for _, item := range items {
			if q == "" || matches(item, q) {
				kept = append(kept, item)
			}
		}
		if len(kept) > 0 {
			out[k] = kept
		}
	}
	return out
}

func matches(item domain.Item, q string) bool {
	if strings.Contains(strings.ToLower(item.Name), q) {
		return true
	}
	for _, v := range item.Attributes {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}
