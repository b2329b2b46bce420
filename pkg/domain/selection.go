package domain

import (
	"encoding/json"
	"sort"
)

// Selection is an immutable set of selected item ids.
// Every mutating operation returns a new Selection; the zero value is empty.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection builds a selection from ids. Duplicates collapse.
func NewSelection(ids ...string) Selection {
	s := Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// EmptySelection returns a selection with no ids.
func EmptySelection() Selection {
	return Selection{}
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s Selection) Len() int {
	return len(s.ids)
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return len(s.ids) == 0
}

// IDs returns the selected ids in lexical order.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both selections hold the same ids.
func (s Selection) Equal(other Selection) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// ContainsAll reports whether every id is selected. An empty list is vacuously contained.
func (s Selection) ContainsAll(ids []string) bool {
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
	}
	return true
}

// Toggle returns the symmetric difference of s and {id}.
func (s Selection) Toggle(id string) Selection {
	next := s.clone(1)
	if _, ok := next.ids[id]; ok {
		delete(next.ids, id)
	} else {
		next.ids[id] = struct{}{}
	}
	return next
}

// Union returns s with ids added.
func (s Selection) Union(ids ...string) Selection {
	next := s.clone(len(ids))
	for _, id := range ids {
		next.ids[id] = struct{}{}
	}
	return next
}

// Without returns s with ids removed.
func (s Selection) Without(ids ...string) Selection {
	next := s.clone(0)
	for _, id := range ids {
		delete(next.ids, id)
	}
	return next
}

func (s Selection) clone(extra int) Selection {
	next := Selection{ids: make(map[string]struct{}, len(s.ids)+extra)}
	for id := range s.ids {
		next.ids[id] = struct{}{}
	}
	return next
}

// MarshalJSON encodes the selection as a sorted array of ids.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an array of ids. null decodes to an empty selection.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSelection(ids...)
	return nil
}
