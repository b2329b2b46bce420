package domain

import "fmt"

// Level identifies a tier of the selection hierarchy.
type Level int

const (
	Level0 Level = iota // Roots, e.g. modules
	Level1              // Children of Level0, e.g. permission groups
	Level2              // Children of Level1, e.g. fine-grained permissions
)

// Valid reports whether l is one of the three supported levels.
func (l Level) Valid() bool {
	return l >= Level0 && l <= Level2
}

func (l Level) String() string {
	return fmt.Sprintf("level%d", int(l))
}

// Item is a selectable option at any level of the hierarchy.
type Item struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	ParentID string `json:"parent_id,omitempty" yaml:"parent,omitempty"`

	// Attributes is a free-form bag (description, action, resource...).
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Validate rejects items that cannot be placed in the hierarchy.
// Level0 items are unconstrained; deeper items must name a parent.
func (i Item) Validate(level Level) error {
	if i.ID == "" {
		return fmt.Errorf("%w: %s item %q has no id", ErrMalformedItem, level, i.Name)
	}
	if level > Level0 && i.ParentID == "" {
		return fmt.Errorf("%w: %s item %q has no parent", ErrMalformedItem, level, i.ID)
	}
	return nil
}
