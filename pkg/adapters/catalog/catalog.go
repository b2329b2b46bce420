package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/hierarchy"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCatalog is returned when a catalog fails integrity checks.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is a static three-level item tree as written in YAML:
//
//	level0:
//	  - {id: hr, name: HR}
//	level1:
//	  - {id: hr.emp, name: Employees, parent: hr}
//	level2:
//	  - {id: api.emp.list, name: List employees, parent: hr.emp}
type Catalog struct {
	Level0 []domain.Item `yaml:"level0" json:"level0"`
	Level1 []domain.Item `yaml:"level1,omitempty" json:"level1,omitempty"`
	Level2 []domain.Item `yaml:"level2,omitempty" json:"level2,omitempty"`
}

// Parse decodes a catalog document. Unknown fields are rejected.
func Parse(data []byte) (*Catalog, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a catalog document from r.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return &c, nil
}

// LoadFile reads and validates the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Levels returns the item lists, Level0 first, trimmed after the last
// non-empty level.
func (c *Catalog) Levels() [][]domain.Item {
	levels := [][]domain.Item{c.Level0, c.Level1, c.Level2}
	for len(levels) > 1 && len(levels[len(levels)-1]) == 0 {
		levels = levels[:len(levels)-1]
	}
	return levels
}

// Validate checks item shape, global id uniqueness and that every child
// points at an existing parent one level up. All problems are reported.
func (c *Catalog) Validate() error {
	var problems []string
	seen := make(map[string]domain.Level)

	levels := [][]domain.Item{c.Level0, c.Level1, c.Level2}
	for i, items := range levels {
		level := domain.Level(i)
		var parents map[string]struct{}
		if level > domain.Level0 {
			parents = make(map[string]struct{}, len(levels[i-1]))
			for _, p := range levels[i-1] {
				parents[p.ID] = struct{}{}
			}
		}

		for _, item := range items {
			if err := item.Validate(level); err != nil {
				problems = append(problems, err.Error())
				continue
			}
			if prev, dup := seen[item.ID]; dup {
				problems = append(problems, fmt.Sprintf("duplicate id %q in %s (first seen in %s)", item.ID, level, prev))
				continue
			}
			seen[item.ID] = level
			if parents != nil {
				if _, ok := parents[item.ParentID]; !ok {
					problems = append(problems, fmt.Sprintf("%s item %q has unknown parent %q", level, item.ID, item.ParentID))
				}
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

// Hierarchy builds the read model of the catalog.
func (c *Catalog) Hierarchy() (*hierarchy.Hierarchy, error) {
	return hierarchy.New(c.Levels()...)
}

// Lookup returns the item with id and its level.
func (c *Catalog) Lookup(id string) (domain.Item, domain.Level, bool) {
	for i, items := range [][]domain.Item{c.Level0, c.Level1, c.Level2} {
		for _, item := range items {
			if item.ID == id {
				return item, domain.Level(i), true
			}
		}
	}
	return domain.Item{}, 0, false
}
