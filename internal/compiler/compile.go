package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/dsl"
)

func compile(raw rawFlow) (*Flow, error) {
	problems := check(raw)
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w:\n- %s", ErrInvalidFlow, strings.Join(problems, "\n- "))
	}

	b := dsl.New()
	for _, rs := range raw.Steps {
		sb := b.Add(rs.ID).Title(rs.Title)
		switch {
		case rs.Kind == domain.KindFields:
			sb.Fields()
		case rs.Parent != "":
			sb.ChildrenOf(rs.Parent)
			if rs.Level != nil {
				sb.Level(domain.Level(*rs.Level))
			}
		case rs.Level != nil:
			sb.Level(domain.Level(*rs.Level))
		}
		if len(rs.RequireSelection) > 0 {
			sb.RequireSelection(rs.RequireSelection...)
		}
		if len(rs.RequireCommitted) > 0 {
			sb.RequireCommitted(rs.RequireCommitted...)
		}
	}

	steps, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}

	if raw.Catalog != nil {
		if depth := len(raw.Catalog.Levels()); deepest(steps) >= depth {
			return nil, fmt.Errorf("%w: steps use %s but the catalog has %d level(s)", ErrInvalidFlow, domain.Level(deepest(steps)), depth)
		}
	}

	return &Flow{
		Name:    raw.Name,
		Title:   raw.Title,
		Steps:   steps,
		Catalog: raw.Catalog,
	}, nil
}

// check reports structural problems the builder cannot see: unknown kinds,
// gate references and catalog integrity.
func check(raw rawFlow) []string {
	var problems []string
	if len(raw.Steps) == 0 {
		problems = append(problems, "flow has no steps")
	}

	ids := make(map[string]int, len(raw.Steps))
	for i, rs := range raw.Steps {
		if rs.ID == "" {
			problems = append(problems, fmt.Sprintf("step %d has no id", i))
			continue
		}
		if _, dup := ids[rs.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate step id %q", rs.ID))
			continue
		}
		ids[rs.ID] = i

		switch rs.Kind {
		case "", domain.KindSelection:
		case domain.KindFields:
			if rs.Parent != "" || rs.Level != nil {
				problems = append(problems, fmt.Sprintf("fields step %q cannot have a level or parent", rs.ID))
			}
		default:
			problems = append(problems, fmt.Sprintf("step %q has unknown kind %q", rs.ID, rs.Kind))
		}
		if rs.Level != nil && !domain.Level(*rs.Level).Valid() {
			problems = append(problems, fmt.Sprintf("step %q has invalid level %d", rs.ID, *rs.Level))
		}
		if rs.Parent != "" {
			if j, ok := ids[rs.Parent]; !ok || j >= i {
				problems = append(problems, fmt.Sprintf("step %q depends on %q which is not an earlier step", rs.ID, rs.Parent))
			}
		}
	}

	for _, rs := range raw.Steps {
		for _, ref := range append(append([]string(nil), rs.RequireSelection...), rs.RequireCommitted...) {
			if _, ok := ids[ref]; !ok {
				problems = append(problems, fmt.Sprintf("step %q gate refers to unknown step %q", rs.ID, ref))
			}
		}
	}

	if raw.Catalog != nil {
		if err := raw.Catalog.Validate(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return problems
}

func deepest(steps []domain.StepDefinition) int {
	max := -1
	for _, s := range steps {
		if s.Source != nil && int(s.Source.Level) > max {
			max = int(s.Source.Level)
		}
	}
	return max
}
