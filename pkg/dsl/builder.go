package dsl

import (
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Builder collects steps in the order they are added.
type Builder struct {
	order []*StepBuilder
	index map[string]*StepBuilder
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{
		index: make(map[string]*StepBuilder),
	}
}

// Add appends a step. If the id already exists, it returns the existing builder.
func (b *Builder) Add(id string) *StepBuilder {
	if sb, ok := b.index[id]; ok {
		return sb
	}
	sb := &StepBuilder{
		step: domain.StepDefinition{
			ID:   id,
			Kind: domain.KindSelection,
		},
	}
	b.index[id] = sb
	b.order = append(b.order, sb)
	return sb
}

// Build resolves levels and gates and validates the result.
func (b *Builder) Build() ([]domain.StepDefinition, error) {
	steps := make([]domain.StepDefinition, 0, len(b.order))
	levels := make(map[string]domain.Level, len(b.order))

	for _, sb := range b.order {
		step := sb.step
		switch {
		case sb.parent != "":
			parentLevel, ok := levels[sb.parent]
			if !ok {
				return nil, fmt.Errorf("%w: step %q depends on %q which is not an earlier hierarchy step", domain.ErrInvalidSteps, step.ID, sb.parent)
			}
			level := parentLevel + 1
			if sb.level != nil {
				level = *sb.level
			}
			step.Source = &domain.LevelSource{Level: level, ParentStep: sb.parent}
		case sb.level != nil:
			step.Source = &domain.LevelSource{Level: *sb.level}
		}
		if step.Source != nil {
			levels[step.ID] = step.Source.Level
		}

		switch len(sb.gates) {
		case 0:
		case 1:
			step.Gate = sb.gates[0]
		default:
			step.Gate = domain.AllOf(sb.gates...)
		}
		steps = append(steps, step)
	}

	if err := domain.ValidateSteps(steps); err != nil {
		return nil, err
	}
	return steps, nil
}
