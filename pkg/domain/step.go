package domain

import "fmt"

// Gate is a predicate over payloads that must hold before a step may be committed.
// It is evaluated once, at commit time, over the committed payloads plus the
// candidate payload of the step being committed.
type Gate func(Payloads) bool

// LevelSource tells the step runner which hierarchy level feeds a step.
type LevelSource struct {
	Level Level `json:"level" yaml:"level"`

	// ParentStep is the step whose committed selection filters this level.
	// It is empty for Level0.
	ParentStep string `json:"parent_step,omitempty" yaml:"parent_step,omitempty"`
}

// StepDefinition declares one step of a wizard. It is immutable once a session starts.
type StepDefinition struct {
	ID    string
	Title string
	Kind  PayloadKind
	Gate  Gate

	// Source is nil for steps that do not show hierarchy options.
	Source *LevelSource
}

// Allows evaluates the gate. A nil gate always allows.
func (s StepDefinition) Allows(payloads Payloads) bool {
	if s.Gate == nil {
		return true
	}
	return s.Gate(payloads)
}

// Accepts checks that p is the payload variant this step expects.
func (s StepDefinition) Accepts(p Payload) error {
	if p == nil {
		return fmt.Errorf("%w: step %s got nil payload", ErrPayloadKind, s.ID)
	}
	if p.Kind() != s.Kind {
		return fmt.Errorf("%w: step %s expects %s, got %s", ErrPayloadKind, s.ID, s.Kind, p.Kind())
	}
	return nil
}

// Always is a gate that never blocks.
func Always() Gate {
	return func(Payloads) bool { return true }
}

// RequireCommitted holds when every listed step has a payload.
func RequireCommitted(stepIDs ...string) Gate {
	return func(p Payloads) bool {
		for _, id := range stepIDs {
			if _, ok := p[id]; !ok {
				return false
			}
		}
		return true
	}
}

// RequireSelection holds when every listed step committed a non-empty selection.
func RequireSelection(stepIDs ...string) Gate {
	return func(p Payloads) bool {
		for _, id := range stepIDs {
			sel, ok := p.Selection(id)
			if !ok || sel.IsEmpty() {
				return false
			}
		}
		return true
	}
}

// AllOf combines gates with logical AND.
func AllOf(gates ...Gate) Gate {
	return func(p Payloads) bool {
		for _, g := range gates {
			if g != nil && !g(p) {
				return false
			}
		}
		return true
	}
}

// ValidateSteps checks that a step list can drive a session: at least one step,
// unique non-empty ids, known payload kinds, and level sources that point at an
// earlier selection step.
func ValidateSteps(steps []StepDefinition) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidSteps)
	}

	index := make(map[string]int, len(steps))
	for i, step := range steps {
		if step.ID == "" {
			return fmt.Errorf("%w: step %d has no id", ErrInvalidSteps, i)
		}
		if _, dup := index[step.ID]; dup {
			return fmt.Errorf("%w: duplicate step id %q", ErrInvalidSteps, step.ID)
		}
		if step.Kind != KindSelection && step.Kind != KindFields {
			return fmt.Errorf("%w: step %q has unknown kind %q", ErrInvalidSteps, step.ID, step.Kind)
		}
		index[step.ID] = i

		src := step.Source
		if src == nil {
			continue
		}
		if !src.Level.Valid() {
			return fmt.Errorf("%w: step %q has invalid level %d", ErrInvalidSteps, step.ID, src.Level)
		}
		if src.Level == Level0 {
			continue
		}
		parent, ok := index[src.ParentStep]
		if !ok || parent >= i {
			return fmt.Errorf("%w: step %q depends on %q which is not an earlier step", ErrInvalidSteps, step.ID, src.ParentStep)
		}
		if steps[parent].Kind != KindSelection {
			return fmt.Errorf("%w: step %q depends on non-selection step %q", ErrInvalidSteps, step.ID, src.ParentStep)
		}
	}
	return nil
}
