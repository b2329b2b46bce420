package dsl

import "github.com/aretw0/stepwise/pkg/domain"

// StepBuilder configures one step.
type StepBuilder struct {
	step   domain.StepDefinition
	parent string
	level  *domain.Level
	gates  []domain.Gate
}

// Title sets the display title.
func (s *StepBuilder) Title(title string) *StepBuilder {
	s.step.Title = title
	return s
}

// Roots feeds the step with Level0 items.
func (s *StepBuilder) Roots() *StepBuilder {
	level := domain.Level0
	s.level = &level
	s.parent = ""
	s.step.Kind = domain.KindSelection
	return s
}

// ChildrenOf feeds the step with the children of the selection committed at
// parentStep. The level is one below the parent's unless Level overrides it.
func (s *StepBuilder) ChildrenOf(parentStep string) *StepBuilder {
	s.parent = parentStep
	s.step.Kind = domain.KindSelection
	return s
}

// Level pins the hierarchy level of the step.
func (s *StepBuilder) Level(level domain.Level) *StepBuilder {
	s.level = &level
	return s
}

// Fields marks the step as a form step without hierarchy options.
func (s *StepBuilder) Fields() *StepBuilder {
	s.step.Kind = domain.KindFields
	s.level = nil
	s.parent = ""
	return s
}

// Gate adds a custom gate. Gates combine with logical AND.
func (s *StepBuilder) Gate(g domain.Gate) *StepBuilder {
	s.gates = append(s.gates, g)
	return s
}

// RequireSelection requires non-empty selections at stepIDs. Without
// arguments it requires the step's own selection.
func (s *StepBuilder) RequireSelection(stepIDs ...string) *StepBuilder {
	if len(stepIDs) == 0 {
		stepIDs = []string{s.step.ID}
	}
	return s.Gate(domain.RequireSelection(stepIDs...))
}

// RequireCommitted requires payloads at stepIDs.
func (s *StepBuilder) RequireCommitted(stepIDs ...string) *StepBuilder {
	return s.Gate(domain.RequireCommitted(stepIDs...))
}
