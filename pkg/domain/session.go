package domain

import "fmt"

// SessionStatus is the lifecycle state of a wizard session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress" // Steps are being filled in
	StatusCompleted  SessionStatus = "completed"   // Final step committed
	StatusAbandoned  SessionStatus = "abandoned"   // User exited, payloads discarded
)

// OpTag identifies the session state an asynchronous operation was issued for.
// Results whose tag no longer matches are discarded on arrival.
type OpTag struct {
	Generation uint64
	Index      int
}

// Session is the wizard state machine. It owns its payloads; the transition
// methods are the only way to mutate it. Session is not safe for concurrent use:
// the Wizard serializes access.
type Session struct {
	Key          string
	Steps        []StepDefinition
	CurrentIndex int
	Payloads     Payloads
	Status       SessionStatus

	// TransientError and Loading are never persisted.
	TransientError *StepError
	Loading        bool

	// Generation increments on every transition.
	Generation uint64
}

// NewSession creates a fresh session positioned at the first step.
func NewSession(key string, steps []StepDefinition) (*Session, error) {
	if err := ValidateSteps(steps); err != nil {
		return nil, err
	}
	return &Session{
		Key:      key,
		Steps:    steps,
		Payloads: Payloads{},
		Status:   StatusInProgress,
	}, nil
}

// Resume rebuilds a session from recovered payloads. Payloads for unknown steps
// or of the wrong variant are dropped. The session is positioned at the first
// step without a committed payload, or at the last step when all are present.
// Gates are not re-evaluated.
func Resume(key string, steps []StepDefinition, payloads Payloads) (*Session, error) {
	s, err := NewSession(key, steps)
	if err != nil {
		return nil, err
	}

	for _, step := range steps {
		if p, ok := payloads[step.ID]; ok && step.Accepts(p) == nil {
			s.Payloads[step.ID] = p
		}
	}

	s.CurrentIndex = len(steps) - 1
	for i, step := range steps {
		if _, ok := s.Payloads[step.ID]; !ok {
			s.CurrentIndex = i
			break
		}
	}
	return s, nil
}

// Open reports whether the session still accepts transitions.
func (s *Session) Open() bool {
	return s.Status == StatusInProgress
}

// Current returns the active step definition.
func (s *Session) Current() StepDefinition {
	return s.Steps[s.CurrentIndex]
}

// IsLast reports whether the active step is the final one.
func (s *Session) IsLast() bool {
	return s.CurrentIndex == len(s.Steps)-1
}

// Tag returns the identity to attach to an operation issued now.
func (s *Session) Tag() OpTag {
	return OpTag{Generation: s.Generation, Index: s.CurrentIndex}
}

// Matches reports whether an operation issued with tag may still be applied.
func (s *Session) Matches(tag OpTag) bool {
	return s.Open() && s.Tag() == tag
}

// CheckAdvance validates a candidate payload for the active step without
// mutating anything. It must pass before any I/O is attempted.
func (s *Session) CheckAdvance(p Payload) error {
	if !s.Open() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	step := s.Current()
	if err := step.Accepts(p); err != nil {
		return err
	}
	if !step.Allows(s.Payloads.With(step.ID, p)) {
		return fmt.Errorf("%w: step %s", ErrGateViolation, step.ID)
	}
	return nil
}

// Commit stores p as the active step's payload and advances. It reports whether
// the session completed.
func (s *Session) Commit(p Payload) (bool, error) {
	if err := s.CheckAdvance(p); err != nil {
		return false, err
	}

	s.Payloads = s.Payloads.With(s.Current().ID, p)
	s.TransientError = nil
	s.Loading = false
	s.Generation++

	if s.IsLast() {
		s.Status = StatusCompleted
		return true, nil
	}
	s.CurrentIndex++
	return false, nil
}

// Retreat moves one step back, keeping payloads of later steps. From the first
// step it abandons the session; the returned flag reports that case.
func (s *Session) Retreat() (bool, error) {
	if !s.Open() {
		return false, fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	if s.CurrentIndex == 0 {
		return s.Abandon(), nil
	}
	s.CurrentIndex--
	s.reset()
	return false, nil
}

// JumpTo revisits an earlier step. Payloads are left untouched.
func (s *Session) JumpTo(index int) error {
	if !s.Open() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, s.Status)
	}
	if index < 0 || index >= s.CurrentIndex {
		return fmt.Errorf("%w: %d (current %d)", ErrInvalidJump, index, s.CurrentIndex)
	}
	s.CurrentIndex = index
	s.reset()
	return nil
}

// Abandon discards all payloads. It reports false when the session was already closed.
func (s *Session) Abandon() bool {
	if !s.Open() {
		return false
	}
	s.Status = StatusAbandoned
	s.Payloads = Payloads{}
	s.reset()
	return true
}

// Fail records a failed operation on the active step. Payloads are not touched.
func (s *Session) Fail(err *StepError) {
	s.TransientError = err
	s.Loading = false
}

// DismissError clears the transient error.
func (s *Session) DismissError() {
	s.TransientError = nil
}

// SetLoading toggles the transient loading flag.
func (s *Session) SetLoading(loading bool) {
	s.Loading = loading
}

func (s *Session) reset() {
	s.TransientError = nil
	s.Loading = false
	s.Generation++
}

// Clone returns a copy that can be handed to readers.
func (s *Session) Clone() *Session {
	out := *s
	out.Payloads = s.Payloads.Clone()
	out.Steps = append([]StepDefinition(nil), s.Steps...)
	if s.TransientError != nil {
		e := *s.TransientError
		out.TransientError = &e
	}
	return &out
}

// Snapshot returns the persisted form of the session.
func (s *Session) Snapshot() *Snapshot {
	return &Snapshot{
		SessionKey:   s.Key,
		Payloads:     s.Payloads.Clone(),
		CurrentIndex: s.CurrentIndex,
	}
}
