package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter   EventType = "step_enter"
	EventStepCommit  EventType = "step_commit"
	EventStepFailure EventType = "step_failure"
	EventFetch       EventType = "fetch"
	EventComplete    EventType = "session_complete"
	EventAbandon     EventType = "session_abandon"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	SessionKey string    `json:"session_key"`
}

// StepEvent represents entering, committing or failing a step.
type StepEvent struct {
	EventBase
	StepID string     `json:"step_id"`
	Index  int        `json:"index"`
	Error  *StepError `json:"error,omitempty"`
}

// FetchEvent represents one hierarchy fetch issued by the step runner.
type FetchEvent struct {
	EventBase
	StepID   string        `json:"step_id"`
	Level    Level         `json:"level"`
	Parents  int           `json:"parents"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for wizard observability.
type LifecycleHooks struct {
	OnStepEnter   func(context.Context, *StepEvent)
	OnStepCommit  func(context.Context, *StepEvent)
	OnStepFailure func(context.Context, *StepEvent)
	OnFetch       func(context.Context, *FetchEvent)
	OnComplete    func(context.Context, *StepEvent)
	OnAbandon     func(context.Context, *StepEvent)
}
