package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter EventType = "step_enter"
	EventStepLeave EventType = "step_leave"
	EventStepError EventType = "step_error"
	EventRoute     EventType = "route"
	EventRunFinish EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// StepEvent represents entry into, exit from, or failure of a step.
type StepEvent struct {
	EventBase
	Step     string        `json:"step"`
	Terminal bool          `json:"terminal,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RouteEvent represents a routing decision after a step.
type RouteEvent struct {
	EventBase
	From   string `json:"from"`
	Label  Label  `json:"label,omitempty"`
	Target string `json:"target"`
}

// RunEvent is emitted once per run, after it succeeds or aborts.
type RunEvent struct {
	EventBase
	Visited    []string      `json:"visited"`
	FailedStep string        `json:"failed_step,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// Succeeded reports whether the run reached the end.
func (e *RunEvent) Succeeded() bool { return e.Err == nil }

// LifecycleHooks defines callbacks for executor observability.
// Any hook may be nil.
type LifecycleHooks struct {
	OnStepEnter func(context.Context, *StepEvent)
	OnStepLeave func(context.Context, *StepEvent)
	OnStepError func(context.Context, *StepEvent)
	OnRoute     func(context.Context, *RouteEvent)
	OnRunFinish func(context.Context, *RunEvent)
}
