// Package events defines the workflow event model and the sinks that carry
// events to observers (UI, NATS subscribers). Phase handlers and orchestrators
// only see the Sink interface; who is listening is not their concern.
package events

import (
	"time"
)

// Type identifies the kind of workflow event.
type Type string

const (
	// TypePhaseStart is emitted when a phase handler begins executing.
	TypePhaseStart Type = "phase_start"

	// TypePhaseComplete is emitted when a phase handler returns successfully.
	TypePhaseComplete Type = "phase_complete"

	// TypePendingInput is emitted when a phase suspends for a human decision.
	TypePendingInput Type = "pending_input"

	// TypeWorkflowComplete is emitted when a run reaches the terminal success phase.
	TypeWorkflowComplete Type = "workflow_complete"

	// TypeWorkflowError is emitted when a run lands in the error phase.
	TypeWorkflowError Type = "workflow_error"

	// TypeMessage is emitted for each transcript message appended mid-phase.
	TypeMessage Type = "message"

	// TypeReasoning is emitted for intermediate model reasoning deltas.
	TypeReasoning Type = "reasoning"

	// TypeToolStart is emitted when an agent session begins a tool call.
	TypeToolStart Type = "tool_start"

	// TypeToolComplete is emitted when a tool call finishes.
	TypeToolComplete Type = "tool_complete"
)

// Event describes a single observable workflow occurrence.
type Event struct {
	// Type is the event kind.
	Type Type `json:"type"`

	// RunID identifies the run this event belongs to.
	RunID string `json:"run_id"`

	// Phase is the workflow phase active when the event was emitted.
	Phase string `json:"phase,omitempty"`

	// Payload carries event-specific data: a state snapshot for phase
	// transitions, a pending-input record for checkpoints, tool metadata
	// for tool events, or message text for transcript events.
	Payload any `json:"payload,omitempty"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives workflow events. Implementations must not block the caller;
// slow consumers drop rather than stall phase execution.
type Sink interface {
	Publish(event Event)
}

// New builds an event stamped with the current time.
func New(typ Type, runID, phase string, payload any) Event {
	return Event{
		Type:      typ,
		RunID:     runID,
		Phase:     phase,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Discard is a Sink that drops every event. Useful in tests and for
// strategies that have no observer attached.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Publish(Event) {}

// Fanout returns a Sink that publishes every event to each of sinks in
// order. Nil sinks are skipped.
func Fanout(sinks ...Sink) Sink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return fanoutSink(kept)
}

type fanoutSink []Sink

func (f fanoutSink) Publish(event Event) {
	for _, s := range f {
		s.Publish(event)
	}
}
