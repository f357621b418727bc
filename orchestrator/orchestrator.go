// Package orchestrator sequences the content workflow. Two strategies
// implement one contract: Pipeline walks the phase state machine with
// human-input checkpoints; SingleAgent keeps one conversational agent per
// run and never suspends.
package orchestrator

import (
	"context"

	"github.com/c360studio/inkwell/workflow"
)

// Orchestrator is the strategy contract. Implementations must tolerate
// concurrent calls per run: duplicate starts are suppressed, responses are
// consumed exactly once, and Destroy is safe mid-phase.
type Orchestrator interface {
	// Initialize establishes long-lived resources. Idempotent.
	Initialize(ctx context.Context) error

	// StartWorkflow begins work for a run. A second call while the run is
	// in progress is a no-op; a call against a terminal run is
	// reinterpreted as a follow-up.
	StartWorkflow(ctx context.Context, runID, userRequest string) error

	// HandleUserResponse resolves a pending-input checkpoint. It logs and
	// does nothing when the run has no pending input.
	HandleUserResponse(ctx context.Context, runID string, resp workflow.UserResponse) error

	// HandleFollowUp delivers a new instruction to a run whose prior
	// workflow already finished.
	HandleFollowUp(ctx context.Context, runID, userRequest string) error

	// GetState returns the current snapshot, or false when unknown.
	GetState(runID string) (workflow.State, bool)

	// IsWorkflowComplete reports whether the run reached the terminal
	// success phase.
	IsWorkflowComplete(runID string) bool

	// Destroy releases sessions and run state. Outstanding phase calls may
	// fail but must not corrupt state.
	Destroy()
}
