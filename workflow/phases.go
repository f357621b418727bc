// Package workflow defines the content-generation workflow data model: the
// phase state machine, the per-run state record threaded through phase
// handlers, and the pending-input checkpoint types.
//
// Phase flow for a content run:
//
//	planner -> planner_waiting? -> research -> positioning -> draft ->
//	critic -> critic_waiting? -> image -> complete
//
// Any phase may transition to error. The planner may shorten the pipeline
// on follow-ups via skip flags (skip_research, skip_positioning, skip_critic,
// skip_image). The *_waiting phases suspend the run until a human answers.
package workflow

// Phase represents a position in the workflow state machine.
type Phase string

const (
	// PhasePlanner analyzes the user request and produces a plan, or
	// clarifying questions when the request is too vague to plan.
	PhasePlanner Phase = "planner"

	// PhasePlannerWaiting suspends the run until clarifying questions
	// are answered.
	PhasePlannerWaiting Phase = "planner_waiting"

	// PhaseResearch gathers sources, facts, and claims with search tools.
	PhaseResearch Phase = "research"

	// PhaseResearchWaiting is modeled for a stricter mode where research
	// findings need human selection. The current research handler never
	// raises it.
	PhaseResearchWaiting Phase = "research_waiting"

	// PhasePositioning derives angle, audience, pain points, and tone.
	PhasePositioning Phase = "positioning"

	// PhaseDraft writes or revises the draft.
	PhaseDraft Phase = "draft"

	// PhaseCritic reviews the draft and produces an improved version.
	PhaseCritic Phase = "critic"

	// PhaseCriticWaiting suspends the run until improvement suggestions
	// are approved.
	PhaseCriticWaiting Phase = "critic_waiting"

	// PhaseImage generates a header image. Best-effort: image failure
	// degrades the run, it never fails it.
	PhaseImage Phase = "image"

	// PhaseComplete is the terminal success phase.
	PhaseComplete Phase = "complete"

	// PhaseError is the terminal failure phase.
	PhaseError Phase = "error"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid returns true if the phase is a known workflow phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhasePlanner, PhasePlannerWaiting, PhaseResearch, PhaseResearchWaiting,
		PhasePositioning, PhaseDraft, PhaseCritic, PhaseCriticWaiting,
		PhaseImage, PhaseComplete, PhaseError:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for phases that end the workflow.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// IsWaiting returns true for phases suspended on human input.
func (p Phase) IsWaiting() bool {
	switch p {
	case PhasePlannerWaiting, PhaseResearchWaiting, PhaseCriticWaiting:
		return true
	default:
		return false
	}
}

// ResumePhase maps a waiting phase to the phase that consumes its response.
// Returns the phase itself for non-waiting phases.
func (p Phase) ResumePhase() Phase {
	switch p {
	case PhasePlannerWaiting:
		return PhasePlanner
	case PhaseResearchWaiting:
		return PhaseResearch
	case PhaseCriticWaiting:
		return PhaseCritic
	default:
		return p
	}
}

// CanTransitionTo returns true if the phase may transition to target.
// Error is reachable from every non-terminal phase; the loop-back from
// complete to planner covers follow-up re-entry.
func (p Phase) CanTransitionTo(target Phase) bool {
	if target == PhaseError {
		return !p.IsTerminal()
	}

	switch p {
	case PhasePlanner:
		// Skip flags allow jumping past research and positioning.
		switch target {
		case PhasePlannerWaiting, PhaseResearch, PhasePositioning, PhaseDraft:
			return true
		}
	case PhasePlannerWaiting:
		return target == PhasePlanner
	case PhaseResearch:
		return target == PhaseResearchWaiting || target == PhasePositioning
	case PhaseResearchWaiting:
		return target == PhaseResearch
	case PhasePositioning:
		return target == PhaseDraft
	case PhaseDraft:
		return target == PhaseCritic
	case PhaseCritic:
		// skip_image allows the critic to finish the run directly.
		switch target {
		case PhaseCriticWaiting, PhaseImage, PhaseComplete:
			return true
		}
	case PhaseCriticWaiting:
		return target == PhaseCritic
	case PhaseImage:
		return target == PhaseComplete
	case PhaseComplete:
		return target == PhasePlanner // follow-up re-entry
	case PhaseError:
		return false
	}
	return false
}
