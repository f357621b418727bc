package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/workflow"
)

// plannerOutput is the planner model's JSON response: either clarifying
// questions or a plan, never both.
type plannerOutput struct {
	Questions []workflow.Question `json:"questions"`

	Topic             string   `json:"topic"`
	Angle             string   `json:"angle"`
	Audience          string   `json:"audience"`
	KeyPoints         []string `json:"key_points"`
	Tone              string   `json:"tone"`
	ResearchTasks     []string `json:"research_tasks"`
	SkipResearch      bool     `json:"skip_research"`
	SkipPositioning   bool     `json:"skip_positioning"`
	SkipCritic        bool     `json:"skip_critic"`
	SkipImage         bool     `json:"skip_image"`
	DraftInstructions string   `json:"draft_instructions"`
}

// Planner analyzes the user request and either raises clarifying questions
// or produces a plan with skip flags. On re-entry with answers present it
// must produce a plan.
func Planner(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	reentry := st.PendingInput != nil &&
		st.PendingInput.Type == workflow.PendingQuestions &&
		len(st.Answers) > 0

	result, err := deps.runSession(ctx, st, workflow.PhasePlanner,
		plannerSystemPrompt, buildPlannerPrompt(st), nil, nil)
	if err != nil {
		return st, fmt.Errorf("planner: %w", err)
	}

	raw, err := llm.ExtractJSON(result.Content)
	if err != nil {
		return st, fmt.Errorf("planner: extract plan JSON: %w", err)
	}

	var out plannerOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return st, fmt.Errorf("planner: parse plan JSON: %w", err)
	}

	if len(out.Questions) > 0 {
		if reentry {
			return st, fmt.Errorf("planner asked %d questions after answers were provided", len(out.Questions))
		}
		st.PendingInput = &workflow.PendingInput{
			Type:      workflow.PendingQuestions,
			Questions: out.Questions,
		}
		st.Phase = workflow.PhasePlannerWaiting

		texts := make([]string, len(out.Questions))
		for i, q := range out.Questions {
			texts[i] = q.Text
		}
		return st.WithMessage("assistant", "Before I plan this, a few questions:\n"+strings.Join(texts, "\n")), nil
	}

	if out.Topic == "" {
		return st, fmt.Errorf("planner produced neither questions nor a plan")
	}

	// Answers are consumed with the plan.
	st.PendingInput = nil
	st.Answers = nil

	st.Plan = &workflow.Plan{
		Topic:             out.Topic,
		Angle:             out.Angle,
		Audience:          out.Audience,
		KeyPoints:         out.KeyPoints,
		Tone:              out.Tone,
		ResearchTasks:     out.ResearchTasks,
		SkipResearch:      out.SkipResearch,
		SkipPositioning:   out.SkipPositioning,
		SkipCritic:        out.SkipCritic,
		SkipImage:         out.SkipImage,
		DraftInstructions: out.DraftInstructions,
	}

	st = st.WithMessage("assistant", fmt.Sprintf("Planned %q for %s.", st.Plan.Topic, st.Plan.Audience))

	switch {
	case !st.Plan.SkipResearch && len(st.Plan.ResearchTasks) > 0:
		st.Phase = workflow.PhaseResearch
	case st.Plan.SkipPositioning:
		st.Phase = workflow.PhaseDraft
	default:
		st.Phase = workflow.PhasePositioning
	}

	deps.logger().Info("Plan ready",
		"run_id", st.RunID,
		"topic", st.Plan.Topic,
		"research_tasks", len(st.Plan.ResearchTasks),
		"next_phase", st.Phase.String())

	return st, nil
}
