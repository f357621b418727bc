package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/workflow"
)

type researchOutput struct {
	Sources []workflow.Source `json:"sources"`
	Facts   []string          `json:"facts"`
	Claims  []string          `json:"claims"`
	Summary string            `json:"summary"`
}

// Research runs the plan's research tasks with search tools and folds the
// findings into the state. It always proceeds to positioning; there is no
// checkpoint here.
func Research(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	if st.Plan == nil {
		return st, fmt.Errorf("research: no plan")
	}

	result, err := deps.runSession(ctx, st, workflow.PhaseResearch,
		researchSystemPrompt, buildResearchPrompt(st), deps.ResearchTools, deps.ResearchExecutors)
	if err != nil {
		return st, fmt.Errorf("research: %w", err)
	}

	raw, err := llm.ExtractJSON(result.Content)
	if err != nil {
		return st, fmt.Errorf("research: extract findings JSON: %w", err)
	}

	var out researchOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return st, fmt.Errorf("research: parse findings JSON: %w", err)
	}

	st.Research = &workflow.Research{
		Sources: out.Sources,
		Facts:   out.Facts,
		Claims:  out.Claims,
		Summary: out.Summary,
	}

	deps.logger().Info("Research complete",
		"run_id", st.RunID,
		"sources", len(out.Sources),
		"facts", len(out.Facts),
		"turns", result.Turns)

	st = st.WithMessage("assistant", fmt.Sprintf("Research done: %d facts from %d sources.", len(out.Facts), len(out.Sources)))
	st.Phase = workflow.PhasePositioning
	return st, nil
}
