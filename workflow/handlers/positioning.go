package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/workflow"
)

// Positioning derives angle, audience, pain points, and tone from the plan
// and research. On a follow-up with skipPositioning set, an existing
// positioning is reused untouched.
func Positioning(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	if st.Plan == nil {
		return st, fmt.Errorf("positioning: no plan")
	}

	if st.Plan.SkipPositioning && st.Positioning != nil {
		deps.logger().Info("Reusing prior positioning", "run_id", st.RunID)
		st.Phase = workflow.PhaseDraft
		return st, nil
	}

	result, err := deps.runSession(ctx, st, workflow.PhasePositioning,
		positioningSystemPrompt, buildPositioningPrompt(st), nil, nil)
	if err != nil {
		return st, fmt.Errorf("positioning: %w", err)
	}

	raw, err := llm.ExtractJSON(result.Content)
	if err != nil {
		return st, fmt.Errorf("positioning: extract JSON: %w", err)
	}

	var out workflow.Positioning
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return st, fmt.Errorf("positioning: parse JSON: %w", err)
	}

	st.Positioning = &out

	deps.logger().Info("Positioning set",
		"run_id", st.RunID,
		"angle", out.Angle,
		"audience", out.Audience)

	st = st.WithMessage("assistant", fmt.Sprintf("Positioned for %s: %s.", out.Audience, out.Angle))
	st.Phase = workflow.PhaseDraft
	return st, nil
}
