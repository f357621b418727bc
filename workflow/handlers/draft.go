package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/inkwell/workflow"
)

// Draft writes the post. A follow-up carrying draftInstructions revises the
// existing draft instead of starting over. Always proceeds to critic.
func Draft(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	if st.Plan == nil {
		return st, fmt.Errorf("draft: no plan")
	}

	revising := st.Draft != "" && st.Plan.DraftInstructions != ""

	result, err := deps.runSession(ctx, st, workflow.PhaseDraft,
		draftSystemPrompt, buildDraftPrompt(st), nil, nil)
	if err != nil {
		return st, fmt.Errorf("draft: %w", err)
	}

	text := strings.TrimSpace(result.Content)
	if text == "" {
		return st, fmt.Errorf("draft: model returned empty draft")
	}

	st.Draft = text
	// A new draft invalidates any earlier critique result.
	st.FinalDraft = ""

	deps.logger().Info("Draft written",
		"run_id", st.RunID,
		"revised", revising,
		"length", len(text))

	note := "Draft written."
	if revising {
		note = "Draft revised per instructions."
	}
	st = st.WithMessage("assistant", note)
	st.Phase = workflow.PhaseCritic
	return st, nil
}
