package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/workflow"
)

// Critic improves the draft. A critic failure never fails the workflow: the
// pre-critique draft becomes the final draft and the machine advances. With
// RequireCriticApproval set, the critic instead raises an improvements
// checkpoint and applies only the suggestions the user selects.
func Critic(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	if st.Draft == "" {
		return st, fmt.Errorf("critic: no draft")
	}

	if st.Plan != nil && st.Plan.SkipCritic {
		st.FinalDraft = st.Draft
		return afterCritic(st), nil
	}

	if st.PendingInput != nil && st.PendingInput.Type == workflow.PendingImprovements {
		return applySelectedImprovements(ctx, deps, st)
	}

	if deps.RequireCriticApproval {
		return raiseImprovements(ctx, deps, st)
	}

	result, err := deps.runSession(ctx, st, workflow.PhaseCritic,
		criticSystemPrompt, buildCriticPrompt(st), nil, nil)
	if err != nil || strings.TrimSpace(result.Content) == "" {
		deps.logger().Warn("Critic failed, keeping pre-critique draft",
			"run_id", st.RunID, "error", err)
		st.FinalDraft = st.Draft
		st = st.WithMessage("assistant", "Critique unavailable; keeping the draft as written.")
		return afterCritic(st), nil
	}

	st.FinalDraft = strings.TrimSpace(result.Content)
	st = st.WithMessage("assistant", "Draft polished.")
	return afterCritic(st), nil
}

type criticReviewOutput struct {
	Improvements []workflow.Improvement `json:"improvements"`
}

// raiseImprovements asks the critic for a suggestion list and suspends until
// the user selects which to apply.
func raiseImprovements(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	result, err := deps.runSession(ctx, st, workflow.PhaseCritic,
		criticReviewSystemPrompt, buildCriticPrompt(st), nil, nil)
	if err != nil {
		deps.logger().Warn("Critic review failed, keeping pre-critique draft",
			"run_id", st.RunID, "error", err)
		st.FinalDraft = st.Draft
		return afterCritic(st), nil
	}

	var out criticReviewOutput
	if raw, jerr := llm.ExtractJSON(result.Content); jerr == nil {
		if perr := json.Unmarshal([]byte(raw), &out); perr != nil {
			deps.logger().Warn("Critic review unparseable, keeping pre-critique draft",
				"run_id", st.RunID, "error", perr)
		}
	}

	if len(out.Improvements) == 0 {
		st.FinalDraft = st.Draft
		st = st.WithMessage("assistant", "No improvements needed.")
		return afterCritic(st), nil
	}

	st.PendingInput = &workflow.PendingInput{
		Type:         workflow.PendingImprovements,
		Improvements: out.Improvements,
		Draft:        st.Draft,
	}
	st.Phase = workflow.PhaseCriticWaiting
	return st.WithMessage("assistant", fmt.Sprintf("%d improvements suggested; select which to apply.", len(out.Improvements))), nil
}

// applySelectedImprovements resumes after the improvements checkpoint. An
// empty selection keeps the draft as written.
func applySelectedImprovements(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	selected := make([]workflow.Improvement, 0, len(st.SelectedIDs))
	for _, id := range st.SelectedIDs {
		for _, imp := range st.PendingInput.Improvements {
			if imp.ID == id {
				selected = append(selected, imp)
				break
			}
		}
	}

	st.PendingInput = nil
	st.SelectedIDs = nil

	if len(selected) == 0 {
		st.FinalDraft = st.Draft
		st = st.WithMessage("assistant", "Keeping the draft as written.")
		return afterCritic(st), nil
	}

	result, err := deps.runSession(ctx, st, workflow.PhaseCritic,
		criticSystemPrompt, buildCriticApplyPrompt(st, selected), nil, nil)
	if err != nil || strings.TrimSpace(result.Content) == "" {
		deps.logger().Warn("Applying improvements failed, keeping pre-critique draft",
			"run_id", st.RunID, "error", err)
		st.FinalDraft = st.Draft
		return afterCritic(st), nil
	}

	st.FinalDraft = strings.TrimSpace(result.Content)
	st = st.WithMessage("assistant", fmt.Sprintf("Applied %d improvements.", len(selected)))
	return afterCritic(st), nil
}

func afterCritic(st workflow.State) workflow.State {
	if st.Plan != nil && st.Plan.SkipImage {
		// A prior illustration stays valid on a follow-up.
		if st.ImageURL == "" {
			st.ImageStatus = workflow.ImageStatusSkipped
		}
		st.Phase = workflow.PhaseComplete
	} else {
		st.Phase = workflow.PhaseImage
	}
	return st
}
