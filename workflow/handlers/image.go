package handlers

import (
	"context"
	"strings"

	"github.com/c360studio/inkwell/workflow"
)

// Image illustrates the post. Image generation is best-effort: any failure
// records an error status and a degraded message, and the workflow still
// completes.
func Image(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error) {
	if st.Plan != nil && st.Plan.SkipImage {
		if st.ImageURL == "" {
			st.ImageStatus = workflow.ImageStatusSkipped
		}
		st.Phase = workflow.PhaseComplete
		return st, nil
	}
	if deps.Image == nil {
		deps.logger().Info("No image generator configured", "run_id", st.RunID)
		st.ImageStatus = workflow.ImageStatusSkipped
		st.Phase = workflow.PhaseComplete
		return st, nil
	}

	st.ImageStatus = workflow.ImageStatusGenerating

	prompt, err := imagePrompt(ctx, deps, st)
	if err == nil {
		st.ImagePrompt = prompt
		var url string
		url, err = deps.Image.Generate(ctx, prompt)
		if err == nil {
			st.ImageURL = url
			st.ImageStatus = workflow.ImageStatusReady
			st = st.WithMessage("assistant", "Illustration ready.")
			st.Phase = workflow.PhaseComplete
			return st, nil
		}
	}

	deps.logger().Warn("Image generation failed, completing without illustration",
		"run_id", st.RunID, "error", err)
	st.ImageStatus = workflow.ImageStatusError
	st = st.WithMessage("assistant", "Couldn't generate an illustration; the post is ready without one.")
	st.Phase = workflow.PhaseComplete
	return st, nil
}

// imagePrompt derives an illustration prompt from the finished post.
func imagePrompt(ctx context.Context, deps Deps, st workflow.State) (string, error) {
	result, err := deps.runSession(ctx, st, workflow.PhaseImage,
		imagePromptSystemPrompt, "Post:\n---\n"+st.CurrentDraft()+"\n---\n", nil, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Content), nil
}
