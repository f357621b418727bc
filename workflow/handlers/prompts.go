package handlers

import (
	"fmt"
	"strings"

	"github.com/c360studio/inkwell/workflow"
)

const plannerSystemPrompt = `You are a content planning assistant. Given a user request, decide how a
short-form post should be produced.

Respond with a single JSON object and nothing else. Either ask clarifying
questions:

{"questions": [{"id": "q1", "text": "...", "suggested": ["..."]}]}

or produce a plan:

{
  "topic": "...",
  "angle": "...",
  "audience": "...",
  "key_points": ["..."],
  "tone": "...",
  "research_tasks": ["..."],
  "skip_research": false,
  "skip_positioning": false,
  "skip_critic": false,
  "skip_image": false,
  "draft_instructions": ""
}

Ask at most 3 questions, and only when the request is genuinely ambiguous.
When prior work (a plan, research, a draft) already exists and the request is
a follow-up, set the skip flags for phases whose output is still valid, and
put edit instructions for an existing draft in draft_instructions.`

const researchSystemPrompt = `You are a research assistant. Use the available tools to gather current,
verifiable material for the given research tasks. When done, respond with a
single JSON object and nothing else:

{
  "sources": [{"title": "...", "url": "..."}],
  "facts": ["..."],
  "claims": ["..."],
  "summary": "..."
}`

const positioningSystemPrompt = `You are a content strategist. Derive how the piece should be positioned.
Respond with a single JSON object and nothing else:

{"angle": "...", "audience": "...", "pain_points": ["..."], "tone": "..."}`

const draftSystemPrompt = `You are a professional writer. Write the post as plain text. Respond with
the post body only: no JSON, no preamble, no commentary.`

const criticSystemPrompt = `You are an exacting editor. Improve the draft you are given: tighten the
prose, sharpen the opening, remove filler. Respond with the improved post
body only: no JSON, no preamble, no commentary.`

const criticReviewSystemPrompt = `You are an exacting editor. List the specific improvements the draft needs.
Respond with a single JSON object and nothing else:

{"improvements": [{"id": "i1", "text": "..."}]}

Return an empty list if the draft needs no changes.`

const imagePromptSystemPrompt = `You write prompts for an image generation model. Given a post, respond with
one vivid, concrete prompt for a header illustration. Respond with the
prompt text only.`

func buildPlannerPrompt(st workflow.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Request: %s\n", latestUserMessage(st))

	if st.Plan != nil {
		fmt.Fprintf(&b, "\nPrior plan: topic %q, angle %q, audience %q.\n",
			st.Plan.Topic, st.Plan.Angle, st.Plan.Audience)
	}
	if st.Positioning != nil {
		fmt.Fprintf(&b, "Prior positioning exists (angle %q).\n", st.Positioning.Angle)
	}
	if st.Research != nil {
		fmt.Fprintf(&b, "Prior research exists (%d facts, %d sources).\n",
			len(st.Research.Facts), len(st.Research.Sources))
	}
	if draft := st.CurrentDraft(); draft != "" {
		fmt.Fprintf(&b, "\nAn existing draft is available:\n---\n%s\n---\n", draft)
	}

	if st.PendingInput != nil && st.PendingInput.Type == workflow.PendingQuestions && len(st.Answers) > 0 {
		b.WriteString("\nThe user answered your clarifying questions:\n")
		for _, q := range st.PendingInput.Questions {
			if answer, ok := st.Answers[q.ID]; ok {
				fmt.Fprintf(&b, "Q: %s\nA: %s\n", q.Text, answer)
			}
		}
		b.WriteString("\nDo not ask further questions. Produce the plan now.\n")
	}

	return b.String()
}

func buildResearchPrompt(st workflow.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", st.Plan.Topic)
	if st.Plan.Angle != "" {
		fmt.Fprintf(&b, "Angle: %s\n", st.Plan.Angle)
	}
	b.WriteString("\nResearch tasks:\n")
	for i, task := range st.Plan.ResearchTasks {
		fmt.Fprintf(&b, "%d. %s\n", i+1, task)
	}
	return b.String()
}

func buildPositioningPrompt(st workflow.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n", st.Plan.Topic)
	fmt.Fprintf(&b, "Intended audience: %s\n", st.Plan.Audience)
	if st.Plan.Tone != "" {
		fmt.Fprintf(&b, "Intended tone: %s\n", st.Plan.Tone)
	}
	if len(st.Plan.KeyPoints) > 0 {
		b.WriteString("Key points:\n")
		for _, p := range st.Plan.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if st.Research != nil && st.Research.Summary != "" {
		fmt.Fprintf(&b, "\nResearch summary:\n%s\n", st.Research.Summary)
	}
	return b.String()
}

func buildDraftPrompt(st workflow.State) string {
	var b strings.Builder

	if st.Draft != "" && st.Plan.DraftInstructions != "" {
		fmt.Fprintf(&b, "Revise the following draft. Instructions: %s\n", st.Plan.DraftInstructions)
		fmt.Fprintf(&b, "\nDraft:\n---\n%s\n---\n", st.Draft)
		return b.String()
	}

	fmt.Fprintf(&b, "Write a post about: %s\n", st.Plan.Topic)
	if st.Positioning != nil {
		fmt.Fprintf(&b, "Angle: %s\nAudience: %s\nTone: %s\n",
			st.Positioning.Angle, st.Positioning.Audience, st.Positioning.Tone)
		if len(st.Positioning.PainPoints) > 0 {
			b.WriteString("Address these pain points:\n")
			for _, p := range st.Positioning.PainPoints {
				fmt.Fprintf(&b, "- %s\n", p)
			}
		}
	} else {
		if st.Plan.Angle != "" {
			fmt.Fprintf(&b, "Angle: %s\n", st.Plan.Angle)
		}
		if st.Plan.Audience != "" {
			fmt.Fprintf(&b, "Audience: %s\n", st.Plan.Audience)
		}
		if st.Plan.Tone != "" {
			fmt.Fprintf(&b, "Tone: %s\n", st.Plan.Tone)
		}
	}
	if len(st.Plan.KeyPoints) > 0 {
		b.WriteString("Key points to cover:\n")
		for _, p := range st.Plan.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
	}
	if st.Research != nil {
		if st.Research.Summary != "" {
			fmt.Fprintf(&b, "\nResearch summary:\n%s\n", st.Research.Summary)
		}
		if len(st.Research.Facts) > 0 {
			b.WriteString("Facts to draw on:\n")
			for _, f := range st.Research.Facts {
				fmt.Fprintf(&b, "- %s\n", f)
			}
		}
	}
	return b.String()
}

func buildCriticPrompt(st workflow.State) string {
	var b strings.Builder
	if st.Positioning != nil {
		fmt.Fprintf(&b, "Audience: %s. Tone: %s.\n\n", st.Positioning.Audience, st.Positioning.Tone)
	}
	fmt.Fprintf(&b, "Draft:\n---\n%s\n---\n", st.Draft)
	return b.String()
}

func buildCriticApplyPrompt(st workflow.State, improvements []workflow.Improvement) string {
	var b strings.Builder
	b.WriteString("Apply these improvements to the draft:\n")
	for _, imp := range improvements {
		fmt.Fprintf(&b, "- %s\n", imp.Text)
	}
	fmt.Fprintf(&b, "\nDraft:\n---\n%s\n---\n", st.Draft)
	b.WriteString("\nRespond with the revised post body only.\n")
	return b.String()
}

func latestUserMessage(st workflow.State) string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == "user" {
			return st.Messages[i].Content
		}
	}
	return st.UserRequest
}
