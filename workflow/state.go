package workflow

import (
	"time"
)

// Plan is the planner's output: what to write and which phases to run.
type Plan struct {
	// Topic is the subject of the content.
	Topic string `json:"topic"`

	// Angle is the take or perspective on the topic.
	Angle string `json:"angle,omitempty"`

	// Audience describes who the content targets.
	Audience string `json:"audience,omitempty"`

	// KeyPoints are the points the draft must cover.
	KeyPoints []string `json:"key_points,omitempty"`

	// Tone is the requested voice (e.g. "practical", "provocative").
	Tone string `json:"tone,omitempty"`

	// ResearchTasks are the questions research should answer.
	// Zero tasks implies SkipResearch.
	ResearchTasks []string `json:"research_tasks,omitempty"`

	// Skip flags let a follow-up bypass phases whose prior output is
	// still valid.
	SkipResearch    bool `json:"skip_research,omitempty"`
	SkipPositioning bool `json:"skip_positioning,omitempty"`
	SkipCritic      bool `json:"skip_critic,omitempty"`
	SkipImage       bool `json:"skip_image,omitempty"`

	// DraftInstructions carries a follow-up edit instruction ("make it
	// shorter") applied to the existing draft instead of rewriting.
	DraftInstructions string `json:"draft_instructions,omitempty"`
}

// Source is a research source reference.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Research holds the research phase output.
type Research struct {
	Sources []Source `json:"sources,omitempty"`
	Facts   []string `json:"facts,omitempty"`
	Claims  []string `json:"claims,omitempty"`
	Summary string   `json:"summary,omitempty"`
}

// Positioning holds the positioning phase output.
type Positioning struct {
	Angle      string   `json:"angle,omitempty"`
	Audience   string   `json:"audience,omitempty"`
	PainPoints []string `json:"pain_points,omitempty"`
	Tone       string   `json:"tone,omitempty"`
}

// ImageStatus tracks the image phase outcome for display.
type ImageStatus string

const (
	ImageStatusNone       ImageStatus = ""
	ImageStatusGenerating ImageStatus = "generating"
	ImageStatusReady      ImageStatus = "ready"
	ImageStatusError      ImageStatus = "error"
	ImageStatusSkipped    ImageStatus = "skipped"
)

// Message is one transcript entry, tagged with the phase that produced it.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`

	// Phase is the workflow phase active when the message was appended.
	Phase Phase `json:"phase,omitempty"`

	// Timestamp is when the message was appended.
	Timestamp time.Time `json:"timestamp"`
}

// State is the per-run workflow record threaded through phase handlers.
// Handlers receive a snapshot by value and return a new snapshot; nothing
// mutates a shared reference.
type State struct {
	// RunID identifies the run; stable across follow-ups.
	RunID string `json:"run_id"`

	// Phase is the current state machine position.
	Phase Phase `json:"phase"`

	// UserRequest is the instruction currently being serviced.
	// Overwritten by follow-ups.
	UserRequest string `json:"user_request"`

	// PendingInput is set only while the run is suspended in a *_waiting
	// phase. The orchestrator never runs a handler while it is set.
	PendingInput *PendingInput `json:"pending_input,omitempty"`

	// Answers holds clarifying-question answers keyed by question id,
	// merged in when a questions checkpoint resolves. The planner consumes
	// them on re-entry.
	Answers map[string]string `json:"answers,omitempty"`

	// SelectedIDs holds the ids chosen when a findings or improvements
	// checkpoint resolves.
	SelectedIDs []string `json:"selected_ids,omitempty"`

	// Accumulated phase outputs. Additive across follow-ups: a follow-up
	// only replaces what the planner decides to redo.
	Plan        *Plan        `json:"plan,omitempty"`
	Research    *Research    `json:"research,omitempty"`
	Positioning *Positioning `json:"positioning,omitempty"`
	Draft       string       `json:"draft,omitempty"`
	FinalDraft  string       `json:"final_draft,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	ImagePrompt string       `json:"image_prompt,omitempty"`
	ImageStatus ImageStatus  `json:"image_status,omitempty"`

	// Messages is the append-only conversation transcript.
	Messages []Message `json:"messages"`

	// Error is set only when Phase is PhaseError.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the run first received a request.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on every phase completion.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a fresh run state seeded with the user request.
func NewState(runID, userRequest string) State {
	now := time.Now()
	return State{
		RunID:       runID,
		Phase:       PhasePlanner,
		UserRequest: userRequest,
		Messages: []Message{{
			Role:      "user",
			Content:   userRequest,
			Phase:     PhasePlanner,
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithMessage returns a copy of the state with a message appended.
func (s State) WithMessage(role, content string) State {
	s.Messages = append(cloneMessages(s.Messages), Message{
		Role:      role,
		Content:   content,
		Phase:     s.Phase,
		Timestamp: time.Now(),
	})
	return s
}

// CurrentDraft returns the newest draft text, preferring the critiqued one.
func (s State) CurrentDraft() string {
	if s.FinalDraft != "" {
		return s.FinalDraft
	}
	return s.Draft
}

// Clone returns a deep copy of the state. Orchestrators hand clones to
// handlers and observers so no two holders share slices or maps.
func (s State) Clone() State {
	out := s
	out.Messages = cloneMessages(s.Messages)

	if s.PendingInput != nil {
		pi := s.PendingInput.Clone()
		out.PendingInput = &pi
	}
	if s.Answers != nil {
		out.Answers = make(map[string]string, len(s.Answers))
		for k, v := range s.Answers {
			out.Answers[k] = v
		}
	}
	out.SelectedIDs = append([]string(nil), s.SelectedIDs...)

	if s.Plan != nil {
		plan := *s.Plan
		plan.KeyPoints = append([]string(nil), s.Plan.KeyPoints...)
		plan.ResearchTasks = append([]string(nil), s.Plan.ResearchTasks...)
		out.Plan = &plan
	}
	if s.Research != nil {
		research := *s.Research
		research.Sources = append([]Source(nil), s.Research.Sources...)
		research.Facts = append([]string(nil), s.Research.Facts...)
		research.Claims = append([]string(nil), s.Research.Claims...)
		out.Research = &research
	}
	if s.Positioning != nil {
		pos := *s.Positioning
		pos.PainPoints = append([]string(nil), s.Positioning.PainPoints...)
		out.Positioning = &pos
	}
	return out
}

func cloneMessages(msgs []Message) []Message {
	return append([]Message(nil), msgs...)
}
