package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhase_IsValid(t *testing.T) {
	for _, p := range []Phase{
		PhasePlanner, PhasePlannerWaiting, PhaseResearch, PhaseResearchWaiting,
		PhasePositioning, PhaseDraft, PhaseCritic, PhaseCriticWaiting,
		PhaseImage, PhaseComplete, PhaseError,
	} {
		assert.True(t, p.IsValid(), p.String())
	}
	assert.False(t, Phase("publishing").IsValid())
	assert.False(t, Phase("").IsValid())
}

func TestPhase_IsTerminal(t *testing.T) {
	assert.True(t, PhaseComplete.IsTerminal())
	assert.True(t, PhaseError.IsTerminal())
	assert.False(t, PhasePlanner.IsTerminal())
	assert.False(t, PhaseCriticWaiting.IsTerminal())
}

func TestPhase_IsWaiting(t *testing.T) {
	assert.True(t, PhasePlannerWaiting.IsWaiting())
	assert.True(t, PhaseResearchWaiting.IsWaiting())
	assert.True(t, PhaseCriticWaiting.IsWaiting())
	assert.False(t, PhasePlanner.IsWaiting())
	assert.False(t, PhaseComplete.IsWaiting())
}

func TestPhase_ResumePhase(t *testing.T) {
	assert.Equal(t, PhasePlanner, PhasePlannerWaiting.ResumePhase())
	assert.Equal(t, PhaseResearch, PhaseResearchWaiting.ResumePhase())
	assert.Equal(t, PhaseCritic, PhaseCriticWaiting.ResumePhase())
	assert.Equal(t, PhaseDraft, PhaseDraft.ResumePhase())
}

func TestPhase_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		from   Phase
		to     Phase
		wantOK bool
	}{
		{name: "planner to research", from: PhasePlanner, to: PhaseResearch, wantOK: true},
		{name: "planner skips to draft", from: PhasePlanner, to: PhaseDraft, wantOK: true},
		{name: "planner to waiting", from: PhasePlanner, to: PhasePlannerWaiting, wantOK: true},
		{name: "planner cannot jump to image", from: PhasePlanner, to: PhaseImage, wantOK: false},
		{name: "research to positioning", from: PhaseResearch, to: PhasePositioning, wantOK: true},
		{name: "draft to critic", from: PhaseDraft, to: PhaseCritic, wantOK: true},
		{name: "draft cannot skip critic", from: PhaseDraft, to: PhaseImage, wantOK: false},
		{name: "critic to image", from: PhaseCritic, to: PhaseImage, wantOK: true},
		{name: "critic straight to complete", from: PhaseCritic, to: PhaseComplete, wantOK: true},
		{name: "image to complete", from: PhaseImage, to: PhaseComplete, wantOK: true},
		{name: "follow-up re-entry", from: PhaseComplete, to: PhasePlanner, wantOK: true},
		{name: "anything to error", from: PhaseImage, to: PhaseError, wantOK: true},
		{name: "error is terminal", from: PhaseError, to: PhasePlanner, wantOK: false},
		{name: "complete cannot error", from: PhaseComplete, to: PhaseError, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOK, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewState(t *testing.T) {
	st := NewState("run-1", "Write a post about remote work")

	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, PhasePlanner, st.Phase)
	assert.Equal(t, "Write a post about remote work", st.UserRequest)
	assert.Nil(t, st.PendingInput)

	// Fresh state has exactly the seed user message.
	assert.Len(t, st.Messages, 1)
	assert.Equal(t, "user", st.Messages[0].Role)
}

func TestState_WithMessage_DoesNotShareBacking(t *testing.T) {
	st := NewState("run-1", "request")

	st2 := st.WithMessage("assistant", "reply one")
	st3 := st.WithMessage("assistant", "reply two")

	assert.Len(t, st.Messages, 1)
	assert.Len(t, st2.Messages, 2)
	assert.Len(t, st3.Messages, 2)
	assert.Equal(t, "reply one", st2.Messages[1].Content)
	assert.Equal(t, "reply two", st3.Messages[1].Content)
}

func TestState_Clone_Deep(t *testing.T) {
	st := NewState("run-1", "request")
	st.Plan = &Plan{Topic: "remote work", KeyPoints: []string{"a"}}
	st.Research = &Research{Facts: []string{"fact"}}
	st.Answers = map[string]string{"q1": "blog"}
	st.PendingInput = &PendingInput{
		Type:      PendingQuestions,
		Questions: []Question{{ID: "q1", Text: "Format?"}},
	}

	clone := st.Clone()
	clone.Plan.KeyPoints[0] = "changed"
	clone.Research.Facts[0] = "changed"
	clone.Answers["q1"] = "changed"
	clone.PendingInput.Questions[0].Text = "changed"

	assert.Equal(t, "a", st.Plan.KeyPoints[0])
	assert.Equal(t, "fact", st.Research.Facts[0])
	assert.Equal(t, "blog", st.Answers["q1"])
	assert.Equal(t, "Format?", st.PendingInput.Questions[0].Text)
}

func TestUserResponse_Validate(t *testing.T) {
	questions := &PendingInput{Type: PendingQuestions, Questions: []Question{{ID: "q1"}}}

	tests := []struct {
		name    string
		resp    UserResponse
		pending *PendingInput
		wantErr string
	}{
		{
			name:    "valid questions response",
			resp:    UserResponse{Type: PendingQuestions, Answers: map[string]string{"q1": "yes"}},
			pending: questions,
		},
		{
			name:    "missing type is rejected",
			resp:    UserResponse{SelectedIDs: []string{"f1"}},
			pending: questions,
			wantErr: "type is required",
		},
		{
			name:    "type mismatch",
			resp:    UserResponse{Type: PendingImprovements},
			pending: questions,
			wantErr: "does not match",
		},
		{
			name:    "no pending input",
			resp:    UserResponse{Type: PendingQuestions},
			pending: nil,
			wantErr: "no pending input",
		},
		{
			name:    "questions without answers",
			resp:    UserResponse{Type: PendingQuestions},
			pending: questions,
			wantErr: "requires answers",
		},
		{
			name:    "empty selection is fine",
			resp:    UserResponse{Type: PendingImprovements},
			pending: &PendingInput{Type: PendingImprovements},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.resp.Validate(tt.pending)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
