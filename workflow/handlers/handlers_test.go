package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/workflow"
)

// scriptedSessions replays canned session results and records every call.
type scriptedSessions struct {
	results []sessionResult
	calls   []sessionCall
}

type sessionResult struct {
	content string
	err     error
}

type sessionCall struct {
	cfg    agent.Config
	prompt string
}

func (s *scriptedSessions) factory() SessionFactory {
	return func(cfg agent.Config) SessionRunner {
		return &scriptedRunner{script: s, cfg: cfg}
	}
}

type scriptedRunner struct {
	script *scriptedSessions
	cfg    agent.Config
}

func (r *scriptedRunner) Run(_ context.Context, prompt string, _ time.Duration) (*agent.Result, error) {
	r.script.calls = append(r.script.calls, sessionCall{cfg: r.cfg, prompt: prompt})
	if len(r.script.results) == 0 {
		return nil, errors.New("no scripted result")
	}
	next := r.script.results[0]
	r.script.results = r.script.results[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &agent.Result{Content: next.content, Turns: 1}, nil
}

func (r *scriptedRunner) Destroy() {}

func scripted(results ...sessionResult) *scriptedSessions {
	return &scriptedSessions{results: results}
}

func depsWith(s *scriptedSessions) Deps {
	return Deps{Sessions: s.factory()}
}

func plannedState(plan workflow.Plan) workflow.State {
	st := workflow.NewState("run-1", "write about remote work")
	st.Plan = &plan
	return st
}

func TestPlanner_RaisesQuestions(t *testing.T) {
	s := scripted(sessionResult{content: `{"questions":[
		{"id":"q1","text":"Which audience?","suggested":["engineers"]},
		{"id":"q2","text":"What length?"}]}`})

	st, err := Planner(context.Background(), depsWith(s), workflow.NewState("run-1", "write something"))
	require.NoError(t, err)

	assert.Equal(t, workflow.PhasePlannerWaiting, st.Phase)
	require.NotNil(t, st.PendingInput)
	assert.Equal(t, workflow.PendingQuestions, st.PendingInput.Type)
	assert.Len(t, st.PendingInput.Questions, 2)
	assert.Equal(t, "q1", st.PendingInput.Questions[0].ID)
}

func TestPlanner_ProducesPlanWithResearch(t *testing.T) {
	s := scripted(sessionResult{content: `{
		"topic":"remote work","angle":"async first","audience":"team leads",
		"key_points":["fewer meetings"],"tone":"practical",
		"research_tasks":["find adoption stats"]}`})

	st, err := Planner(context.Background(), depsWith(s), workflow.NewState("run-1", "write about remote work"))
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseResearch, st.Phase)
	require.NotNil(t, st.Plan)
	assert.Equal(t, "remote work", st.Plan.Topic)
	assert.Equal(t, []string{"find adoption stats"}, st.Plan.ResearchTasks)
	assert.Equal(t, "planning", s.calls[0].cfg.Capability)
}

func TestPlanner_SkipFlagsShortenPipeline(t *testing.T) {
	tests := []struct {
		name string
		plan string
		want workflow.Phase
	}{
		{
			name: "skip research goes to positioning",
			plan: `{"topic":"t","skip_research":true}`,
			want: workflow.PhasePositioning,
		},
		{
			name: "no research tasks goes to positioning",
			plan: `{"topic":"t","research_tasks":[]}`,
			want: workflow.PhasePositioning,
		},
		{
			name: "skip research and positioning goes to draft",
			plan: `{"topic":"t","skip_research":true,"skip_positioning":true}`,
			want: workflow.PhaseDraft,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scripted(sessionResult{content: tt.plan})
			st, err := Planner(context.Background(), depsWith(s), workflow.NewState("run-1", "req"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.Phase)
		})
	}
}

func TestPlanner_ReentryConsumesAnswers(t *testing.T) {
	st := workflow.NewState("run-1", "write something")
	st.Phase = workflow.PhasePlanner
	st.PendingInput = &workflow.PendingInput{
		Type:      workflow.PendingQuestions,
		Questions: []workflow.Question{{ID: "q1", Text: "Which audience?"}},
	}
	st.Answers = map[string]string{"q1": "team leads"}

	s := scripted(sessionResult{content: `{"topic":"remote work","skip_research":true}`})
	out, err := Planner(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Contains(t, s.calls[0].prompt, "Which audience?")
	assert.Contains(t, s.calls[0].prompt, "team leads")
	assert.Contains(t, s.calls[0].prompt, "Do not ask further questions")

	assert.Nil(t, out.PendingInput)
	assert.Nil(t, out.Answers)
	assert.Equal(t, workflow.PhasePositioning, out.Phase)
}

func TestPlanner_ReentryRejectsMoreQuestions(t *testing.T) {
	st := workflow.NewState("run-1", "write something")
	st.PendingInput = &workflow.PendingInput{
		Type:      workflow.PendingQuestions,
		Questions: []workflow.Question{{ID: "q1", Text: "Which audience?"}},
	}
	st.Answers = map[string]string{"q1": "team leads"}

	s := scripted(sessionResult{content: `{"questions":[{"id":"q2","text":"more?"}]}`})
	_, err := Planner(context.Background(), depsWith(s), st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after answers were provided")
}

func TestPlanner_SessionFailure(t *testing.T) {
	s := scripted(sessionResult{err: errors.New("timeout")})
	_, err := Planner(context.Background(), depsWith(s), workflow.NewState("run-1", "req"))
	assert.Error(t, err)
}

func TestResearch_FoldsFindings(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "remote work", ResearchTasks: []string{"stats"}})
	st.Phase = workflow.PhaseResearch

	s := scripted(sessionResult{content: `{
		"sources":[{"title":"Survey 2026","url":"https://example.com/survey"}],
		"facts":["58% hybrid"],"claims":["async reduces meetings"],
		"summary":"hybrid is the norm"}`})

	out, err := Research(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhasePositioning, out.Phase)
	require.NotNil(t, out.Research)
	assert.Equal(t, "hybrid is the norm", out.Research.Summary)
	assert.Len(t, out.Research.Sources, 1)
	assert.Equal(t, "research", s.calls[0].cfg.Capability)
}

func TestResearch_PassesSessionLocalExecutors(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t", ResearchTasks: []string{"x"}})
	st.Phase = workflow.PhaseResearch

	s := scripted(sessionResult{content: `{"summary":"ok"}`})
	deps := depsWith(s)
	deps.ResearchTools = []llm.ToolDefinition{{Name: "web_search"}}
	deps.ResearchExecutors = map[string]agent.Executor{"web_search": nil}

	_, err := Research(context.Background(), deps, st)
	require.NoError(t, err)

	require.Len(t, s.calls, 1)
	assert.Contains(t, s.calls[0].cfg.Executors, "web_search")
	assert.Len(t, s.calls[0].cfg.Tools, 1)
}

func TestPositioning_ReusesPriorOnSkip(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t", SkipPositioning: true})
	st.Positioning = &workflow.Positioning{Angle: "kept"}

	s := scripted()
	out, err := Positioning(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseDraft, out.Phase)
	assert.Equal(t, "kept", out.Positioning.Angle)
	assert.Empty(t, s.calls)
}

func TestPositioning_Derives(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "remote work", Audience: "leads"})

	s := scripted(sessionResult{content: `{
		"angle":"async first","audience":"team leads",
		"pain_points":["meeting overload"],"tone":"practical"}`})

	out, err := Positioning(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseDraft, out.Phase)
	assert.Equal(t, "async first", out.Positioning.Angle)
	assert.Equal(t, []string{"meeting overload"}, out.Positioning.PainPoints)
}

func TestDraft_Fresh(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "remote work"})
	st.Positioning = &workflow.Positioning{Angle: "async", Audience: "leads", Tone: "practical"}

	s := scripted(sessionResult{content: "The post body."})
	out, err := Draft(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseCritic, out.Phase)
	assert.Equal(t, "The post body.", out.Draft)
	assert.Equal(t, "writing", s.calls[0].cfg.Capability)
}

func TestDraft_RevisesWithInstructions(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t", DraftInstructions: "make it shorter"})
	st.Draft = "A long existing draft."
	st.FinalDraft = "A long polished draft."

	s := scripted(sessionResult{content: "Shorter."})
	out, err := Draft(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Contains(t, s.calls[0].prompt, "make it shorter")
	assert.Contains(t, s.calls[0].prompt, "A long existing draft.")
	assert.Equal(t, "Shorter.", out.Draft)
	assert.Empty(t, out.FinalDraft)
}

func TestDraft_EmptyOutputIsError(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	s := scripted(sessionResult{content: "   "})
	_, err := Draft(context.Background(), depsWith(s), st)
	assert.Error(t, err)
}

func TestCritic_Improves(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.Draft = "rough draft"

	s := scripted(sessionResult{content: "polished draft"})
	out, err := Critic(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseImage, out.Phase)
	assert.Equal(t, "polished draft", out.FinalDraft)
	assert.Equal(t, "critique", s.calls[0].cfg.Capability)
}

func TestCritic_FailureFallsBackToDraft(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.Draft = "the only draft"

	s := scripted(sessionResult{err: errors.New("model unavailable")})
	out, err := Critic(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, "the only draft", out.FinalDraft)
	assert.Equal(t, workflow.PhaseImage, out.Phase)
}

func TestCritic_SkipFlags(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t", SkipCritic: true, SkipImage: true})
	st.Draft = "draft"

	s := scripted()
	out, err := Critic(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseComplete, out.Phase)
	assert.Equal(t, "draft", out.FinalDraft)
	assert.Equal(t, workflow.ImageStatusSkipped, out.ImageStatus)
	assert.Empty(t, s.calls)
}

func TestCritic_ApprovalRaisesImprovements(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.Draft = "rough draft"

	s := scripted(sessionResult{content: `{"improvements":[
		{"id":"i1","text":"tighten the opening"},
		{"id":"i2","text":"cut the last paragraph"}]}`})

	deps := depsWith(s)
	deps.RequireCriticApproval = true

	out, err := Critic(context.Background(), deps, st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseCriticWaiting, out.Phase)
	require.NotNil(t, out.PendingInput)
	assert.Equal(t, workflow.PendingImprovements, out.PendingInput.Type)
	assert.Len(t, out.PendingInput.Improvements, 2)
	assert.Equal(t, "rough draft", out.PendingInput.Draft)
}

func TestCritic_AppliesSelectedImprovements(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.Draft = "rough draft"
	st.Phase = workflow.PhaseCritic
	st.PendingInput = &workflow.PendingInput{
		Type: workflow.PendingImprovements,
		Improvements: []workflow.Improvement{
			{ID: "i1", Text: "tighten the opening"},
			{ID: "i2", Text: "cut the last paragraph"},
		},
		Draft: "rough draft",
	}
	st.SelectedIDs = []string{"i2"}

	s := scripted(sessionResult{content: "revised draft"})
	out, err := Critic(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Contains(t, s.calls[0].prompt, "cut the last paragraph")
	assert.NotContains(t, s.calls[0].prompt, "tighten the opening")
	assert.Equal(t, "revised draft", out.FinalDraft)
	assert.Nil(t, out.PendingInput)
	assert.Nil(t, out.SelectedIDs)
	assert.Equal(t, workflow.PhaseImage, out.Phase)
}

func TestCritic_EmptySelectionKeepsDraft(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.Draft = "rough draft"
	st.PendingInput = &workflow.PendingInput{
		Type:         workflow.PendingImprovements,
		Improvements: []workflow.Improvement{{ID: "i1", Text: "tighten"}},
		Draft:        "rough draft",
	}
	st.SelectedIDs = nil

	s := scripted()
	out, err := Critic(context.Background(), depsWith(s), st)
	require.NoError(t, err)

	assert.Equal(t, "rough draft", out.FinalDraft)
	assert.Empty(t, s.calls)
	assert.Equal(t, workflow.PhaseImage, out.Phase)
}

type fakeImageGen struct {
	url string
	err error
}

func (f *fakeImageGen) Generate(context.Context, string) (string, error) {
	return f.url, f.err
}

func TestImage_Success(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.FinalDraft = "the post"

	s := scripted(sessionResult{content: "a sunlit desk by a window"})
	deps := depsWith(s)
	deps.Image = &fakeImageGen{url: "https://img.example.com/1.png"}

	out, err := Image(context.Background(), deps, st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseComplete, out.Phase)
	assert.Equal(t, workflow.ImageStatusReady, out.ImageStatus)
	assert.Equal(t, "https://img.example.com/1.png", out.ImageURL)
	assert.Equal(t, "a sunlit desk by a window", out.ImagePrompt)
}

func TestImage_FailureStillCompletes(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.FinalDraft = "the post"

	s := scripted(sessionResult{content: "prompt"})
	deps := depsWith(s)
	deps.Image = &fakeImageGen{err: errors.New("image api down")}

	out, err := Image(context.Background(), deps, st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseComplete, out.Phase)
	assert.Equal(t, workflow.ImageStatusError, out.ImageStatus)

	last := out.Messages[len(out.Messages)-1]
	assert.Contains(t, last.Content, "without one")
}

func TestImage_NoGeneratorSkips(t *testing.T) {
	st := plannedState(workflow.Plan{Topic: "t"})
	st.FinalDraft = "the post"

	out, err := Image(context.Background(), depsWith(scripted()), st)
	require.NoError(t, err)

	assert.Equal(t, workflow.PhaseComplete, out.Phase)
	assert.Equal(t, workflow.ImageStatusSkipped, out.ImageStatus)
}

func TestForPhase(t *testing.T) {
	for _, phase := range []workflow.Phase{
		workflow.PhasePlanner, workflow.PhaseResearch, workflow.PhasePositioning,
		workflow.PhaseDraft, workflow.PhaseCritic, workflow.PhaseImage,
	} {
		h, err := ForPhase(phase)
		require.NoError(t, err, phase)
		assert.NotNil(t, h)
	}

	_, err := ForPhase(workflow.PhaseComplete)
	assert.Error(t, err)
}
