// Package main provides the end-to-end scenario runner. Each scenario spins
// up an in-process scripted LLM server, drives the orchestrator through a
// complete workflow, and verifies the resulting state and store projection.
// No network or API key is needed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/llm"
	_ "github.com/c360studio/inkwell/llm/providers"
	"github.com/c360studio/inkwell/model"
	"github.com/c360studio/inkwell/orchestrator"
	"github.com/c360studio/inkwell/runstore"
	"github.com/c360studio/inkwell/workflow"
	"github.com/c360studio/inkwell/workflow/handlers"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		outputJSON bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "e2e [scenario]",
		Short: "Run inkwell end-to-end scenarios",
		Long: `Run end-to-end scenarios against an in-process scripted LLM.

Available scenarios:
  full-run     - A request flows planner through complete without checkpoints
  questions    - The planner asks clarifying questions; answers resume the run
  follow-up    - A finished run accepts a revision instruction
  single-agent - The conversational strategy records work through its tools
  all          - Run all scenarios (default)`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "all"
			if len(args) > 0 {
				name = args[0]
			}
			return run(name, outputJSON, timeout)
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output results as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Per-scenario timeout")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range scenarios {
				fmt.Printf("%-14s %s\n", s.name, s.description)
			}
		},
	})

	return cmd
}

type result struct {
	Scenario string        `json:"scenario"`
	Passed   bool          `json:"passed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

func run(name string, outputJSON bool, timeout time.Duration) error {
	selected := scenarios
	if name != "all" {
		selected = nil
		for _, s := range scenarios {
			if s.name == name {
				selected = []scenario{s}
			}
		}
		if selected == nil {
			return fmt.Errorf("unknown scenario %q", name)
		}
	}

	var results []result
	failed := 0
	for _, s := range selected {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		start := time.Now()
		err := s.fn(ctx)
		cancel()

		r := result{Scenario: s.name, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			r.Error = err.Error()
			failed++
		}
		results = append(results, r)

		if !outputJSON {
			status := "PASS"
			if err != nil {
				status = "FAIL"
			}
			fmt.Printf("%s  %-14s (%s)\n", status, s.name, r.Duration.Round(time.Millisecond))
			if err != nil {
				fmt.Printf("      %v\n", err)
			}
		}
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

type scenario struct {
	name        string
	description string
	fn          func(ctx context.Context) error
}

var scenarios = []scenario{
	{"full-run", "A request flows planner through complete without checkpoints", runFullRun},
	{"questions", "The planner asks clarifying questions; answers resume the run", runQuestions},
	{"follow-up", "A finished run accepts a revision instruction", runFollowUp},
	{"single-agent", "The conversational strategy records work through its tools", runSingleAgent},
}

// script serves scripted chat completions, routed by a marker found in the
// system prompt. Sequences advance per phase; the last entry repeats.
type script struct {
	responses map[string][]string
	counts    map[string]int
}

var phaseMarkers = map[string]string{
	"planner":     "content planning assistant",
	"research":    "research assistant",
	"positioning": "content strategist",
	"critic":      "exacting editor",
	"image":       "image generation model",
	"agent":       "posts end to end",
	"draft":       "professional writer",
}

func (sc *script) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	phase := "draft"
	for _, m := range req.Messages {
		if m.Role != "system" {
			continue
		}
		for p, marker := range phaseMarkers {
			if strings.Contains(m.Content, marker) {
				phase = p
			}
		}
	}

	seq := sc.responses[phase]
	if len(seq) == 0 {
		http.Error(w, fmt.Sprintf("no scripted response for phase %q", phase), http.StatusNotFound)
		return
	}
	idx := sc.counts[phase]
	sc.counts[phase]++
	if idx >= len(seq) {
		idx = len(seq) - 1
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{
			"message":       map[string]string{"role": "assistant", "content": seq[idx]},
			"finish_reason": "stop",
		}},
	})
}

const (
	planJSON = `{"plan": {"topic": "boring technology", "angle": "reliability", "audience": "engineers",
		"tone": "practical", "research_tasks": [], "skip_image": true}}`
	positioningJSON = `{"angle": "reliability", "audience": "engineers", "tone": "practical"}`
	draftText       = "Boring technology wins because its failure modes are documented."
	polishedText    = "Boring technology wins: every failure mode is already documented."
)

// harness builds an orchestrator wired to a scripted LLM server.
type harness struct {
	orch  orchestrator.Orchestrator
	store runstore.Store
	srv   *httptest.Server
}

func newHarness(responses map[string][]string, mode orchestrator.Mode) (*harness, error) {
	sc := &script{responses: responses, counts: make(map[string]int)}
	srv := httptest.NewServer(http.HandlerFunc(sc.serve))

	registry := model.NewDefaultRegistry()
	registry.SetEndpoint("scripted", &model.EndpointConfig{
		Provider: "openai",
		URL:      srv.URL + "/v1",
		Model:    "scripted",
	})
	for _, c := range registry.ListCapabilities() {
		registry.SetCapability(c, &model.CapabilityConfig{Preferred: []string{"scripted"}})
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	client := llm.NewClient(registry, llm.WithLogger(logger))

	dir, err := os.MkdirTemp("", "inkwell-e2e-*")
	if err != nil {
		srv.Close()
		return nil, err
	}
	store, err := runstore.NewFileStore(dir)
	if err != nil {
		srv.Close()
		return nil, err
	}

	deps := handlers.Deps{
		Sessions: handlers.NewSessionFactory(client, events.Discard, logger),
		Sink:     events.Discard,
		Logger:   logger,
	}

	factory := &orchestrator.Factory{Deps: deps, Store: store, Sink: events.Discard, Logger: logger}
	return &harness{orch: factory.New(mode), store: store, srv: srv}, nil
}

func (h *harness) close() {
	h.orch.Destroy()
	h.srv.Close()
}

func runFullRun(ctx context.Context) error {
	h, err := newHarness(map[string][]string{
		"planner":     {planJSON},
		"positioning": {positioningJSON},
		"draft":       {draftText},
		"critic":      {polishedText},
	}, orchestrator.ModePipeline)
	if err != nil {
		return err
	}
	defer h.close()

	if err := h.orch.StartWorkflow(ctx, "e2e-full", "write about boring tech"); err != nil {
		return err
	}
	if !h.orch.IsWorkflowComplete("e2e-full") {
		return fmt.Errorf("workflow did not complete")
	}
	st, _ := h.orch.GetState("e2e-full")
	if st.FinalDraft != polishedText {
		return fmt.Errorf("final draft = %q, want critic output", st.FinalDraft)
	}

	rec, err := h.store.Get(ctx, "e2e-full")
	if err != nil {
		return fmt.Errorf("store projection: %w", err)
	}
	if rec.Draft.Status != runstore.PanelStatusReady {
		return fmt.Errorf("draft panel status = %q, want ready", rec.Draft.Status)
	}
	return nil
}

func runQuestions(ctx context.Context) error {
	h, err := newHarness(map[string][]string{
		"planner": {
			`{"questions": [{"id": "q1", "text": "Which audience?"}]}`,
			planJSON,
		},
		"positioning": {positioningJSON},
		"draft":       {draftText},
		"critic":      {polishedText},
	}, orchestrator.ModePipeline)
	if err != nil {
		return err
	}
	defer h.close()

	if err := h.orch.StartWorkflow(ctx, "e2e-q", "write something"); err != nil {
		return err
	}
	st, _ := h.orch.GetState("e2e-q")
	if st.Phase != workflow.PhasePlannerWaiting {
		return fmt.Errorf("phase = %s, want planner_waiting", st.Phase)
	}
	if st.PendingInput == nil || st.PendingInput.Type != workflow.PendingQuestions {
		return fmt.Errorf("expected a questions checkpoint")
	}

	err = h.orch.HandleUserResponse(ctx, "e2e-q", workflow.UserResponse{
		Type:    workflow.PendingQuestions,
		Answers: map[string]string{"q1": "engineers"},
	})
	if err != nil {
		return err
	}
	if !h.orch.IsWorkflowComplete("e2e-q") {
		return fmt.Errorf("workflow did not complete after answers")
	}
	return nil
}

func runFollowUp(ctx context.Context) error {
	h, err := newHarness(map[string][]string{
		"planner": {
			planJSON,
			`{"plan": {"topic": "boring technology", "skip_research": true, "skip_positioning": true,
				"skip_critic": true, "skip_image": true, "draft_instructions": "make it shorter"}}`,
		},
		"positioning": {positioningJSON},
		"draft":       {draftText, "Boring tech wins."},
		"critic":      {polishedText},
	}, orchestrator.ModePipeline)
	if err != nil {
		return err
	}
	defer h.close()

	if err := h.orch.StartWorkflow(ctx, "e2e-fu", "write about boring tech"); err != nil {
		return err
	}
	if !h.orch.IsWorkflowComplete("e2e-fu") {
		return fmt.Errorf("initial workflow did not complete")
	}

	if err := h.orch.HandleFollowUp(ctx, "e2e-fu", "make it shorter"); err != nil {
		return err
	}
	st, _ := h.orch.GetState("e2e-fu")
	if st.FinalDraft != "Boring tech wins." {
		return fmt.Errorf("final draft = %q, want revised text", st.FinalDraft)
	}
	return nil
}

func runSingleAgent(ctx context.Context) error {
	h, err := newHarness(map[string][]string{
		"agent": {"I drafted the post and recorded it."},
	}, orchestrator.ModeSingleAgent)
	if err != nil {
		return err
	}
	defer h.close()

	if err := h.orch.StartWorkflow(ctx, "e2e-sa", "write about boring tech"); err != nil {
		return err
	}
	st, ok := h.orch.GetState("e2e-sa")
	if !ok {
		return fmt.Errorf("run state missing")
	}
	if len(st.Messages) < 2 {
		return fmt.Errorf("expected a recorded exchange, got %d messages", len(st.Messages))
	}
	return nil
}
