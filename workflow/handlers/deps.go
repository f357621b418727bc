// Package handlers implements the six phase handlers of the content
// workflow. Each handler drives one agent session, folds its output into the
// workflow state, and decides the next phase. Handlers receive the state by
// value and return a new snapshot.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/model"
	"github.com/c360studio/inkwell/workflow"
)

// SessionRunner is a single agent session as seen by a handler.
type SessionRunner interface {
	Run(ctx context.Context, userPrompt string, timeout time.Duration) (*agent.Result, error)
	Destroy()
}

// SessionFactory creates a session for one phase invocation.
type SessionFactory func(cfg agent.Config) SessionRunner

// NewSessionFactory adapts an llm.Client into a SessionFactory.
func NewSessionFactory(client *llm.Client, sink events.Sink, logger *slog.Logger) SessionFactory {
	return func(cfg agent.Config) SessionRunner {
		return agent.NewSession(client, cfg,
			agent.WithSink(sink),
			agent.WithSessionLogger(logger))
	}
}

// ImageGenerator renders an illustration for a prompt and returns its URL.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Timeouts bounds each phase's agent-session call. Zero fields fall back to
// the defaults below.
type Timeouts struct {
	Planner     time.Duration
	Research    time.Duration
	Positioning time.Duration
	Draft       time.Duration
	Critic      time.Duration
	Image       time.Duration
}

// DefaultTimeouts returns per-phase timeouts sized to phase weight.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Planner:     60 * time.Second,
		Research:    3 * time.Minute,
		Positioning: 60 * time.Second,
		Draft:       3 * time.Minute,
		Critic:      2 * time.Minute,
		Image:       2 * time.Minute,
	}
}

// For returns the timeout for a phase.
func (t Timeouts) For(phase workflow.Phase) time.Duration {
	d := DefaultTimeouts()
	pick := func(v, def time.Duration) time.Duration {
		if v > 0 {
			return v
		}
		return def
	}
	switch phase {
	case workflow.PhasePlanner:
		return pick(t.Planner, d.Planner)
	case workflow.PhaseResearch:
		return pick(t.Research, d.Research)
	case workflow.PhasePositioning:
		return pick(t.Positioning, d.Positioning)
	case workflow.PhaseDraft:
		return pick(t.Draft, d.Draft)
	case workflow.PhaseCritic:
		return pick(t.Critic, d.Critic)
	case workflow.PhaseImage:
		return pick(t.Image, d.Image)
	default:
		return pick(0, d.Draft)
	}
}

// Deps carries the collaborators handlers need. The orchestrator builds one
// Deps per run and threads it through every phase.
type Deps struct {
	Sessions SessionFactory
	Sink     events.Sink
	Logger   *slog.Logger
	Timeouts Timeouts

	// Image generates illustrations. Nil means the image phase records a
	// skipped status instead of calling out.
	Image ImageGenerator

	// ResearchTools are offered to the research session.
	ResearchTools []llm.ToolDefinition

	// ResearchExecutors serve ResearchTools session-locally. Tools absent
	// here fall back to the global registry.
	ResearchExecutors map[string]agent.Executor

	// RequireCriticApproval makes the critic raise an improvements
	// checkpoint instead of applying its suggestions autonomously.
	RequireCriticApproval bool
}

// Handler advances one phase. The returned state carries the next phase.
type Handler func(ctx context.Context, deps Deps, st workflow.State) (workflow.State, error)

// ForPhase returns the handler for an executable phase.
func ForPhase(phase workflow.Phase) (Handler, error) {
	switch phase {
	case workflow.PhasePlanner:
		return Planner, nil
	case workflow.PhaseResearch:
		return Research, nil
	case workflow.PhasePositioning:
		return Positioning, nil
	case workflow.PhaseDraft:
		return Draft, nil
	case workflow.PhaseCritic:
		return Critic, nil
	case workflow.PhaseImage:
		return Image, nil
	default:
		return nil, fmt.Errorf("no handler for phase %s", phase)
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) sink() events.Sink {
	if d.Sink != nil {
		return d.Sink
	}
	return events.Discard
}

// runSession creates a session for a phase, runs one prompt, and destroys it.
func (d Deps) runSession(ctx context.Context, st workflow.State, phase workflow.Phase, systemPrompt, userPrompt string, tools []llm.ToolDefinition, executors map[string]agent.Executor) (*agent.Result, error) {
	if d.Sessions == nil {
		return nil, fmt.Errorf("no session factory configured")
	}

	session := d.Sessions(agent.Config{
		SystemPrompt: systemPrompt,
		Capability:   string(model.CapabilityForPhase(phase.String())),
		Tools:        tools,
		Executors:    executors,
		RunID:        st.RunID,
		Phase:        phase.String(),
	})
	defer session.Destroy()

	return session.Run(ctx, userPrompt, d.Timeouts.For(phase))
}
