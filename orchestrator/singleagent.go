package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/metrics"
	"github.com/c360studio/inkwell/model"
	"github.com/c360studio/inkwell/runstore"
	"github.com/c360studio/inkwell/workflow"
	"github.com/c360studio/inkwell/workflow/handlers"
)

// DefaultAgentTimeout bounds one single-agent exchange.
const DefaultAgentTimeout = 5 * time.Minute

const singleAgentSystemPrompt = `You produce short-form posts end to end: research, positioning, drafting,
critique, and illustration. Record every piece of work with the recording
tools as you go: save_research after researching, set_positioning once you
know the framing, write_draft for each draft, improve_draft for the final
version, generate_image for the illustration. Ask clarifying questions
directly in conversation when the request is ambiguous. Finish each exchange
with a short status message for the user.`

// SingleAgent keeps one long-lived conversational session per run. There is
// no phase machine and no checkpoint: clarification happens in conversation,
// and the run is always ready for another message.
type SingleAgent struct {
	deps    handlers.Deps
	store   runstore.Store
	sink    events.Sink
	logger  *slog.Logger
	timeout time.Duration

	initOnce  sync.Once
	destroyed atomic.Bool

	mu   sync.Mutex
	runs map[string]*agentRun
}

type agentRun struct {
	mu       sync.Mutex
	session  handlers.SessionRunner
	notebook *notebook
	inFlight bool
}

// NewSingleAgent creates the single-agent strategy.
func NewSingleAgent(deps handlers.Deps, store runstore.Store, sink events.Sink, logger *slog.Logger) *SingleAgent {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SingleAgent{
		deps:    deps,
		store:   store,
		sink:    sink,
		logger:  logger,
		timeout: DefaultAgentTimeout,
		runs:    make(map[string]*agentRun),
	}
}

// Initialize is idempotent.
func (s *SingleAgent) Initialize(_ context.Context) error {
	s.initOnce.Do(func() {
		s.logger.Info("Single-agent orchestrator initialized")
	})
	return nil
}

// StartWorkflow forwards the request to the run's session, creating the
// session on first use. A call while an exchange is in flight is a no-op.
func (s *SingleAgent) StartWorkflow(ctx context.Context, runID, userRequest string) error {
	if s.destroyed.Load() {
		return errors.New("orchestrator destroyed")
	}
	if runID == "" || userRequest == "" {
		return errors.New("run id and user request are required")
	}

	s.mu.Lock()
	run, exists := s.runs[runID]
	if !exists {
		run = &agentRun{notebook: newNotebook(runID, userRequest)}
		s.runs[runID] = run
	}
	s.mu.Unlock()

	run.mu.Lock()
	if run.inFlight {
		run.mu.Unlock()
		s.logger.Info("Duplicate start suppressed", "run_id", runID)
		return nil
	}
	if run.session == nil {
		run.session = s.newSession(runID, run.notebook)
		s.createRecord(ctx, runID, userRequest)
		metrics.WorkflowsStarted.WithLabelValues("single-agent").Inc()
	}
	session := run.session
	run.inFlight = true
	run.mu.Unlock()

	defer func() {
		run.mu.Lock()
		run.inFlight = false
		run.mu.Unlock()
	}()

	if exists {
		run.notebook.update(func(st *workflow.State) {
			*st = st.WithMessage("user", userRequest)
		})
	}

	result, err := session.Run(ctx, userRequest, s.timeout)
	if err != nil {
		s.logger.Error("Agent exchange failed", "run_id", runID, "error", err)
		run.notebook.update(func(st *workflow.State) {
			st.Error = err.Error()
		})
		s.sink.Publish(events.New(events.TypeWorkflowError, runID, "", err.Error()))
		s.project(ctx, runID, run)
		return err
	}

	run.notebook.update(func(st *workflow.State) {
		if result.Content != "" {
			*st = st.WithMessage("assistant", result.Content)
		}
		st.Error = ""
	})
	s.project(ctx, runID, run)
	return nil
}

// HandleUserResponse is a no-op: this strategy never raises checkpoints.
func (s *SingleAgent) HandleUserResponse(_ context.Context, runID string, _ workflow.UserResponse) error {
	s.logger.Info("Single-agent strategy has no checkpoints, response ignored", "run_id", runID)
	return nil
}

// HandleFollowUp is identical to StartWorkflow.
func (s *SingleAgent) HandleFollowUp(ctx context.Context, runID, userRequest string) error {
	return s.StartWorkflow(ctx, runID, userRequest)
}

// GetState returns the best-effort projection recorded through the tools.
func (s *SingleAgent) GetState(runID string) (workflow.State, bool) {
	s.mu.Lock()
	run := s.runs[runID]
	s.mu.Unlock()
	if run == nil {
		return workflow.State{}, false
	}
	return run.notebook.snapshot(), true
}

// IsWorkflowComplete always reports false: the run has no terminal state and
// is always ready for another message.
func (s *SingleAgent) IsWorkflowComplete(string) bool {
	return false
}

// Destroy releases every session. In-flight exchanges stop at their next
// turn boundary.
func (s *SingleAgent) Destroy() {
	s.destroyed.Store(true)

	s.mu.Lock()
	runs := s.runs
	s.runs = make(map[string]*agentRun)
	s.mu.Unlock()

	for _, run := range runs {
		if run.session != nil {
			run.session.Destroy()
		}
	}
	s.logger.Info("Single-agent orchestrator destroyed")
}

func (s *SingleAgent) newSession(runID string, n *notebook) handlers.SessionRunner {
	execs := notebookTools(n, s.deps.Image)
	tools := append(notebookToolDefinitions(execs), s.deps.ResearchTools...)
	// Publishing is in-conversation here; the pipeline keeps it out of band.
	tools = append(tools, agent.Definitions("publish_post")...)
	for name, exec := range s.deps.ResearchExecutors {
		execs[name] = exec
	}

	return s.deps.Sessions(agent.Config{
		SystemPrompt: singleAgentSystemPrompt,
		Capability:   string(model.CapabilityWriting),
		Tools:        tools,
		Executors:    execs,
		RunID:        runID,
		Phase:        "agent",
		MaxTurns:     24,
	})
}

func (s *SingleAgent) createRecord(ctx context.Context, runID, topic string) {
	if s.store == nil {
		return
	}
	if _, err := s.store.Create(ctx, runID, topic); err != nil {
		s.logger.Warn("Run store create failed", "run_id", runID, "error", err)
	}
}

func (s *SingleAgent) project(ctx context.Context, runID string, run *agentRun) {
	if s.store == nil {
		return
	}
	st := run.notebook.snapshot()
	err := s.store.Update(ctx, runID, func(r *runstore.RunState) {
		runstore.Project(r, st)
	})
	if err != nil {
		s.logger.Warn("Run store update failed", "run_id", runID, "error", err)
	}
}
