package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/metrics"
	"github.com/c360studio/inkwell/runstore"
	"github.com/c360studio/inkwell/workflow"
	"github.com/c360studio/inkwell/workflow/handlers"
)

// Pipeline drives the phase state machine: planner through image, suspending
// on pending input and resuming when a response arrives. Phase execution per
// run is strictly sequential; runs progress independently.
type Pipeline struct {
	deps   handlers.Deps
	store  runstore.Store
	sink   events.Sink
	logger *slog.Logger

	initOnce  sync.Once
	destroyed atomic.Bool

	mu   sync.Mutex
	runs map[string]*pipelineRun
}

type pipelineRun struct {
	mu       sync.Mutex
	state    workflow.State
	inFlight bool
}

// NewPipeline creates the pipeline strategy.
func NewPipeline(deps handlers.Deps, store runstore.Store, sink events.Sink, logger *slog.Logger) *Pipeline {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		deps:   deps,
		store:  store,
		sink:   sink,
		logger: logger,
		runs:   make(map[string]*pipelineRun),
	}
}

// Initialize is idempotent; the pipeline's resources arrive via its Deps.
func (p *Pipeline) Initialize(_ context.Context) error {
	p.initOnce.Do(func() {
		p.logger.Info("Pipeline orchestrator initialized")
	})
	return nil
}

// StartWorkflow begins or resumes a run. Duplicate starts while the run is
// in progress are suppressed; a start against a terminal run becomes a
// follow-up re-entering the planner with accumulated state intact.
func (p *Pipeline) StartWorkflow(ctx context.Context, runID, userRequest string) error {
	if p.destroyed.Load() {
		return errors.New("orchestrator destroyed")
	}
	if runID == "" || userRequest == "" {
		return errors.New("run id and user request are required")
	}

	p.mu.Lock()
	run, exists := p.runs[runID]
	if !exists {
		run = &pipelineRun{}
		p.runs[runID] = run
	}
	p.mu.Unlock()

	run.mu.Lock()
	if run.inFlight {
		run.mu.Unlock()
		p.logger.Info("Duplicate start suppressed", "run_id", runID)
		return nil
	}

	switch {
	case !exists || run.state.RunID == "":
		run.state = workflow.NewState(runID, userRequest)
		p.createRecord(ctx, runID, userRequest)
	case run.state.Phase.IsTerminal():
		// Follow-up: accumulated state stays, the planner decides reuse.
		st := run.state.WithMessage("user", userRequest)
		st.Phase = workflow.PhasePlanner
		st.PendingInput = nil
		st.Answers = nil
		st.SelectedIDs = nil
		st.Error = ""
		run.state = st
	default:
		run.mu.Unlock()
		p.logger.Info("Run already in progress, start ignored",
			"run_id", runID, "phase", run.state.Phase.String())
		return nil
	}

	run.inFlight = true
	run.mu.Unlock()

	metrics.WorkflowsStarted.WithLabelValues("pipeline").Inc()
	p.advance(ctx, runID, run)
	return nil
}

// HandleUserResponse resolves the run's pending input and resumes the
// machine. With no matching pending input it logs and does nothing, which
// also makes a duplicate response a no-op.
func (p *Pipeline) HandleUserResponse(ctx context.Context, runID string, resp workflow.UserResponse) error {
	if p.destroyed.Load() {
		return errors.New("orchestrator destroyed")
	}

	p.mu.Lock()
	run := p.runs[runID]
	p.mu.Unlock()
	if run == nil {
		p.logger.Warn("Response for unknown run ignored", "run_id", runID)
		return nil
	}

	run.mu.Lock()
	if run.inFlight || run.state.PendingInput == nil || !run.state.Phase.IsWaiting() {
		run.mu.Unlock()
		p.logger.Warn("Response without pending input ignored",
			"run_id", runID, "phase", run.state.Phase.String())
		return nil
	}

	if err := resp.Validate(run.state.PendingInput); err != nil {
		run.mu.Unlock()
		return fmt.Errorf("invalid response for run %s: %w", runID, err)
	}

	st := run.state
	st.Answers = resp.Answers
	st.SelectedIDs = resp.SelectedIDs
	st.Phase = st.Phase.ResumePhase()
	run.state = st
	run.inFlight = true
	run.mu.Unlock()

	metrics.PendingInputs.Dec()
	p.advance(ctx, runID, run)
	return nil
}

// HandleFollowUp delivers a new instruction to a finished run. It shares
// StartWorkflow's reinterpretation logic.
func (p *Pipeline) HandleFollowUp(ctx context.Context, runID, userRequest string) error {
	return p.StartWorkflow(ctx, runID, userRequest)
}

// GetState returns the last committed snapshot for a run.
func (p *Pipeline) GetState(runID string) (workflow.State, bool) {
	p.mu.Lock()
	run := p.runs[runID]
	p.mu.Unlock()
	if run == nil {
		return workflow.State{}, false
	}

	run.mu.Lock()
	defer run.mu.Unlock()
	if run.state.RunID == "" {
		return workflow.State{}, false
	}
	return run.state.Clone(), true
}

// IsWorkflowComplete reports whether the run reached the complete phase.
func (p *Pipeline) IsWorkflowComplete(runID string) bool {
	st, ok := p.GetState(runID)
	return ok && st.Phase == workflow.PhaseComplete
}

// Destroy drops all run state. An in-flight phase finishes its handler call
// but commits nothing further.
func (p *Pipeline) Destroy() {
	p.destroyed.Store(true)
	p.mu.Lock()
	p.runs = make(map[string]*pipelineRun)
	p.mu.Unlock()
	p.logger.Info("Pipeline orchestrator destroyed")
}

// advance runs handlers until the machine suspends, terminates, or fails.
// The caller must have set run.inFlight; advance clears it on exit. The
// handler itself executes outside the run lock so GetState stays responsive.
func (p *Pipeline) advance(ctx context.Context, runID string, run *pipelineRun) {
	defer func() {
		run.mu.Lock()
		run.inFlight = false
		run.mu.Unlock()
	}()

	for {
		if p.destroyed.Load() {
			return
		}

		run.mu.Lock()
		st := run.state.Clone()
		run.mu.Unlock()

		if st.Phase.IsTerminal() || st.Phase.IsWaiting() {
			return
		}

		handler, err := handlers.ForPhase(st.Phase)
		if err != nil {
			p.fail(ctx, runID, run, st.Phase, err)
			return
		}

		p.sink.Publish(events.New(events.TypePhaseStart, runID, st.Phase.String(), nil))
		p.logger.Info("Phase starting", "run_id", runID, "phase", st.Phase.String())

		startedAt := time.Now()
		next, err := handler(ctx, p.deps, st)
		metrics.PhaseDuration.WithLabelValues(st.Phase.String()).Observe(time.Since(startedAt).Seconds())

		if err != nil {
			p.fail(ctx, runID, run, st.Phase, err)
			return
		}
		if !st.Phase.CanTransitionTo(next.Phase) {
			p.fail(ctx, runID, run, st.Phase,
				fmt.Errorf("invalid transition %s -> %s", st.Phase, next.Phase))
			return
		}

		if p.destroyed.Load() {
			return
		}

		next.UpdatedAt = time.Now()

		run.mu.Lock()
		run.state = next
		run.mu.Unlock()

		p.sink.Publish(events.New(events.TypePhaseComplete, runID, st.Phase.String(), next.Clone()))
		p.project(ctx, runID, next)

		switch {
		case next.Phase.IsWaiting():
			metrics.PendingInputs.Inc()
			p.sink.Publish(events.New(events.TypePendingInput, runID, next.Phase.String(), next.PendingInput.Clone()))
			p.logger.Info("Awaiting user input",
				"run_id", runID,
				"phase", next.Phase.String(),
				"input_type", string(next.PendingInput.Type))
			return
		case next.Phase == workflow.PhaseComplete:
			metrics.WorkflowsCompleted.WithLabelValues("pipeline").Inc()
			p.sink.Publish(events.New(events.TypeWorkflowComplete, runID, next.Phase.String(), next.Clone()))
			p.logger.Info("Workflow complete", "run_id", runID)
			return
		}
	}
}

// fail moves the run to the error phase and records the cause.
func (p *Pipeline) fail(ctx context.Context, runID string, run *pipelineRun, phase workflow.Phase, cause error) {
	p.logger.Error("Phase failed",
		"run_id", runID,
		"phase", phase.String(),
		"error", cause)

	run.mu.Lock()
	st := run.state.WithMessage("assistant", fmt.Sprintf("The %s step failed: %v", phase, cause))
	st.Phase = workflow.PhaseError
	st.Error = cause.Error()
	// A run resumed from a checkpoint may still carry the prompt and its
	// response when the handler fails. The error phase is not a waiting
	// phase, so none of that survives.
	st.PendingInput = nil
	st.Answers = nil
	st.SelectedIDs = nil
	run.state = st
	run.mu.Unlock()

	metrics.WorkflowsFailed.WithLabelValues("pipeline").Inc()
	p.sink.Publish(events.New(events.TypeWorkflowError, runID, phase.String(), cause.Error()))
	p.project(ctx, runID, st)
}

func (p *Pipeline) createRecord(ctx context.Context, runID, topic string) {
	if p.store == nil {
		return
	}
	if _, err := p.store.Create(ctx, runID, topic); err != nil {
		p.logger.Warn("Run store create failed", "run_id", runID, "error", err)
	}
}

// project mirrors the display subset of state into the run store.
func (p *Pipeline) project(ctx context.Context, runID string, st workflow.State) {
	if p.store == nil {
		return
	}
	err := p.store.Update(ctx, runID, func(r *runstore.RunState) {
		runstore.Project(r, st)
	})
	if errors.Is(err, runstore.ErrNotFound) {
		p.createRecord(ctx, runID, st.UserRequest)
		err = p.store.Update(ctx, runID, func(r *runstore.RunState) {
			runstore.Project(r, st)
		})
	}
	if err != nil {
		p.logger.Warn("Run store update failed", "run_id", runID, "error", err)
	}
}
