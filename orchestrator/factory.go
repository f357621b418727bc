package orchestrator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/runstore"
	"github.com/c360studio/inkwell/workflow/handlers"
)

// Mode names an orchestration strategy.
type Mode string

const (
	ModePipeline    Mode = "pipeline"
	ModeSingleAgent Mode = "single-agent"

	// ModeSupervisor is accepted but not implemented; the factory falls
	// back to pipeline with a warning.
	ModeSupervisor Mode = "supervisor"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePipeline, ModeSingleAgent, ModeSupervisor:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown orchestrator mode: %q", s)
	}
}

var (
	modeMu      sync.RWMutex
	currentMode = ModePipeline
)

// CurrentMode returns the process-wide orchestrator mode.
func CurrentMode() Mode {
	modeMu.RLock()
	defer modeMu.RUnlock()
	return currentMode
}

// SetMode changes the process-wide mode. Callers decide when to destroy and
// recreate orchestrators; the factory does not manage lifecycles.
func SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	modeMu.Lock()
	currentMode = m
	modeMu.Unlock()
	return nil
}

// Factory builds orchestrators over a shared set of collaborators.
type Factory struct {
	Deps   handlers.Deps
	Store  runstore.Store
	Sink   events.Sink
	Logger *slog.Logger
}

// New builds the orchestrator for a mode. Supervisor is not implemented and
// falls back to pipeline.
func (f *Factory) New(mode Mode) Orchestrator {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch mode {
	case ModeSingleAgent:
		return NewSingleAgent(f.Deps, f.Store, f.Sink, logger)
	case ModeSupervisor:
		logger.Warn("Supervisor mode not implemented, falling back to pipeline")
		return NewPipeline(f.Deps, f.Store, f.Sink, logger)
	default:
		return NewPipeline(f.Deps, f.Store, f.Sink, logger)
	}
}
