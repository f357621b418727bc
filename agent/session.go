// Package agent provides LLM-driven tool-calling sessions. A session is
// scoped either to one phase invocation (pipeline mode) or to a long-lived
// conversation (single-agent mode); either way it runs the same turn loop:
// complete, execute requested tools, feed results back, repeat until the
// model stops calling tools or limits are hit.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/inkwell/events"
	"github.com/c360studio/inkwell/llm"
)

// DefaultMaxTurns bounds the number of model turns in one Run call.
const DefaultMaxTurns = 12

// ErrSessionDestroyed is returned by Run after Destroy has been called.
var ErrSessionDestroyed = errors.New("session destroyed")

// Config describes a session to create.
type Config struct {
	// SystemPrompt is the session's standing instruction.
	SystemPrompt string

	// Capability selects the model via the registry ("planning", "writing"...).
	Capability string

	// Tools are the tool definitions offered to the model. Tool names must
	// be resolvable through Executors or the executor registry at call time.
	Tools []llm.ToolDefinition

	// Executors are session-local tool executors keyed by tool name. They
	// shadow the global registry, letting a run bind tools to its own state.
	Executors map[string]Executor

	// RunID and Phase tag the events this session emits.
	RunID string
	Phase string

	// MaxTurns bounds the turn loop. Zero means DefaultMaxTurns.
	MaxTurns int

	// Temperature overrides the endpoint default when non-nil.
	Temperature *float64
}

// Result is the outcome of one Run call.
type Result struct {
	// Content is the model's final text output for the turn loop.
	Content string

	// Turns is how many model completions were made.
	Turns int
}

// Session is one LLM conversation with tool access. Run calls on the same
// session are serialized; history accumulates across calls, which is what
// the single-agent strategy relies on.
type Session struct {
	client *llm.Client
	config Config
	sink   events.Sink
	logger *slog.Logger

	mu        sync.Mutex
	messages  []llm.Message
	destroyed atomic.Bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSink sets the event sink for streaming session events.
func WithSink(sink events.Sink) SessionOption {
	return func(s *Session) {
		s.sink = sink
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session. The system prompt is seeded into history.
func NewSession(client *llm.Client, cfg Config, opts ...SessionOption) *Session {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}

	s := &Session{
		client: client,
		config: cfg,
		sink:   events.Discard,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.SystemPrompt != "" {
		s.messages = append(s.messages, llm.Message{Role: "system", Content: cfg.SystemPrompt})
	}
	return s
}

// Run appends the user prompt and drives the turn loop until the model
// produces a final text answer, the turn budget is exhausted, or the
// timeout elapses. A zero timeout means no session-level deadline.
func (s *Session) Run(ctx context.Context, userPrompt string, timeout time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed.Load() {
		return nil, ErrSessionDestroyed
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.messages = append(s.messages, llm.Message{Role: "user", Content: userPrompt})

	for turn := 1; turn <= s.config.MaxTurns; turn++ {
		if s.destroyed.Load() {
			return nil, ErrSessionDestroyed
		}

		resp, err := s.client.Complete(ctx, llm.Request{
			Capability:  s.config.Capability,
			Messages:    s.messages,
			Temperature: s.config.Temperature,
			Tools:       s.config.Tools,
		})
		if err != nil {
			return nil, fmt.Errorf("session turn %d: %w", turn, err)
		}

		if resp.Content != "" {
			s.sink.Publish(events.New(events.TypeMessage, s.config.RunID, s.config.Phase, resp.Content))
		}

		s.messages = append(s.messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		if len(resp.ToolCalls) == 0 {
			return &Result{Content: resp.Content, Turns: turn}, nil
		}

		for _, call := range resp.ToolCalls {
			result := s.executeTool(ctx, call)
			content := result.Content
			if result.Error != "" {
				// Surface tool failures to the model so it can react.
				content = "ERROR: " + result.Error
			}
			s.messages = append(s.messages, llm.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}

	return nil, fmt.Errorf("session exceeded %d turns without completing", s.config.MaxTurns)
}

// executeTool resolves and runs a single tool call, emitting tool events.
func (s *Session) executeTool(ctx context.Context, call llm.ToolCall) ToolResult {
	s.sink.Publish(events.New(events.TypeToolStart, s.config.RunID, s.config.Phase, map[string]any{
		"call_id": call.ID,
		"tool":    call.Name,
	}))

	startedAt := time.Now()
	result := s.dispatchTool(ctx, call)
	duration := time.Since(startedAt)

	status := "success"
	if result.Error != "" {
		status = "error"
	}

	s.logger.Info("Tool call finished",
		"run_id", s.config.RunID,
		"phase", s.config.Phase,
		"tool", call.Name,
		"status", status,
		"duration_ms", duration.Milliseconds())

	s.sink.Publish(events.New(events.TypeToolComplete, s.config.RunID, s.config.Phase, map[string]any{
		"call_id":     call.ID,
		"tool":        call.Name,
		"status":      status,
		"duration_ms": duration.Milliseconds(),
	}))

	return result
}

func (s *Session) dispatchTool(ctx context.Context, call llm.ToolCall) ToolResult {
	exec := s.config.Executors[call.Name]
	if exec == nil {
		exec = GetExecutor(call.Name)
	}
	if exec == nil {
		return ToolResult{CallID: call.ID, Error: fmt.Sprintf("unknown tool: %s", call.Name)}
	}

	result, err := exec.Execute(ctx, call)
	if err != nil && result.Error == "" {
		result.Error = err.Error()
	}
	result.CallID = call.ID
	return result
}

// History returns a copy of the session transcript.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]llm.Message, len(s.messages))
	copy(history, s.messages)
	return history
}

// Destroy marks the session unusable. An in-flight Run stops at its next
// turn boundary; later Run calls return ErrSessionDestroyed. Destroy never
// blocks on an in-flight Run.
func (s *Session) Destroy() {
	s.destroyed.Store(true)
}
