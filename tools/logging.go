// Package tools provides the external-capability tools offered to agent
// sessions: web search, page fetch, image generation, and publishing.
// Executors are registered globally via init() in register.go.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/llm"
)

// MaxLoggedResultLength caps result previews in trajectory logs.
const MaxLoggedResultLength = 200

// LoggingExecutor wraps an executor and writes a trajectory record for each
// call: tool name, duration, status, and a truncated result preview.
type LoggingExecutor struct {
	inner  agent.Executor
	logger *slog.Logger
}

// NewLoggingExecutor wraps an executor with trajectory logging.
func NewLoggingExecutor(inner agent.Executor) *LoggingExecutor {
	return &LoggingExecutor{inner: inner, logger: slog.Default()}
}

// Execute runs the underlying executor and logs the call.
func (l *LoggingExecutor) Execute(ctx context.Context, call llm.ToolCall) (agent.ToolResult, error) {
	startedAt := time.Now()
	result, err := l.inner.Execute(ctx, call)
	durationMs := time.Since(startedAt).Milliseconds()

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result.Error != "":
		status = "error"
	}

	preview := result.Content
	if len(preview) > MaxLoggedResultLength {
		preview = preview[:MaxLoggedResultLength] + "..."
	}

	l.logger.Info("Tool executed",
		"tool", call.Name,
		"status", status,
		"duration_ms", durationMs,
		"result_preview", preview)

	return result, err
}

// ListTools delegates to the inner executor.
func (l *LoggingExecutor) ListTools() []llm.ToolDefinition {
	return l.inner.ListTools()
}
