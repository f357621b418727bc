package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/inkwell/llm"
)

// ToolResult is the outcome of executing a tool call.
type ToolResult struct {
	// CallID echoes the tool call this result answers.
	CallID string `json:"call_id"`

	// Content is the output handed back to the model.
	Content string `json:"content"`

	// Error holds a tool failure message. A non-empty Error is still
	// returned to the model so it can react, not swallowed.
	Error string `json:"error,omitempty"`
}

// Executor runs one or more named tools.
type Executor interface {
	// Execute runs a tool call. Implementations return a ToolResult with
	// Error set for tool-level failures; the error return is for failures
	// of the executor itself.
	Execute(ctx context.Context, call llm.ToolCall) (ToolResult, error)

	// ListTools returns the definitions of the tools this executor serves.
	ListTools() []llm.ToolDefinition
}

// toolRegistry holds globally registered executors keyed by tool name.
var (
	toolRegistry   = make(map[string]Executor)
	toolRegistryMu sync.RWMutex
)

// RegisterTool binds a tool name to an executor. Returns an error if the
// name is already taken.
func RegisterTool(name string, exec Executor) error {
	toolRegistryMu.Lock()
	defer toolRegistryMu.Unlock()

	if _, exists := toolRegistry[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	toolRegistry[name] = exec
	return nil
}

// GetExecutor returns the executor for a tool name, or nil.
func GetExecutor(name string) Executor {
	toolRegistryMu.RLock()
	defer toolRegistryMu.RUnlock()
	return toolRegistry[name]
}

// ListRegisteredTools returns all registered tool names, sorted.
func ListRegisteredTools() []string {
	toolRegistryMu.RLock()
	defer toolRegistryMu.RUnlock()

	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions resolves tool names to their definitions, skipping unknown
// names. Used by phase handlers to equip a session with a named subset.
func Definitions(names ...string) []llm.ToolDefinition {
	toolRegistryMu.RLock()
	defer toolRegistryMu.RUnlock()

	var defs []llm.ToolDefinition
	for _, name := range names {
		exec, ok := toolRegistry[name]
		if !ok {
			continue
		}
		for _, def := range exec.ListTools() {
			if def.Name == name {
				defs = append(defs, def)
			}
		}
	}
	return defs
}
