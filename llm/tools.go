package llm

import "encoding/json"

// ToolDefinition describes a tool the model may call, using JSON Schema
// for the input parameters. Providers translate this to their wire format.
type ToolDefinition struct {
	// Name is the tool identifier (e.g. "web_search").
	Name string `json:"name"`

	// Description tells the model what the tool does.
	Description string `json:"description"`

	// Parameters is a JSON Schema object describing the tool input.
	Parameters map[string]any `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID uniquely identifies this call within the turn (provider-assigned).
	ID string `json:"id"`

	// Name is the tool being invoked.
	Name string `json:"name"`

	// Arguments is the raw JSON input the model supplied.
	Arguments json.RawMessage `json:"arguments"`
}

// FinishReasonToolUse is reported when generation stopped to invoke tools.
// Providers normalize their native value ("tool_use", "tool_calls") to this.
const FinishReasonToolUse = "tool_use"
