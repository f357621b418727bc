package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/llm"
)

func defs(names ...string) []llm.ToolDefinition {
	out := make([]llm.ToolDefinition, len(names))
	for i, name := range names {
		out[i] = llm.ToolDefinition{Name: name}
	}
	return out
}

func names(in []llm.ToolDefinition) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, def := range in {
		out[i] = def.Name
	}
	return out
}

func TestFilterAllowed(t *testing.T) {
	all := defs("web_search", "fetch_page", "publish_post")

	tests := []struct {
		name  string
		allow []string
		want  []string
	}{
		{"empty allows all", nil, []string{"web_search", "fetch_page", "publish_post"}},
		{"exact match", []string{"web_search"}, []string{"web_search"}},
		{"glob match", []string{"*_page", "web_*"}, []string{"web_search", "fetch_page"}},
		{"no match", []string{"git_*"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterAllowed(all, tt.allow)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

type staticExecutor struct {
	result agent.ToolResult
}

func (s *staticExecutor) Execute(context.Context, llm.ToolCall) (agent.ToolResult, error) {
	return s.result, nil
}

func (s *staticExecutor) ListTools() []llm.ToolDefinition {
	return defs("static_tool")
}

func TestLoggingExecutorDelegates(t *testing.T) {
	inner := &staticExecutor{result: agent.ToolResult{Content: "out"}}
	wrapped := NewLoggingExecutor(inner)

	result, err := wrapped.Execute(context.Background(), llm.ToolCall{ID: "c1", Name: "static_tool"})
	require.NoError(t, err)
	assert.Equal(t, "out", result.Content)
	assert.Equal(t, names(inner.ListTools()), names(wrapped.ListTools()))
}

func TestInitRegistersSearchTools(t *testing.T) {
	registered := agent.ListRegisteredTools()
	assert.Contains(t, registered, "web_search")
	assert.Contains(t, registered, "fetch_page")
}
