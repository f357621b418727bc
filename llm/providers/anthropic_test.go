package providers

import (
	"encoding/json"
	"testing"

	"github.com/c360studio/inkwell/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProvider_BuildURL(t *testing.T) {
	p := &AnthropicProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "https://api.anthropic.com/v1/messages",
		},
		{
			name:    "custom base URL",
			baseURL: "https://custom.api.com",
			want:    "https://custom.api.com/v1/messages",
		},
		{
			name:    "trailing slash handled",
			baseURL: "https://api.anthropic.com/",
			want:    "https://api.anthropic.com/v1/messages",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL))
		})
	}
}

func TestAnthropicProvider_BuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}

	messages := []llm.Message{
		{Role: "system", Content: "You are helpful."},
		{Role: "user", Content: "Hello"},
	}

	temp := 0.7
	body, err := p.BuildRequestBody("claude-sonnet-4", messages, &temp, 2048, nil)
	require.NoError(t, err)

	// System message is extracted to the top-level field.
	assert.Contains(t, string(body), `"system":"You are helpful."`)
	assert.Contains(t, string(body), `"model":"claude-sonnet-4"`)
	assert.Contains(t, string(body), `"max_tokens":2048`)
	assert.NotContains(t, string(body), `"role":"system"`)
}

func TestAnthropicProvider_BuildRequestBody_Tools(t *testing.T) {
	p := &AnthropicProvider{}

	tools := []llm.ToolDefinition{{
		Name:        "web_search",
		Description: "Search the web",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}}

	messages := []llm.Message{
		{Role: "user", Content: "Find facts"},
		{Role: "assistant", ToolCalls: []llm.ToolCall{
			{ID: "tu_1", Name: "web_search", Arguments: json.RawMessage(`{"query":"remote work"}`)},
		}},
		{Role: "tool", ToolCallID: "tu_1", Content: "3 results"},
	}

	body, err := p.BuildRequestBody("claude-sonnet-4", messages, nil, 0, tools)
	require.NoError(t, err)

	var req anthropicRequest
	require.NoError(t, json.Unmarshal(body, &req))

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "web_search", req.Tools[0].Name)
	assert.Equal(t, "object", req.Tools[0].InputSchema["type"])

	// user, assistant tool_use, user tool_result
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Contains(t, string(body), `"tool_use_id":"tu_1"`)
}

func TestAnthropicProvider_ParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	body := `{
		"content": [{"type": "text", "text": "Here you go."}],
		"model": "claude-sonnet-4",
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 20, "output_tokens": 10}
	}`

	resp, err := p.ParseResponse([]byte(body), "claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, "Here you go.", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, 30, resp.Usage.TotalTokens)
	assert.Empty(t, resp.ToolCalls)
}

func TestAnthropicProvider_ParseResponse_ToolUse(t *testing.T) {
	p := &AnthropicProvider{}

	body := `{
		"content": [
			{"type": "text", "text": "Let me search."},
			{"type": "tool_use", "id": "tu_1", "name": "web_search", "input": {"query": "remote work stats"}}
		],
		"model": "claude-sonnet-4",
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 5, "output_tokens": 5}
	}`

	resp, err := p.ParseResponse([]byte(body), "claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, llm.FinishReasonToolUse, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "web_search", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query": "remote work stats"}`, string(resp.ToolCalls[0].Arguments))
}

func TestAnthropicProvider_ParseResponse_Error(t *testing.T) {
	p := &AnthropicProvider{}

	body := `{"error": {"type": "overloaded_error", "message": "Overloaded"}}`

	_, err := p.ParseResponse([]byte(body), "claude-sonnet-4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded_error")
}
