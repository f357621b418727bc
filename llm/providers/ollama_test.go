package providers

import (
	"encoding/json"
	"testing"

	"github.com/c360studio/inkwell/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaProvider_BuildURL(t *testing.T) {
	p := &OllamaProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "http://localhost:11434/v1/chat/completions",
		},
		{
			name:    "full path preserved",
			baseURL: "http://host/v1/chat/completions",
			want:    "http://host/v1/chat/completions",
		},
		{
			name:    "base appended",
			baseURL: "http://host/v1",
			want:    "http://host/v1/chat/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.BuildURL(tt.baseURL))
		})
	}
}

func TestOllamaProvider_BuildRequestBody_Tools(t *testing.T) {
	p := &OllamaProvider{}

	tools := []llm.ToolDefinition{{
		Name:        "generate_image",
		Description: "Generate an image",
		Parameters:  map[string]any{"type": "object"},
	}}

	body, err := p.BuildRequestBody("qwen2.5:14b", []llm.Message{{Role: "user", Content: "go"}}, nil, 1024, tools)
	require.NoError(t, err)

	var req openAIRequest
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "function", req.Tools[0].Type)
	assert.Equal(t, "generate_image", req.Tools[0].Function.Name)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 1024, *req.MaxTokens)
}

func TestOllamaProvider_ParseResponse(t *testing.T) {
	p := &OllamaProvider{}

	body := `{
		"model": "qwen2.5:14b",
		"choices": [{"message": {"role": "assistant", "content": "done"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 8, "completion_tokens": 2, "total_tokens": 10}
	}`

	resp, err := p.ParseResponse([]byte(body), "qwen2.5:14b")
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
}

func TestOllamaProvider_ParseResponse_ToolCalls(t *testing.T) {
	p := &OllamaProvider{}

	body := `{
		"choices": [{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "web_search", "arguments": "{\"query\": \"x\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}]
	}`

	resp, err := p.ParseResponse([]byte(body), "qwen2.5:14b")
	require.NoError(t, err)
	assert.Equal(t, llm.FinishReasonToolUse, resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "web_search", resp.ToolCalls[0].Name)
}

func TestOllamaProvider_ParseResponse_NoChoices(t *testing.T) {
	p := &OllamaProvider{}

	_, err := p.ParseResponse([]byte(`{"choices": []}`), "m")
	assert.ErrorContains(t, err, "no choices")
}

func TestOpenAIProvider_BuildURL(t *testing.T) {
	p := &OpenAIProvider{}
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", p.BuildURL(""))
}
