// Package publish posts the finished piece to a configured webhook. It is
// offered as a tool so the conversational agent can publish on request.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/llm"
)

// Config configures the publisher.
type Config struct {
	// WebhookURL receives the published post as JSON.
	WebhookURL string

	// AuthToken, when set, is sent as a bearer token.
	AuthToken string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Executor implements the publish_post tool.
type Executor struct {
	cfg    Config
	client *http.Client
}

// NewExecutor creates the publish executor.
func NewExecutor(cfg Config) *Executor {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{cfg: cfg, client: client}
}

// ListTools returns the publish tool definition.
func (e *Executor) ListTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{{
		Name:        "publish_post",
		Description: "Publish the finished post to the configured destination.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":     map[string]any{"type": "string", "description": "Post title"},
				"body":      map[string]any{"type": "string", "description": "Post body"},
				"image_url": map[string]any{"type": "string", "description": "Optional header image URL"},
			},
			"required": []string{"title", "body"},
		},
	}}
}

type post struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageURL string `json:"image_url,omitempty"`
}

// Execute publishes one post.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) (agent.ToolResult, error) {
	if e.cfg.WebhookURL == "" {
		return agent.ToolResult{CallID: call.ID, Error: "publish destination not configured"}, nil
	}

	var in post
	if err := json.Unmarshal(call.Arguments, &in); err != nil || in.Title == "" || in.Body == "" {
		return agent.ToolResult{CallID: call.ID, Error: "publish_post requires title and body"}, nil
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.AuthToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("publish failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("publish endpoint returned %d", resp.StatusCode)}, nil
	}
	return agent.ToolResult{CallID: call.ID, Content: fmt.Sprintf("published %q", in.Title)}, nil
}
