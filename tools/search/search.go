// Package search provides the research tools: a web search backed by a
// Brave-compatible API and a page fetch that reduces articles to markdown.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/llm"
)

const (
	// DefaultEndpoint is the Brave web search API.
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

	defaultResultCount = 5
	maxFetchBytes      = 2 << 20
	maxPageMarkdown    = 20000
)

// Config configures the search executor.
type Config struct {
	// Endpoint is a Brave-compatible search API URL. Empty means
	// DefaultEndpoint.
	Endpoint string

	// APIKey is sent as the subscription token header.
	APIKey string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Executor implements web_search and fetch_page.
type Executor struct {
	cfg       Config
	client    *http.Client
	converter *Converter
}

// NewExecutor creates the search executor.
func NewExecutor(cfg Config) *Executor {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Executor{cfg: cfg, client: client, converter: NewConverter()}
}

// ListTools returns the search tool definitions.
func (e *Executor) ListTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        "web_search",
			Description: "Search the web. Returns titles, URLs, and snippets.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Search query"},
					"count": map[string]any{"type": "integer", "description": "Number of results, max 10"},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "fetch_page",
			Description: "Fetch a web page and return its readable content as markdown.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string", "description": "Page URL"},
				},
				"required": []string{"url"},
			},
		},
	}
}

// Execute dispatches a search tool call.
func (e *Executor) Execute(ctx context.Context, call llm.ToolCall) (agent.ToolResult, error) {
	switch call.Name {
	case "web_search":
		return e.search(ctx, call)
	case "fetch_page":
		return e.fetch(ctx, call)
	default:
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("unknown tool: %s", call.Name)}, nil
	}
}

type searchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web struct {
		Results []searchResult `json:"results"`
	} `json:"web"`
}

func (e *Executor) search(ctx context.Context, call llm.ToolCall) (agent.ToolResult, error) {
	var in struct {
		Query string `json:"query"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(call.Arguments, &in); err != nil || in.Query == "" {
		return agent.ToolResult{CallID: call.ID, Error: "web_search requires query"}, nil
	}
	if e.cfg.APIKey == "" {
		return agent.ToolResult{CallID: call.ID, Error: "search API key not configured"}, nil
	}
	count := in.Count
	if count <= 0 || count > 10 {
		count = defaultResultCount
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", e.cfg.Endpoint, url.QueryEscape(in.Query), count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("search request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("search API returned %d", resp.StatusCode)}, nil
	}

	var parsed braveResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFetchBytes)).Decode(&parsed); err != nil {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("parse search response: %v", err)}, nil
	}

	if len(parsed.Web.Results) == 0 {
		return agent.ToolResult{CallID: call.ID, Content: "No results."}, nil
	}

	var b strings.Builder
	for i, r := range parsed.Web.Results {
		fmt.Fprintf(&b, "%d. %s\n%s\n%s\n\n", i+1, r.Title, r.URL, r.Description)
	}
	return agent.ToolResult{CallID: call.ID, Content: strings.TrimSpace(b.String())}, nil
}

func (e *Executor) fetch(ctx context.Context, call llm.ToolCall) (agent.ToolResult, error) {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(call.Arguments, &in); err != nil || in.URL == "" {
		return agent.ToolResult{CallID: call.ID, Error: "fetch_page requires url"}, nil
	}

	pageURL, err := url.Parse(in.URL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") {
		return agent.ToolResult{CallID: call.ID, Error: "fetch_page requires an http(s) url"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}
	req.Header.Set("User-Agent", "inkwell/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("fetch failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("fetch returned %d", resp.StatusCode)}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: fmt.Sprintf("read page: %v", err)}, nil
	}

	content := e.extract(body, pageURL)
	if len(content) > maxPageMarkdown {
		content = content[:maxPageMarkdown] + "\n\n[truncated]"
	}
	return agent.ToolResult{CallID: call.ID, Content: content}, nil
}

// extract runs readability first and falls back to whole-page conversion
// when the page has no extractable article.
func (e *Executor) extract(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		if out, cerr := e.converter.Convert([]byte(article.Content)); cerr == nil {
			if article.Title != "" {
				return "# " + article.Title + "\n\n" + out.Markdown
			}
			return out.Markdown
		}
	}

	out, err := e.converter.Convert(body)
	if err != nil {
		return string(body)
	}
	if out.Title != "" {
		return "# " + out.Title + "\n\n" + out.Markdown
	}
	return out.Markdown
}
