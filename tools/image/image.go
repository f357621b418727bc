// Package image generates illustrations through an OpenAI-images-compatible
// HTTP endpoint.
package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultEndpoint is the OpenAI image generation API.
	DefaultEndpoint = "https://api.openai.com/v1/images/generations"

	// DefaultModel is used when the config names none.
	DefaultModel = "gpt-image-1"

	defaultSize     = "1024x1024"
	maxResponseSize = 4 << 20
)

// Config configures the generator.
type Config struct {
	// Endpoint is an OpenAI-images-compatible URL. Empty means
	// DefaultEndpoint.
	Endpoint string

	// APIKey is sent as a bearer token. Empty falls back to OPENAI_API_KEY.
	APIKey string

	// Model selects the image model.
	Model string

	// Size is the requested image size, e.g. "1024x1024".
	Size string

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Generator calls the image API. It satisfies the workflow's image
// generation dependency.
type Generator struct {
	cfg    Config
	client *http.Client
}

// NewGenerator creates a generator.
func NewGenerator(cfg Config) *Generator {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Size == "" {
		cfg.Size = defaultSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &Generator{cfg: cfg, client: client}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate renders one image and returns its URL.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("image prompt is required")
	}

	apiKey := g.cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return "", fmt.Errorf("image API key not configured")
	}

	body, err := json.Marshal(generateRequest{
		Model:  g.cfg.Model,
		Prompt: prompt,
		N:      1,
		Size:   g.cfg.Size,
	})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read image response: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse image response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("image API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API returned %d", resp.StatusCode)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", fmt.Errorf("image API returned no image")
	}
	return parsed.Data[0].URL, nil
}
