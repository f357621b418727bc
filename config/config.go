// Package config provides configuration loading and management for Inkwell.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/inkwell/model"
)

// Config represents the complete Inkwell configuration.
type Config struct {
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Model        ModelConfig        `yaml:"model"`
	NATS         NATSConfig         `yaml:"nats"`
	Store        StoreConfig        `yaml:"store"`
	Search       SearchConfig       `yaml:"search"`
	Image        ImageConfig        `yaml:"image"`
	Publish      PublishConfig      `yaml:"publish"`
	Timeouts     TimeoutsConfig     `yaml:"timeouts"`
	Tools        ToolsConfig        `yaml:"tools"`
}

// OrchestratorConfig selects the workflow strategy.
type OrchestratorConfig struct {
	// Mode is "pipeline", "single-agent", or "supervisor".
	Mode string `yaml:"mode"`
	// CriticApproval makes the pipeline's critic pause for user approval.
	CriticApproval bool `yaml:"critic_approval"`
}

// ModelConfig configures the capability registry.
type ModelConfig struct {
	// Endpoints overrides or adds named endpoints.
	Endpoints map[string]model.EndpointConfig `yaml:"endpoints"`
	// Capabilities overrides capability routing (preferred + fallbacks).
	Capabilities map[string]model.CapabilityConfig `yaml:"capabilities"`
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
}

// NATSConfig configures the NATS connection. An empty URL keeps everything
// in process: file run store and in-process event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// StoreConfig configures run persistence.
type StoreConfig struct {
	// Dir holds run JSON files when NATS is not configured.
	Dir string `yaml:"dir"`
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	// Endpoint is a Brave-compatible search API URL.
	Endpoint string `yaml:"endpoint"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// ImageConfig configures image generation.
type ImageConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	Size     string `yaml:"size"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// PublishConfig configures the publish tool.
type PublishConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	// AuthTokenEnv names the environment variable holding the token.
	AuthTokenEnv string `yaml:"auth_token_env"`
}

// TimeoutsConfig bounds each phase's agent call, as duration strings.
type TimeoutsConfig struct {
	Planner     string `yaml:"planner"`
	Research    string `yaml:"research"`
	Positioning string `yaml:"positioning"`
	Draft       string `yaml:"draft"`
	Critic      string `yaml:"critic"`
	Image       string `yaml:"image"`
}

// Duration parses one duration string, falling back on empty or bad input.
func duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetPlanner returns the planner timeout.
func (t TimeoutsConfig) GetPlanner() time.Duration { return duration(t.Planner, 0) }

// GetResearch returns the research timeout.
func (t TimeoutsConfig) GetResearch() time.Duration { return duration(t.Research, 0) }

// GetPositioning returns the positioning timeout.
func (t TimeoutsConfig) GetPositioning() time.Duration { return duration(t.Positioning, 0) }

// GetDraft returns the draft timeout.
func (t TimeoutsConfig) GetDraft() time.Duration { return duration(t.Draft, 0) }

// GetCritic returns the critic timeout.
func (t TimeoutsConfig) GetCritic() time.Duration { return duration(t.Critic, 0) }

// GetImage returns the image timeout.
func (t TimeoutsConfig) GetImage() time.Duration { return duration(t.Image, 0) }

// ToolsConfig configures tool availability.
type ToolsConfig struct {
	// Allowlist holds glob patterns of tool names sessions may use
	// (empty = allow all).
	Allowlist []string `yaml:"allowlist"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Orchestrator: OrchestratorConfig{
			Mode: "pipeline",
		},
		Model: ModelConfig{
			Temperature: 0.7,
		},
		Store: StoreConfig{
			Dir: defaultStoreDir(),
		},
		Search: SearchConfig{
			APIKeyEnv: "INKWELL_SEARCH_API_KEY",
		},
		Image: ImageConfig{
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "runs"
	}
	return filepath.Join(home, ".local", "share", "inkwell", "runs")
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Orchestrator.Mode {
	case "pipeline", "single-agent", "supervisor":
	default:
		return fmt.Errorf("orchestrator.mode must be pipeline, single-agent, or supervisor")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.NATS.URL == "" && c.Store.Dir == "" {
		return fmt.Errorf("store.dir is required without nats.url")
	}
	return nil
}

// BuildRegistry materializes the capability registry: defaults first, then
// the config's endpoint and capability overrides.
func (c *Config) BuildRegistry() (*model.Registry, error) {
	registry := model.NewDefaultRegistry()

	for name, endpoint := range c.Model.Endpoints {
		endpoint := endpoint
		registry.SetEndpoint(name, &endpoint)
	}
	for name, capability := range c.Model.Capabilities {
		capability := capability
		cap := model.Capability(name)
		if !cap.IsValid() {
			return nil, fmt.Errorf("model.capabilities[%s]: unknown capability", name)
		}
		registry.SetCapability(cap, &capability)
	}
	return registry, nil
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
