package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapability(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Capability
	}{
		{name: "planning", input: "planning", want: CapabilityPlanning},
		{name: "research", input: "research", want: CapabilityResearch},
		{name: "writing", input: "writing", want: CapabilityWriting},
		{name: "critique", input: "critique", want: CapabilityCritique},
		{name: "unknown returns empty", input: "juggling", want: ""},
		{name: "empty returns empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCapability(tt.input))
		})
	}
}

func TestCapabilityForPhase(t *testing.T) {
	assert.Equal(t, CapabilityPlanning, CapabilityForPhase("planner"))
	assert.Equal(t, CapabilityCritique, CapabilityForPhase("critic"))
	// Unknown phases fall back to writing.
	assert.Equal(t, CapabilityWriting, CapabilityForPhase("unknown-phase"))
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityWriting: {Preferred: []string{"model-a", "model-b"}},
		},
		map[string]*EndpointConfig{
			"model-a": {Provider: "openai", Model: "gpt-x"},
		},
	)
	r.SetDefault("fallback-model")

	assert.Equal(t, "model-a", r.Resolve(CapabilityWriting))
	assert.Equal(t, "fallback-model", r.Resolve(CapabilityVision))
}

func TestRegistry_GetFallbackChain(t *testing.T) {
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityCritique: {
				Preferred: []string{"a", "b"},
				Fallback:  []string{"c"},
			},
		},
		nil,
	)
	r.SetDefault("d")

	assert.Equal(t, []string{"a", "b", "c"}, r.GetFallbackChain(CapabilityCritique))
	assert.Equal(t, []string{"d"}, r.GetFallbackChain(CapabilityFast))
}

func TestRegistry_EndpointHealth(t *testing.T) {
	r := NewDefaultRegistry()
	r.SetHealthConfig(HealthConfig{FailureThreshold: 2, RecoveryTimeout: time.Hour})

	require.True(t, r.IsEndpointAvailable("claude-sonnet"))

	r.MarkEndpointFailure("claude-sonnet")
	assert.True(t, r.IsEndpointAvailable("claude-sonnet"), "one failure should not open the circuit")

	r.MarkEndpointFailure("claude-sonnet")
	assert.False(t, r.IsEndpointAvailable("claude-sonnet"), "threshold reached, circuit open")

	health := r.GetEndpointHealth("claude-sonnet")
	require.NotNil(t, health)
	assert.True(t, health.CircuitOpen)
	assert.Equal(t, 2, health.FailureCount)

	r.MarkEndpointSuccess("claude-sonnet")
	assert.True(t, r.IsEndpointAvailable("claude-sonnet"))
}

func TestRegistry_GetAvailableFallbackChain(t *testing.T) {
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilityWriting: {Preferred: []string{"a", "b"}},
		},
		map[string]*EndpointConfig{
			"a": {Provider: "openai", Model: "a"},
			"b": {Provider: "openai", Model: "b"},
		},
	)
	r.SetHealthConfig(HealthConfig{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	r.MarkEndpointFailure("a")
	assert.Equal(t, []string{"b"}, r.GetAvailableFallbackChain(CapabilityWriting))

	// When everything is down the full chain is returned anyway.
	r.MarkEndpointFailure("b")
	assert.Equal(t, []string{"a", "b"}, r.GetAvailableFallbackChain(CapabilityWriting))
}

func TestRegistry_JSONRoundTrip(t *testing.T) {
	r := NewDefaultRegistry()

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded Registry
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, r.Resolve(CapabilityWriting), decoded.Resolve(CapabilityWriting))
	assert.ElementsMatch(t, r.ListEndpoints(), decoded.ListEndpoints())
}
