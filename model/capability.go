// Package model provides capability-based model selection for workflow phases.
// Instead of hardcoding model names, phases specify capabilities (planning,
// research, writing) and the registry resolves them to available models with
// fallback chains.
package model

// Capability represents a semantic capability for model selection.
// Instead of specifying "claude-sonnet", callers specify "writing" or "planning".
type Capability string

const (
	// CapabilityPlanning is for request analysis and workflow planning.
	CapabilityPlanning Capability = "planning"

	// CapabilityResearch is for tool-driven fact gathering.
	CapabilityResearch Capability = "research"

	// CapabilityWriting is for drafting long-form content.
	CapabilityWriting Capability = "writing"

	// CapabilityCritique is for editorial review and draft improvement.
	CapabilityCritique Capability = "critique"

	// CapabilityVision is for image prompt generation.
	CapabilityVision Capability = "vision"

	// CapabilityFast is for quick responses, simple tasks.
	CapabilityFast Capability = "fast"
)

// PhaseCapabilities maps workflow phase names to their default capability.
// Used when no explicit capability is specified for a phase handler.
var PhaseCapabilities = map[string]Capability{
	"planner":     CapabilityPlanning,
	"research":    CapabilityResearch,
	"positioning": CapabilityPlanning,
	"draft":       CapabilityWriting,
	"critic":      CapabilityCritique,
	"image":       CapabilityVision,
}

// CapabilityForPhase returns the default capability for a workflow phase.
// Returns CapabilityWriting as fallback for unknown phases.
func CapabilityForPhase(phase string) Capability {
	if c, ok := PhaseCapabilities[phase]; ok {
		return c
	}
	return CapabilityWriting
}

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityPlanning, CapabilityResearch, CapabilityWriting,
		CapabilityCritique, CapabilityVision, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
