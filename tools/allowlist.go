package tools

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/inkwell/llm"
)

// FilterAllowed returns the tool definitions whose names match at least one
// allowlist glob. An empty allowlist permits everything.
func FilterAllowed(defs []llm.ToolDefinition, allow []string) []llm.ToolDefinition {
	if len(allow) == 0 {
		return defs
	}

	var out []llm.ToolDefinition
	for _, def := range defs {
		for _, pattern := range allow {
			if ok, err := doublestar.Match(pattern, def.Name); err == nil && ok {
				out = append(out, def)
				break
			}
		}
	}
	return out
}
