package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/c360studio/inkwell/agent"
	"github.com/c360studio/inkwell/llm"
	"github.com/c360studio/inkwell/workflow"
	"github.com/c360studio/inkwell/workflow/handlers"
)

// notebook is the single-agent strategy's side-channel bookkeeping. The
// agent records its work through tools instead of a phase machine; GetState
// synthesizes a snapshot from whatever was recorded.
type notebook struct {
	mu sync.Mutex
	st workflow.State
}

func newNotebook(runID, userRequest string) *notebook {
	return &notebook{st: workflow.NewState(runID, userRequest)}
}

func (n *notebook) snapshot() workflow.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.st.Clone()
}

func (n *notebook) update(mutate func(*workflow.State)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	mutate(&n.st)
}

// notebookExecutor backs one recording tool with a decode-and-apply func.
type notebookExecutor struct {
	def   llm.ToolDefinition
	apply func(ctx context.Context, args json.RawMessage) (string, error)
}

func (e *notebookExecutor) Execute(ctx context.Context, call llm.ToolCall) (agent.ToolResult, error) {
	out, err := e.apply(ctx, call.Arguments)
	if err != nil {
		return agent.ToolResult{CallID: call.ID, Error: err.Error()}, nil
	}
	return agent.ToolResult{CallID: call.ID, Content: out}, nil
}

func (e *notebookExecutor) ListTools() []llm.ToolDefinition {
	return []llm.ToolDefinition{e.def}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func stringListProp(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

func objectSchema(required []string, props map[string]any) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

// notebookTools builds the recording toolset bound to one run's notebook.
func notebookTools(n *notebook, image handlers.ImageGenerator) map[string]agent.Executor {
	execs := make(map[string]agent.Executor)

	add := func(def llm.ToolDefinition, apply func(ctx context.Context, args json.RawMessage) (string, error)) {
		execs[def.Name] = &notebookExecutor{def: def, apply: apply}
	}

	add(llm.ToolDefinition{
		Name:        "save_research",
		Description: "Record research findings for the post.",
		Parameters: objectSchema(nil, map[string]any{
			"facts":  stringListProp("Verified facts"),
			"claims": stringListProp("Claims worth making"),
			"sources": map[string]any{
				"type": "array",
				"items": objectSchema([]string{"url"}, map[string]any{
					"title": stringProp("Source title"),
					"url":   stringProp("Source URL"),
				}),
			},
			"summary": stringProp("One-paragraph research summary"),
		}),
	}, func(_ context.Context, args json.RawMessage) (string, error) {
		var in workflow.Research
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("parse research: %w", err)
		}
		n.update(func(st *workflow.State) { st.Research = &in })
		return "research saved", nil
	})

	add(llm.ToolDefinition{
		Name:        "set_positioning",
		Description: "Record how the post is positioned.",
		Parameters: objectSchema([]string{"angle", "audience"}, map[string]any{
			"angle":       stringProp("The angle"),
			"audience":    stringProp("Who it is for"),
			"pain_points": stringListProp("Audience pain points"),
			"tone":        stringProp("Tone of voice"),
		}),
	}, func(_ context.Context, args json.RawMessage) (string, error) {
		var in workflow.Positioning
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("parse positioning: %w", err)
		}
		n.update(func(st *workflow.State) { st.Positioning = &in })
		return "positioning set", nil
	})

	add(llm.ToolDefinition{
		Name:        "write_draft",
		Description: "Record the current draft of the post.",
		Parameters: objectSchema([]string{"text"}, map[string]any{
			"text": stringProp("The full draft text"),
		}),
	}, func(_ context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.Text == "" {
			return "", fmt.Errorf("write_draft requires text")
		}
		n.update(func(st *workflow.State) {
			st.Draft = in.Text
			st.FinalDraft = ""
		})
		return "draft saved", nil
	})

	add(llm.ToolDefinition{
		Name:        "improve_draft",
		Description: "Record the improved, final version of the post.",
		Parameters: objectSchema([]string{"text"}, map[string]any{
			"text": stringProp("The improved post text"),
		}),
	}, func(_ context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.Text == "" {
			return "", fmt.Errorf("improve_draft requires text")
		}
		n.update(func(st *workflow.State) { st.FinalDraft = in.Text })
		return "final draft saved", nil
	})

	add(llm.ToolDefinition{
		Name:        "generate_image",
		Description: "Generate a header illustration for the post.",
		Parameters: objectSchema([]string{"prompt"}, map[string]any{
			"prompt": stringProp("Image generation prompt"),
		}),
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		var in struct {
			Prompt string `json:"prompt"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.Prompt == "" {
			return "", fmt.Errorf("generate_image requires prompt")
		}
		if image == nil {
			return "", fmt.Errorf("no image generator configured")
		}
		url, err := image.Generate(ctx, in.Prompt)
		if err != nil {
			n.update(func(st *workflow.State) {
				st.ImagePrompt = in.Prompt
				st.ImageStatus = workflow.ImageStatusError
			})
			return "", fmt.Errorf("generate image: %w", err)
		}
		n.update(func(st *workflow.State) {
			st.ImagePrompt = in.Prompt
			st.ImageURL = url
			st.ImageStatus = workflow.ImageStatusReady
		})
		return url, nil
	})

	return execs
}

func notebookToolDefinitions(execs map[string]agent.Executor) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(execs))
	for _, exec := range execs {
		defs = append(defs, exec.ListTools()...)
	}
	return defs
}
