// Package runstore persists the per-run display projection: topic, status,
// transcript, and the four content panels observers render. The orchestration
// layer writes into it after each phase completes; it never reads it back as
// its source of truth.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/c360studio/inkwell/workflow"
)

// ErrNotFound is returned when no run exists for the requested id.
var ErrNotFound = errors.New("run not found")

// PanelStatus tracks a display panel's lifecycle.
type PanelStatus string

const (
	PanelStatusEmpty      PanelStatus = "empty"
	PanelStatusGenerating PanelStatus = "generating"
	PanelStatusReady      PanelStatus = "ready"
	PanelStatusError      PanelStatus = "error"
)

// ResearchPanel is the research display projection.
type ResearchPanel struct {
	Status  PanelStatus       `json:"status"`
	Sources []workflow.Source `json:"sources,omitempty"`
	Facts   []string          `json:"facts,omitempty"`
	Summary string            `json:"summary,omitempty"`
}

// PositioningPanel is the positioning display projection.
type PositioningPanel struct {
	Status     PanelStatus `json:"status"`
	Angle      string      `json:"angle,omitempty"`
	Audience   string      `json:"audience,omitempty"`
	PainPoints []string    `json:"pain_points,omitempty"`
	Tone       string      `json:"tone,omitempty"`
}

// DraftPanel is the draft display projection.
type DraftPanel struct {
	Status PanelStatus `json:"status"`
	Text   string      `json:"text,omitempty"`
}

// ImagePanel is the image display projection.
type ImagePanel struct {
	Status PanelStatus `json:"status"`
	URL    string      `json:"url,omitempty"`
	Prompt string      `json:"prompt,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// RunState is the durable display record for one run.
type RunState struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []workflow.Message `json:"messages,omitempty"`

	Research    ResearchPanel    `json:"research"`
	Positioning PositioningPanel `json:"positioning"`
	Draft       DraftPanel       `json:"draft"`
	Image       ImagePanel       `json:"image"`
}

// Store is durable key-value persistence for run display state.
type Store interface {
	// Create allocates a new run record with the given topic.
	Create(ctx context.Context, id, topic string) (*RunState, error)

	// Get returns the run record, or ErrNotFound.
	Get(ctx context.Context, id string) (*RunState, error)

	// Update applies mutate to the current record and persists the result.
	// Returns ErrNotFound if the run does not exist.
	Update(ctx context.Context, id string, mutate func(*RunState)) error

	// List returns all runs ordered most-recently-updated first.
	List(ctx context.Context) ([]*RunState, error)
}

// Project maps a workflow state snapshot onto the run record. Called by the
// orchestrator after every phase completion so a freshly attached observer
// can reconstruct progress.
func Project(run *RunState, st workflow.State) {
	run.Status = st.Phase.String()
	run.UpdatedAt = time.Now()
	run.Messages = append([]workflow.Message(nil), st.Messages...)

	if st.Plan != nil && run.Topic == "" {
		run.Topic = st.Plan.Topic
	}

	if st.Research != nil {
		run.Research = ResearchPanel{
			Status:  PanelStatusReady,
			Sources: append([]workflow.Source(nil), st.Research.Sources...),
			Facts:   append([]string(nil), st.Research.Facts...),
			Summary: st.Research.Summary,
		}
	}

	if st.Positioning != nil {
		run.Positioning = PositioningPanel{
			Status:     PanelStatusReady,
			Angle:      st.Positioning.Angle,
			Audience:   st.Positioning.Audience,
			PainPoints: append([]string(nil), st.Positioning.PainPoints...),
			Tone:       st.Positioning.Tone,
		}
	}

	if text := st.FinalDraft; text != "" {
		run.Draft = DraftPanel{Status: PanelStatusReady, Text: text}
	} else if st.Draft != "" {
		run.Draft = DraftPanel{Status: PanelStatusGenerating, Text: st.Draft}
	}

	switch st.ImageStatus {
	case workflow.ImageStatusReady:
		run.Image = ImagePanel{Status: PanelStatusReady, URL: st.ImageURL, Prompt: st.ImagePrompt}
	case workflow.ImageStatusGenerating:
		run.Image = ImagePanel{Status: PanelStatusGenerating, Prompt: st.ImagePrompt}
	case workflow.ImageStatusError:
		run.Image = ImagePanel{Status: PanelStatusError, Prompt: st.ImagePrompt, Error: "image generation failed"}
	case workflow.ImageStatusSkipped:
		run.Image = ImagePanel{Status: PanelStatusEmpty}
	}
}
