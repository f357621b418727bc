package workflow

import "fmt"

// PendingInputType tags the kind of human decision a checkpoint requests.
type PendingInputType string

const (
	// PendingQuestions asks the user to answer clarifying questions.
	PendingQuestions PendingInputType = "questions"

	// PendingFindings asks the user to select research findings.
	// Reserved: the current research handler never raises it.
	PendingFindings PendingInputType = "findings"

	// PendingImprovements asks the user to approve critique suggestions.
	PendingImprovements PendingInputType = "improvements"
)

// Question is a clarifying question raised by the planner.
type Question struct {
	// ID identifies the question for answer correlation.
	ID string `json:"id"`

	// Text is the question itself.
	Text string `json:"text"`

	// Suggested are optional suggested answers.
	Suggested []string `json:"suggested,omitempty"`
}

// Finding is a research finding offered for selection.
type Finding struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// Improvement is a critique suggestion offered for approval.
type Improvement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PendingInput is a checkpoint: the run is suspended until a matching
// UserResponse arrives. Exactly one of the payload groups is populated,
// according to Type.
type PendingInput struct {
	Type PendingInputType `json:"type"`

	// Questions payload.
	Questions []Question `json:"questions,omitempty"`

	// Findings payload.
	Findings []Finding `json:"findings,omitempty"`
	Summary  string    `json:"summary,omitempty"`

	// Improvements payload. Draft carries the current draft for context.
	Improvements []Improvement `json:"improvements,omitempty"`
	Draft        string        `json:"draft,omitempty"`
}

// Clone returns a deep copy of the pending input.
func (p PendingInput) Clone() PendingInput {
	out := p
	out.Questions = append([]Question(nil), p.Questions...)
	for i, q := range out.Questions {
		out.Questions[i].Suggested = append([]string(nil), q.Suggested...)
	}
	out.Findings = append([]Finding(nil), p.Findings...)
	out.Improvements = append([]Improvement(nil), p.Improvements...)
	return out
}

// UserResponse resolves a pending input. Type is mandatory: the response
// kind is never inferred from which payload fields happen to be set.
type UserResponse struct {
	Type PendingInputType `json:"type"`

	// Answers maps question id to answer text (questions responses).
	Answers map[string]string `json:"answers,omitempty"`

	// SelectedIDs lists chosen finding/improvement ids.
	SelectedIDs []string `json:"selected_ids,omitempty"`
}

// Validate checks the response shape against the pending input it resolves.
func (r UserResponse) Validate(pending *PendingInput) error {
	if pending == nil {
		return fmt.Errorf("no pending input to resolve")
	}
	if r.Type == "" {
		return fmt.Errorf("response type is required")
	}
	if r.Type != pending.Type {
		return fmt.Errorf("response type %q does not match pending input %q", r.Type, pending.Type)
	}
	switch r.Type {
	case PendingQuestions:
		if len(r.Answers) == 0 {
			return fmt.Errorf("questions response requires answers")
		}
	case PendingFindings, PendingImprovements:
		// An empty selection is a valid "keep nothing" choice.
	default:
		return fmt.Errorf("unknown response type %q", r.Type)
	}
	return nil
}
