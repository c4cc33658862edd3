package scry

import (
	"encoding/json"
	"fmt"
)

// Mode selects the agent's answering pipeline.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeSQLOnly Mode = "sql_only"
)

// Intent forces a specific answering intent server-side.
type Intent string

// IntentResearch forces the expensive multi-iteration research pipeline.
const IntentResearch Intent = "comprehensive_report"

// EntityRef is a pre-resolved entity reference: the term the user typed and
// the canonical slug it resolved to.
type EntityRef struct {
	Term string `json:"term"`
	Slug string `json:"slug"`
}

// ImageAttachment is a user-supplied image sent with the question.
// Data is base64-encoded.
type ImageAttachment struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// Request describes one exchange with the agent. An empty SessionID asks the
// server to create a new session. Resume reattaches to a stream that is
// still running server-side; resumed requests carry no question.
type Request struct {
	Question          string
	Mode              Mode
	Timezone          string
	SessionID         string
	Resume            bool
	SuggestionContext json.RawMessage
	Entities          []EntityRef
	ForceIntent       Intent
	Images            []ImageAttachment
}

// Validate checks universal constraints on Request. Transport
// implementations may apply additional validation.
func (r Request) Validate() error {
	if !r.Resume && r.Question == "" {
		return fmt.Errorf("question is required: %w", ErrValidation)
	}
	if r.Resume && r.SessionID == "" {
		return fmt.Errorf("resume requires a session ID: %w", ErrValidation)
	}
	switch r.Mode {
	case "", ModeAuto, ModeSQLOnly:
	default:
		return fmt.Errorf("unknown mode %q: %w", r.Mode, ErrValidation)
	}
	if r.ForceIntent != "" && r.ForceIntent != IntentResearch {
		return fmt.Errorf("unknown intent %q: %w", r.ForceIntent, ErrValidation)
	}
	for i, img := range r.Images {
		if img.Data == "" || img.MimeType == "" {
			return fmt.Errorf("image %d missing data or mime type: %w", i, ErrValidation)
		}
	}
	return nil
}

// Draft is the original input handed back to the caller when a stopped
// exchange produced no content, so it can be restored instead of lost.
type Draft struct {
	Question string
	Entities []EntityRef
	Images   []ImageAttachment
}
