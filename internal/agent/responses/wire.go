package responses

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
)

type createRequest struct {
	Model      string      `json:"model"`
	Input      []inputItem `json:"input"`
	Tools      []tool      `json:"tools"`
	Truncation string      `json:"truncation,omitempty"`
	Reasoning  *reasoning  `json:"reasoning,omitempty"`
}

type reasoning struct {
	Summary string `json:"summary,omitempty"`
}

type tool struct {
	Type          string `json:"type"`
	DisplayWidth  int    `json:"display_width"`
	DisplayHeight int    `json:"display_height"`
	Environment   string `json:"environment"`
}

// inputItem is one element of the request input. Fields are a union over
// the item types the agent exchanges.
type inputItem struct {
	Type    string `json:"type,omitempty"`
	ID      string `json:"id,omitempty"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	CallID              string                   `json:"call_id,omitempty"`
	Action              map[string]any           `json:"action,omitempty"`
	PendingSafetyChecks []transcript.SafetyCheck `json:"pending_safety_checks,omitempty"`
	Status              string                   `json:"status,omitempty"`

	Output                   *callOutput              `json:"output,omitempty"`
	AcknowledgedSafetyChecks []transcript.SafetyCheck `json:"acknowledged_safety_checks,omitempty"`

	Summary []summaryText `json:"summary,omitempty"`
}

type callOutput struct {
	Type       string `json:"type"`
	ImageURL   string `json:"image_url"`
	CurrentURL string `json:"current_url,omitempty"`
}

type summaryText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type createResponse struct {
	ID     string       `json:"id"`
	Output []outputItem `json:"output"`
}

type outputItem struct {
	Type    string        `json:"type"`
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`

	CallID              string                   `json:"call_id"`
	Action              map[string]any           `json:"action"`
	PendingSafetyChecks []transcript.SafetyCheck `json:"pending_safety_checks"`

	Summary []summaryText `json:"summary"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func environment(kind computer.Kind) string {
	if kind == computer.Browser {
		return "browser"
	}
	return "linux"
}

// toInput converts stored transcript items into request input.
func toInput(items []transcript.Item) []inputItem {
	out := make([]inputItem, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case transcript.Message:
			out = append(out, inputItem{Type: "message", Role: string(it.Role), Content: it.Content})
		case transcript.ComputerCall:
			out = append(out, inputItem{
				Type:                "computer_call",
				ID:                  it.ID,
				CallID:              it.CallID,
				Action:              it.Action,
				PendingSafetyChecks: it.PendingSafetyChecks,
				Status:              "completed",
			})
		case transcript.ComputerCallOutput:
			out = append(out, inputItem{
				Type:   "computer_call_output",
				CallID: it.CallID,
				Output: &callOutput{
					Type:       "input_image",
					ImageURL:   dataURL(it.Screenshot),
					CurrentURL: it.CurrentURL,
				},
				AcknowledgedSafetyChecks: it.AcknowledgedSafetyChecks,
			})
		case transcript.Reasoning:
			summary := make([]summaryText, 0, len(it.Summary))
			for _, s := range it.Summary {
				summary = append(summary, summaryText{Type: "summary_text", Text: s})
			}
			out = append(out, inputItem{Type: "reasoning", ID: it.ID, Summary: summary})
		}
	}
	return out
}

// toItem converts a model output item. ok is false for item types the
// transcript does not keep.
func toItem(o outputItem) (transcript.Item, bool) {
	switch o.Type {
	case "message":
		var text []string
		for _, part := range o.Content {
			if part.Text != "" {
				text = append(text, part.Text)
			}
		}
		role := transcript.Role(o.Role)
		if role == "" {
			role = transcript.Assistant
		}
		return transcript.Item{ID: o.ID, Type: transcript.Message, Role: role, Content: strings.Join(text, "\n")}, true
	case "computer_call":
		return transcript.Item{
			ID:                  o.ID,
			Type:                transcript.ComputerCall,
			CallID:              o.CallID,
			Action:              o.Action,
			PendingSafetyChecks: o.PendingSafetyChecks,
		}, true
	case "reasoning":
		summary := make([]string, 0, len(o.Summary))
		for _, s := range o.Summary {
			summary = append(summary, s.Text)
		}
		return transcript.Item{ID: o.ID, Type: transcript.Reasoning, Summary: summary}, true
	default:
		return transcript.Item{}, false
	}
}

// dataURL wraps a base64 screenshot, sniffing its image type.
func dataURL(b64 string) string {
	if b64 == "" {
		return ""
	}
	mime := "image/png"
	if raw, err := base64.StdEncoding.DecodeString(b64); err == nil {
		if detected := mimetype.Detect(raw); strings.HasPrefix(detected.String(), "image/") {
			mime = detected.String()
		}
	}
	return "data:" + mime + ";base64," + b64
}
