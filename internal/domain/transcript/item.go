// Package transcript holds the ordered conversation record of a session.
package transcript

import (
	"slices"

	"github.com/google/uuid"
)

// Type tags an Item variant.
type Type string

const (
	Message            Type = "message"
	ComputerCall       Type = "computer_call"
	ComputerCallOutput Type = "computer_call_output"
	Reasoning          Type = "reasoning"
)

// Role is the author of a message item.
type Role string

const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// SafetyCheck is a provider-raised warning attached to a computer call.
type SafetyCheck struct {
	ID      string `json:"id"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Item is one transcript entry. Which fields are set depends on Type:
// messages carry Role and Content, computer calls carry CallID and Action,
// call outputs carry CallID, Screenshot and CurrentURL, reasoning carries
// Summary.
type Item struct {
	ID      string `json:"id,omitempty"`
	Type    Type   `json:"type"`
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	CallID              string         `json:"call_id,omitempty"`
	Action              map[string]any `json:"action,omitempty"`
	PendingSafetyChecks []SafetyCheck  `json:"pending_safety_checks,omitempty"`

	Screenshot               string        `json:"screenshot,omitempty"`
	CurrentURL               string        `json:"current_url,omitempty"`
	AcknowledgedSafetyChecks []SafetyCheck `json:"acknowledged_safety_checks,omitempty"`

	Summary []string `json:"summary,omitempty"`
}

// UserMessage builds the item for a user instruction.
func UserMessage(text string) Item {
	return Item{Type: Message, Role: User, Content: text}
}

// AssistantMessage builds an assistant text item.
func AssistantMessage(text string) Item {
	return Item{Type: Message, Role: Assistant, Content: text}
}

// IsAssistantMessage reports whether it is assistant-authored text.
func (it Item) IsAssistantMessage() bool {
	return it.Type == Message && it.Role == Assistant
}

// Log is an append-only item sequence. It is not safe for concurrent use;
// the owning session serializes access.
type Log struct {
	items []Item
}

// Append adds items in order, assigning an ID to any item without one, and
// returns the stored copies.
func (l *Log) Append(items ...Item) []Item {
	start := len(l.items)
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		l.items = append(l.items, it)
	}
	return slices.Clone(l.items[start:])
}

// Items returns a copy of the full sequence.
func (l *Log) Items() []Item {
	return slices.Clone(l.items)
}

// Len returns the number of items.
func (l *Log) Len() int {
	return len(l.items)
}
