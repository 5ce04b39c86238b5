package http

import (
	"time"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
)

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Computer string `json:"computer"`
	Debug    bool   `json:"debug"`
	Show     bool   `json:"show"`
	StartURL string `json:"start_url"`
}

// CreateSessionResponse is returned for a new session.
type CreateSessionResponse struct {
	SessionID    string        `json:"session_id"`
	ComputerType computer.Kind `json:"computer_type"`
	Screenshot   string        `json:"screenshot"`
	StreamURL    string        `json:"stream_url,omitempty"`
	Message      string        `json:"message"`
}

// InteractRequest is the body of POST /sessions/:id/interact.
type InteractRequest struct {
	Input string `json:"input"`
}

// InteractResponse is returned after an agent turn.
type InteractResponse struct {
	Items      []transcript.Item `json:"items"`
	Screenshot string            `json:"screenshot"`
	StreamURL  string            `json:"stream_url,omitempty"`
	CurrentURL string            `json:"current_url,omitempty"`
}

// ActionResponse is returned after a direct action.
type ActionResponse struct {
	Message    string `json:"message"`
	Screenshot string `json:"screenshot"`
	StreamURL  string `json:"stream_url,omitempty"`
	CurrentURL string `json:"current_url,omitempty"`
}

// ScreenshotResponse is returned by GET /sessions/:id/screenshot.
type ScreenshotResponse struct {
	Screenshot string `json:"screenshot"`
	StreamURL  string `json:"stream_url,omitempty"`
}

// SessionEntry is one value of the GET /sessions map.
type SessionEntry struct {
	ComputerType computer.Kind `json:"computer_type"`
	CreatedAt    time.Time     `json:"created_at"`
	StreamURL    string        `json:"stream_url,omitempty"`
}

// ListSessionsResponse maps session ids to their summaries.
type ListSessionsResponse struct {
	Sessions map[string]SessionEntry `json:"sessions"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
