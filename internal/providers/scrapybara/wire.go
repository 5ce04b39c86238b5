package scrapybara

import (
	"strings"

	"github.com/bytedance/sonic"
)

// Instance types understood by the provider.
const (
	instanceBrowser = "browser"
	instanceUbuntu  = "ubuntu"
)

// Instance statuses.
const (
	statusDeploying  = "deploying"
	statusRunning    = "running"
	statusPaused     = "paused"
	statusTerminated = "terminated"
	statusError      = "error"
)

type startRequest struct {
	InstanceType string  `json:"instance_type"`
	TimeoutHours float64 `json:"timeout_hours,omitempty"`
}

// InstanceInfo is the provider's view of an instance.
type InstanceInfo struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	InstanceType string `json:"instance_type"`
	LaunchTime   string `json:"launch_time,omitempty"`
}

// computerRequest is the body of POST /instance/{id}/computer. Only the
// fields relevant to Action are set.
type computerRequest struct {
	Action      string   `json:"action"`
	Coordinates []int    `json:"coordinates,omitempty"`
	Button      string   `json:"button,omitempty"`
	NumClicks   int      `json:"num_clicks,omitempty"`
	Path        [][]int  `json:"path,omitempty"`
	DeltaX      *int     `json:"delta_x,omitempty"`
	DeltaY      *int     `json:"delta_y,omitempty"`
	Keys        []string `json:"keys,omitempty"`
	Text        string   `json:"text,omitempty"`
	Duration    float64  `json:"duration,omitempty"`
	Screenshot  *bool    `json:"screenshot,omitempty"`
}

type computerResponse struct {
	Output      string `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
	Base64Image string `json:"base64_image,omitempty"`
}

type browserStartResponse struct {
	CDPURL string `json:"cdp_url"`
}

type gotoRequest struct {
	URL string `json:"url"`
}

type currentURLResponse struct {
	CurrentURL string `json:"current_url"`
}

// parseStreamURL accepts {"stream_url": "..."}, a JSON string, or a bare
// URL body.
func parseStreamURL(body []byte) string {
	var structured struct {
		StreamURL string `json:"stream_url"`
	}
	if err := sonic.Unmarshal(body, &structured); err == nil && structured.StreamURL != "" {
		return strings.TrimSpace(structured.StreamURL)
	}

	var raw string
	if err := sonic.Unmarshal(body, &raw); err == nil {
		return strings.TrimSpace(raw)
	}

	text := strings.TrimSpace(string(body))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return ""
	}
	return text
}
