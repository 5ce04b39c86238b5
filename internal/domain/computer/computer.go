package computer

import (
	"context"
	"strings"

	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// Kind is the flavour of remote computer behind a session.
type Kind string

const (
	Browser Kind = "browser"
	Desktop Kind = "desktop"
)

// aliases maps accepted request names to kinds. The scrapybara-* names are
// what older clients send.
var aliases = map[string]Kind{
	"browser":            Browser,
	"desktop":            Desktop,
	"scrapybara-browser": Browser,
	"scrapybara-ubuntu":  Desktop,
	"ubuntu":             Desktop,
}

// ParseKind resolves a requested computer type. Unknown names fail with
// failure.ErrUnsupportedKind.
func ParseKind(name string) (Kind, error) {
	if k, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return "", failure.Newf(failure.ErrUnsupportedKind, "parse kind",
		"Unknown computer type: %s. Only browser and desktop are supported.", name)
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	return k == Browser || k == Desktop
}

func (k Kind) String() string { return string(k) }

// Computer is a live handle on a remote machine. A handle is owned by exactly
// one session and must not be used after Release.
type Computer interface {
	Kind() Kind
	// Screenshot returns the current screen as a base64-encoded image.
	Screenshot(ctx context.Context) (string, error)
	// Do performs a single typed action.
	Do(ctx context.Context, action Action) error
	// Release tears the remote machine down.
	Release(ctx context.Context) error
}

// Launcher acquires new computer handles from a provider.
type Launcher interface {
	Launch(ctx context.Context, kind Kind) (Computer, error)
}

// Locator is implemented by browser handles that can report the page URL.
type Locator interface {
	CurrentURL(ctx context.Context) (string, error)
}

// Location returns c's current URL when c is a Locator and the lookup
// succeeds.
func Location(ctx context.Context, c Computer) (string, bool) {
	l, ok := c.(Locator)
	if !ok {
		return "", false
	}
	u, err := l.CurrentURL(ctx)
	if err != nil || u == "" {
		return "", false
	}
	return u, true
}

// StreamURLProvider reports a live-view URL for a remote machine.
type StreamURLProvider interface {
	StreamURL(ctx context.Context) (string, error)
}

// InstanceHolder exposes the provider instance behind a handle.
type InstanceHolder interface {
	Instance() StreamURLProvider
}

// ClientHolder exposes the provider client bound to a handle.
type ClientHolder interface {
	Client() StreamURLProvider
}

// BrowserHolder exposes an embedded browser object.
type BrowserHolder interface {
	Browser() StreamURLProvider
}

// Attribute is a named, simple value a handle publishes for diagnostics.
type Attribute struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

// AttributeLister is implemented by handles that can enumerate attributes.
type AttributeLister interface {
	Attributes() []Attribute
}
