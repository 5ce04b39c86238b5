package computer

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"

	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// Action is one typed operation on a remote computer. Adapters switch on the
// concrete type.
type Action interface {
	Name() string
}

// Point is a screen coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Click struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Button string `json:"button,omitempty"`
}

type DoubleClick struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Type struct {
	Text string `json:"text"`
}

type Scroll struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	ScrollX int `json:"scroll_x"`
	ScrollY int `json:"scroll_y"`
}

type Move struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Keypress struct {
	Keys []string `json:"keys"`
}

type Drag struct {
	Path []Point `json:"path"`
}

// Wait pauses for Ms milliseconds; zero means the adapter default.
type Wait struct {
	Ms int `json:"ms,omitempty"`
}

// TakeScreenshot is a no-op action; the caller captures the screen afterwards.
type TakeScreenshot struct{}

type Goto struct {
	URL string `json:"url"`
}

type Back struct{}

type Forward struct{}

func (Click) Name() string          { return "click" }
func (DoubleClick) Name() string    { return "double_click" }
func (Type) Name() string           { return "type" }
func (Scroll) Name() string         { return "scroll" }
func (Move) Name() string           { return "move" }
func (Keypress) Name() string       { return "keypress" }
func (Drag) Name() string           { return "drag" }
func (Wait) Name() string           { return "wait" }
func (TakeScreenshot) Name() string { return "screenshot" }
func (Goto) Name() string           { return "goto" }
func (Back) Name() string           { return "back" }
func (Forward) Name() string        { return "forward" }

func (a Type) Validate() error {
	if a.Text == "" {
		return errors.New("text is required")
	}
	return nil
}

func (a Keypress) Validate() error {
	if len(a.Keys) == 0 {
		return errors.New("keys is required")
	}
	return nil
}

func (a Drag) Validate() error {
	if len(a.Path) < 2 {
		return errors.New("path needs at least two points")
	}
	return nil
}

func (a Wait) Validate() error {
	if a.Ms < 0 {
		return errors.New("ms must not be negative")
	}
	return nil
}

func (a Goto) Validate() error {
	if a.URL == "" {
		return errors.New("url is required")
	}
	return nil
}

var (
	desktopActions = []string{
		"click", "double_click", "type", "scroll", "move",
		"keypress", "drag", "wait", "screenshot",
	}
	browserActions = append(slices.Clone(desktopActions), "goto", "back", "forward")
)

// Capabilities returns the action names supported by kind, in a stable order.
func Capabilities(kind Kind) []string {
	switch kind {
	case Browser:
		return slices.Clone(browserActions)
	case Desktop:
		return slices.Clone(desktopActions)
	default:
		return nil
	}
}

// Supports reports whether kind accepts the named action.
func Supports(kind Kind, name string) bool {
	switch kind {
	case Browser:
		return slices.Contains(browserActions, name)
	case Desktop:
		return slices.Contains(desktopActions, name)
	default:
		return false
	}
}

type decoderFunc func(params map[string]any) (Action, error)

var decoders = map[string]decoderFunc{
	"click":        decodeInto[Click],
	"double_click": decodeInto[DoubleClick],
	"type":         decodeInto[Type],
	"scroll":       decodeInto[Scroll],
	"move":         decodeInto[Move],
	"keypress":     decodeInto[Keypress],
	"drag":         decodeInto[Drag],
	"wait":         decodeInto[Wait],
	"screenshot":   decodeInto[TakeScreenshot],
	"goto":         decodeInto[Goto],
	"back":         decodeInto[Back],
	"forward":      decodeInto[Forward],
}

// DecodeAction builds the typed action for name from a loose parameter bag.
// A "type" key in params is ignored. Unknown names fail with
// failure.ErrUnknownAction; bad or unexpected parameters with
// failure.ErrInvalidRequest.
func DecodeAction(name string, params map[string]any) (Action, error) {
	decode, ok := decoders[name]
	if !ok {
		return nil, failure.Newf(failure.ErrUnknownAction, "decode action", "Unknown action: %s", name)
	}

	clean := make(map[string]any, len(params))
	for k, v := range params {
		if k != "type" {
			clean[k] = v
		}
	}

	action, err := decode(clean)
	if err != nil {
		return nil, &failure.Error{
			Kind:    failure.ErrInvalidRequest,
			Op:      "decode action",
			Message: fmt.Sprintf("Invalid parameters for %s", name),
			Err:     err,
		}
	}
	return action, nil
}

func decodeInto[T Action](params map[string]any) (Action, error) {
	var action T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &action,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(params); err != nil {
		return nil, err
	}
	if v, ok := any(action).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return action, nil
}
