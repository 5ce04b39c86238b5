package scrapybara

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
)

// scrollStep converts pixel scroll amounts into wheel clicks.
const scrollStep = 20

// Computer is a live Scrapybara instance.
type Computer struct {
	client *Client
	kind   computer.Kind
	info   InstanceInfo
	cdpURL string

	releaseOnce sync.Once
	releaseErr  error
}

var (
	_ computer.Computer        = (*Computer)(nil)
	_ computer.Locator         = (*Computer)(nil)
	_ computer.InstanceHolder  = (*Computer)(nil)
	_ computer.AttributeLister = (*Computer)(nil)
)

// Kind reports whether this is a browser or desktop instance.
func (c *Computer) Kind() computer.Kind { return c.kind }

// ID returns the provider instance id.
func (c *Computer) ID() string { return c.info.ID }

// Screenshot captures the screen as base64 PNG.
func (c *Computer) Screenshot(ctx context.Context) (string, error) {
	out, err := c.client.Act(ctx, c.info.ID, computerRequest{Action: "take_screenshot"})
	if err != nil {
		return "", err
	}
	if out.Base64Image == "" {
		return "", errors.New("take_screenshot: provider returned no image")
	}
	return out.Base64Image, nil
}

// Do performs one typed action.
func (c *Computer) Do(ctx context.Context, action computer.Action) error {
	switch a := action.(type) {
	case computer.Goto:
		return c.browserOnly(ctx, a, "goto", a.URL)
	case computer.Back:
		return c.browserOnly(ctx, a, "back", "")
	case computer.Forward:
		return c.browserOnly(ctx, a, "forward", "")
	case computer.TakeScreenshot:
		return nil
	}

	req, err := toComputerRequest(action)
	if err != nil {
		return err
	}
	_, err = c.client.Act(ctx, c.info.ID, req)
	return err
}

func (c *Computer) browserOnly(ctx context.Context, action computer.Action, verb, target string) error {
	if c.kind != computer.Browser {
		return fmt.Errorf("%s is only available on browser instances", action.Name())
	}
	return c.client.Navigate(ctx, c.info.ID, verb, target)
}

// toComputerRequest translates desktop actions into the provider's action
// vocabulary.
func toComputerRequest(action computer.Action) (computerRequest, error) {
	noShot := false
	switch a := action.(type) {
	case computer.Click:
		button := a.Button
		if button == "" {
			button = "left"
		}
		return computerRequest{
			Action:      "click_mouse",
			Coordinates: []int{a.X, a.Y},
			Button:      button,
			NumClicks:   1,
			Screenshot:  &noShot,
		}, nil
	case computer.DoubleClick:
		return computerRequest{
			Action:      "click_mouse",
			Coordinates: []int{a.X, a.Y},
			Button:      "left",
			NumClicks:   2,
			Screenshot:  &noShot,
		}, nil
	case computer.Move:
		return computerRequest{
			Action:      "move_mouse",
			Coordinates: []int{a.X, a.Y},
			Screenshot:  &noShot,
		}, nil
	case computer.Drag:
		path := make([][]int, 0, len(a.Path))
		for _, p := range a.Path {
			path = append(path, []int{p.X, p.Y})
		}
		return computerRequest{Action: "drag_mouse", Path: path, Screenshot: &noShot}, nil
	case computer.Scroll:
		dx, dy := wheelClicks(a.ScrollX), wheelClicks(a.ScrollY)
		return computerRequest{
			Action:      "scroll",
			Coordinates: []int{a.X, a.Y},
			DeltaX:      &dx,
			DeltaY:      &dy,
			Screenshot:  &noShot,
		}, nil
	case computer.Type:
		return computerRequest{Action: "type_text", Text: a.Text, Screenshot: &noShot}, nil
	case computer.Keypress:
		return computerRequest{Action: "press_key", Keys: mapKeys(a.Keys), Screenshot: &noShot}, nil
	case computer.Wait:
		ms := a.Ms
		if ms == 0 {
			ms = 1000
		}
		return computerRequest{Action: "wait", Duration: float64(ms) / 1000, Screenshot: &noShot}, nil
	default:
		return computerRequest{}, fmt.Errorf("unsupported action %q", action.Name())
	}
}

// Release stops the instance. Only the first call reaches the provider.
func (c *Computer) Release(ctx context.Context) error {
	c.releaseOnce.Do(func() {
		c.releaseErr = c.client.Stop(ctx, c.info.ID)
	})
	return c.releaseErr
}

// CurrentURL reports the active page of a browser instance.
func (c *Computer) CurrentURL(ctx context.Context) (string, error) {
	if c.kind != computer.Browser {
		return "", errors.New("desktop instances have no current url")
	}
	return c.client.CurrentURL(ctx, c.info.ID)
}

// Instance returns the stream URL source for this instance.
func (c *Computer) Instance() computer.StreamURLProvider {
	return instance{client: c.client, id: c.info.ID}
}

// Attributes lists simple facts about the instance.
func (c *Computer) Attributes() []computer.Attribute {
	attrs := []computer.Attribute{
		{Name: "instance_id", Type: "string", Value: c.info.ID},
		{Name: "instance_type", Type: "string", Value: c.info.InstanceType},
		{Name: "status", Type: "string", Value: c.info.Status},
	}
	if c.info.LaunchTime != "" {
		attrs = append(attrs, computer.Attribute{Name: "launch_time", Type: "string", Value: c.info.LaunchTime})
	}
	if c.cdpURL != "" {
		attrs = append(attrs, computer.Attribute{Name: "cdp_url", Type: "string", Value: c.cdpURL})
	}
	return attrs
}

type instance struct {
	client *Client
	id     string
}

func (i instance) StreamURL(ctx context.Context) (string, error) {
	return i.client.StreamURL(ctx, i.id)
}

// wheelClicks floors px/scrollStep. Any non-zero scroll moves at least one
// click in its direction.
func wheelClicks(px int) int {
	clicks := px / scrollStep
	if px%scrollStep != 0 && px < 0 {
		clicks--
	}
	if clicks == 0 && px > 0 {
		clicks = 1
	}
	return clicks
}
