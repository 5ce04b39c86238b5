package scrapybara

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/httpclient"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
)

// Config configures the provider client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	Retries           int
	RequestsPerSecond float64
	// ReadyTimeout bounds how long Launch waits for an instance to run.
	ReadyTimeout time.Duration
	// PollInterval is the first readiness poll delay; later polls back off.
	PollInterval         time.Duration
	InstanceTimeoutHours float64
}

// ErrInstanceFailed is returned when an instance stops before becoming ready.
var ErrInstanceFailed = errors.New("instance failed to start")

// Client talks to the Scrapybara REST API.
type Client struct {
	http   *httpclient.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a provider client. metrics may be nil.
func NewClient(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["x-api-key"] = cfg.APIKey
	}
	return &Client{
		http: httpclient.New(httpclient.Config{
			Name:              "scrapybara",
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			Retries:           cfg.Retries,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Headers:           headers,
		}, logger, metrics),
		cfg:    cfg,
		logger: logger,
	}
}

// Start requests a new instance of the given type.
func (c *Client) Start(ctx context.Context, instanceType string) (*InstanceInfo, error) {
	var info InstanceInfo
	_, err := c.http.Do(ctx, httpclient.Request{
		Op:     "start_instance",
		Method: http.MethodPost,
		Path:   "/start",
		Body:   startRequest{InstanceType: instanceType, TimeoutHours: c.cfg.InstanceTimeoutHours},
		Result: &info,
	})
	if err != nil {
		return nil, err
	}
	if info.ID == "" {
		return nil, errors.New("start_instance: provider returned no instance id")
	}
	return &info, nil
}

// Get fetches an instance's current state.
func (c *Client) Get(ctx context.Context, instanceID string) (*InstanceInfo, error) {
	var info InstanceInfo
	_, err := c.http.Do(ctx, httpclient.Request{
		Op:     "get_instance",
		Method: http.MethodGet,
		Path:   instancePath(instanceID, ""),
		Scope:  instanceID,
		Result: &info,
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// WaitReady polls until the instance is running, failing fast when it ends
// up terminated or in error.
func (c *Client) WaitReady(ctx context.Context, info *InstanceInfo) error {
	if info.Status == statusRunning {
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.PollInterval
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = c.cfg.ReadyTimeout

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		current, err := c.Get(ctx, info.ID)
		if err != nil {
			return err
		}
		switch current.Status {
		case statusRunning:
			*info = *current
			return nil
		case statusTerminated, statusError:
			return backoff.Permanent(fmt.Errorf("%w: %s is %s", ErrInstanceFailed, info.ID, current.Status))
		default:
			return fmt.Errorf("instance %s is %s", info.ID, current.Status)
		}
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("wait for instance %s: %w", info.ID, err)
	}

	c.logger.Debug("instance ready", zap.String("instance_id", info.ID), zap.Int("polls", attempts))
	return nil
}

// Act runs one computer action and returns the provider's reply.
func (c *Client) Act(ctx context.Context, instanceID string, req computerRequest) (*computerResponse, error) {
	var out computerResponse
	_, err := c.http.Do(ctx, httpclient.Request{
		Op:     "computer_" + req.Action,
		Method: http.MethodPost,
		Path:   instancePath(instanceID, "/computer"),
		Scope:  instanceID,
		Body:   req,
		Result: &out,
	})
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return &out, fmt.Errorf("computer_%s: %s", req.Action, out.Error)
	}
	return &out, nil
}

// StreamURL returns the instance's live view URL.
func (c *Client) StreamURL(ctx context.Context, instanceID string) (string, error) {
	resp, err := c.http.Do(ctx, httpclient.Request{
		Op:     "stream_url",
		Method: http.MethodGet,
		Path:   instancePath(instanceID, "/stream_url"),
		Scope:  instanceID,
	})
	if err != nil {
		return "", err
	}
	return parseStreamURL(resp.Body()), nil
}

// StartBrowser launches the browser inside a browser instance.
func (c *Client) StartBrowser(ctx context.Context, instanceID string) (string, error) {
	var out browserStartResponse
	_, err := c.http.Do(ctx, httpclient.Request{
		Op:     "browser_start",
		Method: http.MethodPost,
		Path:   instancePath(instanceID, "/browser/start"),
		Scope:  instanceID,
		Result: &out,
	})
	return out.CDPURL, err
}

// Navigate drives the instance browser: goto with a URL, back or forward.
func (c *Client) Navigate(ctx context.Context, instanceID, verb, target string) error {
	req := httpclient.Request{
		Op:     "browser_" + verb,
		Method: http.MethodPost,
		Path:   instancePath(instanceID, "/browser/"+verb),
		Scope:  instanceID,
	}
	if target != "" {
		req.Body = gotoRequest{URL: target}
	}
	_, err := c.http.Do(ctx, req)
	return err
}

// CurrentURL returns the URL of the instance browser's active page.
func (c *Client) CurrentURL(ctx context.Context, instanceID string) (string, error) {
	var out currentURLResponse
	_, err := c.http.Do(ctx, httpclient.Request{
		Op:     "browser_current_url",
		Method: http.MethodGet,
		Path:   instancePath(instanceID, "/browser/current_url"),
		Scope:  instanceID,
		Result: &out,
	})
	return out.CurrentURL, err
}

// Stop terminates an instance. It is attempted even when the instance's
// breaker is open, and the breaker is dropped afterwards.
func (c *Client) Stop(ctx context.Context, instanceID string) error {
	defer c.http.Forget(instanceID)
	_, err := c.http.Do(ctx, httpclient.Request{
		Op:        "stop_instance",
		Method:    http.MethodPost,
		Path:      instancePath(instanceID, "/stop"),
		Scope:     instanceID,
		Unguarded: true,
	})
	return err
}

func instancePath(instanceID, suffix string) string {
	return "/instance/" + url.PathEscape(instanceID) + suffix
}
