package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/tracing"
)

// Config configures a Client.
type Config struct {
	// Name labels the breaker and log lines.
	Name    string
	BaseURL string
	Timeout time.Duration
	// Retries is how many times an idempotent request is retried on
	// connection errors and 5xx responses.
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RequestsPerSecond limits outgoing calls; zero means unlimited.
	RequestsPerSecond float64
	UserAgent         string
	Headers           map[string]string
	AuthToken         string
}

// Client wraps resty with a retrying transport, rate limiting and circuit
// breakers. Unscoped requests share Breaker; each request scope gets its own.
type Client struct {
	Resty   *resty.Client
	Limiter *rate.Limiter
	Breaker *resilience.Breaker

	mu     sync.Mutex
	scoped map[string]*resilience.Breaker

	name    string
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether the failure is on the server side.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// New creates a client. logger and metrics may be nil.
func New(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "computer-agent/1.0"
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = max(cfg.Retries, 0)
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTransport(&retryablehttp.RoundTripper{Client: retryClient})
	for k, v := range cfg.Headers {
		restyClient.SetHeader(k, v)
	}
	if cfg.AuthToken != "" {
		restyClient.SetAuthToken(cfg.AuthToken)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(int(cfg.RequestsPerSecond), 1))
	}

	log := logger.With(zap.String("client", cfg.Name))

	return &Client{
		Resty:   restyClient,
		Limiter: limiter,
		Breaker: newBreaker(cfg.Name, log),
		scoped:  make(map[string]*resilience.Breaker),
		name:    cfg.Name,
		logger:  log,
		metrics: metrics,
	}
}

func newBreaker(name string, log *zap.Logger) *resilience.Breaker {
	return resilience.New(name, resilience.Settings{
		Failures:     5,
		FailureRatio: 0.6,
		MinRequests:  20,
		Window:       60 * time.Second,
		Cooldown:     30 * time.Second,
		Trials:       3,
		Failed:       countsAsFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Request describes one call made through Do.
type Request struct {
	// Op names the call for errors, logs and metrics.
	Op     string
	Method string
	Path   string
	Body   any
	// Result, when set, receives the decoded JSON response.
	Result any
	// Scope selects the breaker guarding the call, e.g. a remote instance
	// id. Failures in one scope never open another. Empty means the shared
	// client breaker.
	Scope string
	// Unguarded skips the breaker entirely. Cleanup calls use it so they
	// are always attempted.
	Unguarded bool
}

// Do sends req and returns the response. Non-2xx responses fail with
// *StatusError; an open breaker fails with resilience.ErrCircuitOpen.
// GET, HEAD and DELETE requests are retried by the transport.
func (c *Client) Do(ctx context.Context, req Request) (*resty.Response, error) {
	start := time.Now()
	resp, err := c.do(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordBackendCall(req.Op, status, time.Since(start))
	if err != nil {
		c.logger.Debug("backend call failed",
			zap.String("op", req.Op),
			zap.String("path", req.Path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, req Request) (*resty.Response, error) {
	if err := c.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", req.Op, err)
	}

	send := func() (*resty.Response, error) {
		if idempotent(req.Method) {
			ctx = withRetry(ctx)
		}
		headers := make(map[string]string, 2)
		tracing.Inject(ctx, headers)
		r := c.Resty.R().SetContext(ctx).SetHeaders(headers)
		if req.Body != nil {
			r.SetBody(req.Body)
		}
		if req.Result != nil {
			r.SetResult(req.Result)
		}

		resp, err := r.Execute(req.Method, req.Path)
		if err != nil {
			return resp, fmt.Errorf("%s: %w", req.Op, err)
		}
		if resp.IsError() {
			return resp, &StatusError{Op: req.Op, StatusCode: resp.StatusCode(), Body: truncate(resp.String(), 512)}
		}
		return resp, nil
	}
	if req.Unguarded {
		return send()
	}

	resp, err := resilience.Call(c.breaker(req.Scope), send)
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %s unavailable: %w", req.Op, c.name, err)
	}
	return resp, err
}

// BreakerState returns the state of the shared circuit breaker.
func (c *Client) BreakerState() resilience.State {
	return c.Breaker.State()
}

// ScopeState returns the state of the breaker for scope. Scopes never used
// report closed.
func (c *Client) ScopeState(scope string) resilience.State {
	return c.breaker(scope).State()
}

// Forget drops the breaker kept for scope.
func (c *Client) Forget(scope string) {
	c.mu.Lock()
	delete(c.scoped, scope)
	c.mu.Unlock()
}

func (c *Client) breaker(scope string) *resilience.Breaker {
	if scope == "" {
		return c.Breaker
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.scoped[scope]
	if !ok {
		b = newBreaker(c.name+"/"+scope, c.logger)
		c.scoped[scope] = b
	}
	return b
}

// countsAsFailure reports whether err should count against a breaker. Caller
// cancellation and non-temporary status errors do not.
func countsAsFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

type retryKey struct{}

func withRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, true)
}

// checkRetry limits retries to requests marked by withRetry. The transport
// error is passed through as the check error so callers still see it.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if retry, _ := ctx.Value(retryKey{}).(bool); !retry {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
