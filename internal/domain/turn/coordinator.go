// Package turn runs one agent turn against a session: record the user's
// input, let the agent loop drive the computer, record what it produced.
package turn

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/agent"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// Result is the outcome of a successful turn.
type Result struct {
	// Items are the agent's items for this turn, in the order produced.
	Items      []transcript.Item
	Screenshot string
	StreamURL  string
	CurrentURL string
}

// Coordinator serializes agent turns per session.
type Coordinator struct {
	registry *session.Registry
	loop     agent.Loop
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// New creates a coordinator. A positive timeout bounds each agent run.
func New(registry *session.Registry, loop agent.Loop, timeout time.Duration, logger *zap.Logger, metrics *monitoring.Metrics) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		registry: registry,
		loop:     loop,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// RunTurn appends input as a user message, runs the agent once over the
// whole transcript and appends its items. When the agent fails the user
// message stays and nothing else is appended.
func (c *Coordinator) RunTurn(ctx context.Context, sessionID, input string) (*Result, error) {
	const op = "run turn"

	s, err := c.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input) == "" {
		return nil, failure.New(failure.ErrInvalidRequest, op, "Input is required")
	}

	log := c.logger.With(zap.String("session_id", sessionID))
	start := time.Now()
	result := &Result{StreamURL: s.StreamURL}

	err = s.Use(op, func(h session.Handle) error {
		h.Append(transcript.UserMessage(input))

		items, err := c.run(ctx, h.Computer(), h.Transcript(), s.AgentOptions())
		if err != nil {
			log.Error("agent turn failed", zap.Error(err))
			return failure.Wrap(failure.ErrAgentExecution, op, err)
		}
		result.Items = h.Append(items...)

		shot, err := h.Screenshot(ctx)
		if err != nil {
			return failure.Wrap(failure.ErrBackendInvocation, op, err)
		}
		result.Screenshot = shot

		if url, ok := h.CurrentURL(ctx); ok {
			result.CurrentURL = url
		} else if s.Kind == computer.Browser {
			log.Debug("current url unavailable")
		}
		return nil
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordTurn(status, time.Since(start))
	if err != nil {
		return nil, err
	}

	log.Info("turn completed",
		zap.Int("items", len(result.Items)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (c *Coordinator) run(ctx context.Context, comp computer.Computer, items []transcript.Item, opts agent.Options) ([]transcript.Item, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.loop.Run(ctx, comp, items, opts)
}
