// Package dispatch runs single, client-directed actions against a session's
// computer.
package dispatch

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// Result is what the client sees after an action or screenshot.
type Result struct {
	Action     string
	Screenshot string
	StreamURL  string
	CurrentURL string
}

// Dispatcher executes actions and screenshots on registered sessions.
type Dispatcher struct {
	registry *session.Registry
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// New creates a dispatcher. metrics may be nil.
func New(registry *session.Registry, logger *zap.Logger, metrics *monitoring.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: registry, logger: logger, metrics: metrics}
}

// Execute performs the named action with params on the session's computer
// and returns a fresh screenshot. The transcript is not touched.
func (d *Dispatcher) Execute(ctx context.Context, sessionID, name string, params map[string]any) (*Result, error) {
	const op = "execute action"

	s, err := d.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, failure.New(failure.ErrInvalidRequest, op, "Action type is required")
	}
	if !computer.Supports(s.Kind, name) {
		d.metrics.RecordAction(name, "unknown")
		return nil, failure.Newf(failure.ErrUnknownAction, op, "Unknown action: %s", name)
	}

	action, err := computer.DecodeAction(name, params)
	if err != nil {
		d.metrics.RecordAction(name, "invalid")
		return nil, err
	}

	log := d.logger.With(zap.String("session_id", sessionID), zap.String("action", name))
	result := &Result{Action: name, StreamURL: s.StreamURL}

	err = s.Use(op, func(h session.Handle) error {
		if err := h.Do(ctx, action); err != nil {
			return failure.Wrap(failure.ErrBackendInvocation, op, err)
		}

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
	if err != nil {
		d.metrics.RecordAction(name, "error")
		log.Error("action failed", zap.Error(err))
		return nil, err
	}

	d.metrics.RecordAction(name, "ok")
	log.Debug("action executed")
	return result, nil
}

// Screenshot captures the session's current screen.
func (d *Dispatcher) Screenshot(ctx context.Context, sessionID string) (*Result, error) {
	const op = "screenshot"

	s, err := d.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	result := &Result{StreamURL: s.StreamURL}
	err = s.Use(op, func(h session.Handle) error {
		shot, err := h.Screenshot(ctx)
		if err != nil {
			return failure.Wrap(failure.ErrBackendInvocation, op, err)
		}
		result.Screenshot = shot
		return nil
	})
	if err != nil {
		d.logger.Error("screenshot failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return result, nil
}
