package responses

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/agent"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/httpclient"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
)

const toolType = "computer_use_preview"

// Config configures the loop.
type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	MaxSteps      int
	DisplayWidth  int
	DisplayHeight int
	// Timeout bounds a single model request.
	Timeout time.Duration
}

// Loop is an agent.Loop backed by the Responses API.
type Loop struct {
	http    *httpclient.Client
	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

var _ agent.Loop = (*Loop)(nil)

// New creates a loop. logger and metrics may be nil.
func New(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.DisplayWidth <= 0 || cfg.DisplayHeight <= 0 {
		cfg.DisplayWidth, cfg.DisplayHeight = 1024, 768
	}
	return &Loop{
		http: httpclient.New(httpclient.Config{
			Name:      "agent",
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			AuthToken: cfg.APIKey,
		}, logger, metrics),
		cfg:     cfg,
		logger:  logger.Named("agent"),
		metrics: metrics,
	}
}

// Run sends the transcript to the model and executes the computer calls it
// returns until the model answers without calls or the step bound is hit.
// Only the items produced during this turn are returned.
func (l *Loop) Run(ctx context.Context, c computer.Computer, items []transcript.Item, opts agent.Options) ([]transcript.Item, error) {
	history := slices.Clone(items)
	var produced []transcript.Item

	step := 0
	for ; step < l.cfg.MaxSteps; step++ {
		resp, err := l.create(ctx, c.Kind(), history)
		if err != nil {
			return nil, err
		}
		if opts.Debug {
			l.logger.Debug("model response", zap.String("response_id", resp.ID), zap.Int("output_items", len(resp.Output)))
		}

		calls := 0
		for _, out := range resp.Output {
			item, ok := toItem(out)
			if !ok {
				continue
			}
			produced = append(produced, item)
			history = append(history, item)

			switch item.Type {
			case transcript.Message:
				if opts.Verbose {
					l.logger.Info("agent message", zap.String("content", item.Content))
				}
			case transcript.ComputerCall:
				calls++
				output, err := l.execute(ctx, c, item, opts)
				if err != nil {
					return nil, err
				}
				produced = append(produced, output)
				history = append(history, output)
			}
		}

		if calls == 0 {
			l.metrics.ObserveAgentSteps(step + 1)
			return produced, nil
		}
	}

	l.metrics.ObserveAgentSteps(step)
	l.logger.Warn("agent stopped at step limit", zap.Int("max_steps", l.cfg.MaxSteps))
	return produced, nil
}

func (l *Loop) create(ctx context.Context, kind computer.Kind, history []transcript.Item) (*createResponse, error) {
	var resp createResponse
	_, err := l.http.Do(ctx, httpclient.Request{
		Op:     "create_response",
		Method: http.MethodPost,
		Path:   "/responses",
		Body: createRequest{
			Model: l.cfg.Model,
			Input: toInput(history),
			Tools: []tool{{
				Type:          toolType,
				DisplayWidth:  l.cfg.DisplayWidth,
				DisplayHeight: l.cfg.DisplayHeight,
				Environment:   environment(kind),
			}},
			Truncation: "auto",
			Reasoning:  &reasoning{Summary: "concise"},
		},
		Result: &resp,
	})
	if err != nil {
		return nil, fmt.Errorf("agent request: %w", err)
	}
	return &resp, nil
}

// execute performs one computer call and builds its output item.
func (l *Loop) execute(ctx context.Context, c computer.Computer, call transcript.Item, opts agent.Options) (transcript.Item, error) {
	name, _ := call.Action["type"].(string)
	log := l.logger.With(zap.String("call_id", call.CallID), zap.String("action", name))

	action, err := computer.DecodeAction(name, call.Action)
	if err != nil {
		return transcript.Item{}, fmt.Errorf("computer call %s: %w", call.CallID, err)
	}
	if opts.Verbose {
		log.Info("agent action", zap.Any("params", call.Action))
	}
	if err := c.Do(ctx, action); err != nil {
		return transcript.Item{}, fmt.Errorf("computer call %s: %s: %w", call.CallID, name, err)
	}

	shot, err := c.Screenshot(ctx)
	if err != nil {
		return transcript.Item{}, fmt.Errorf("computer call %s: screenshot: %w", call.CallID, err)
	}

	output := transcript.Item{
		Type:       transcript.ComputerCallOutput,
		CallID:     call.CallID,
		Screenshot: shot,
	}
	if len(call.PendingSafetyChecks) > 0 {
		for _, check := range call.PendingSafetyChecks {
			log.Warn("auto-acknowledging safety check",
				zap.String("check_id", check.ID),
				zap.String("code", check.Code),
				zap.String("message", check.Message),
			)
		}
		l.metrics.AddSafetyChecks(len(call.PendingSafetyChecks))
		output.AcknowledgedSafetyChecks = slices.Clone(call.PendingSafetyChecks)
	}
	if c.Kind() == computer.Browser {
		if u, ok := computer.Location(ctx, c); ok {
			output.CurrentURL = u
		} else {
			log.Debug("current url unavailable")
		}
	}
	return output, nil
}
