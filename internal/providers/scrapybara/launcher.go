package scrapybara

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
)

// Launcher starts Scrapybara instances for sessions.
type Launcher struct {
	client *Client
	logger *zap.Logger
}

var _ computer.Launcher = (*Launcher)(nil)

// NewLauncher creates a launcher over client.
func NewLauncher(client *Client, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{client: client, logger: logger}
}

// Launch starts an instance of kind, waits for it to run, and for browser
// instances starts the browser. If any step after start fails the instance
// is stopped.
func (l *Launcher) Launch(ctx context.Context, kind computer.Kind) (computer.Computer, error) {
	instanceType, err := instanceTypeFor(kind)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	info, err := l.client.Start(ctx, instanceType)
	if err != nil {
		return nil, fmt.Errorf("start %s instance: %w", instanceType, err)
	}
	log := l.logger.With(zap.String("instance_id", info.ID), zap.String("instance_type", instanceType))

	c := &Computer{client: l.client, kind: kind, info: *info}
	if err := l.prepare(ctx, c); err != nil {
		if stopErr := c.Release(context.WithoutCancel(ctx)); stopErr != nil {
			log.Warn("stop after failed launch", zap.Error(stopErr))
		}
		return nil, err
	}

	log.Info("instance launched", zap.Duration("duration", time.Since(start)))
	return c, nil
}

func (l *Launcher) prepare(ctx context.Context, c *Computer) error {
	if err := l.client.WaitReady(ctx, &c.info); err != nil {
		return err
	}
	if c.kind != computer.Browser {
		return nil
	}
	cdp, err := l.client.StartBrowser(ctx, c.info.ID)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	c.cdpURL = cdp
	return nil
}

func instanceTypeFor(kind computer.Kind) (string, error) {
	switch kind {
	case computer.Browser:
		return instanceBrowser, nil
	case computer.Desktop:
		return instanceUbuntu, nil
	default:
		return "", fmt.Errorf("no instance type for computer kind %q", kind)
	}
}
