// Package agent defines the boundary between the session core and the AI
// agent loop that decides which actions to take.
//
// A Loop receives the full transcript so far and a live computer handle and
// returns the items it produced during one turn. The loop may drive the
// computer any number of times before returning.
package agent

import (
	"context"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
)

// Options are per-session switches forwarded to the loop.
type Options struct {
	// Debug enables verbose diagnostics of the agent exchange.
	Debug bool
	// Verbose reports each step as it happens.
	Verbose bool
}

// Loop runs one agent turn.
type Loop interface {
	Run(ctx context.Context, c computer.Computer, items []transcript.Item, opts Options) ([]transcript.Item, error)
}

// LoopFunc adapts a function to Loop.
type LoopFunc func(ctx context.Context, c computer.Computer, items []transcript.Item, opts Options) ([]transcript.Item, error)

// Run calls f.
func (f LoopFunc) Run(ctx context.Context, c computer.Computer, items []transcript.Item, opts Options) ([]transcript.Item, error) {
	return f(ctx, c, items, opts)
}
