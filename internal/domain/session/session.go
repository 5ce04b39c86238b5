package session

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/computer-agent/internal/agent"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// Session binds one remote computer to one conversation transcript.
// ID, Kind, CreatedAt, StreamURL and the agent switches never change after
// registration and may be read without locking.
type Session struct {
	ID        string
	Kind      computer.Kind
	CreatedAt time.Time
	StreamURL string
	Debug     bool
	Verbose   bool

	callTimeout time.Duration

	mu       sync.Mutex
	computer computer.Computer
	log      transcript.Log
	closed   bool
}

// Summary is the list view of a session. It never carries the handle or
// transcript.
type Summary struct {
	ID        string        `json:"id"`
	Kind      computer.Kind `json:"computer_type"`
	CreatedAt time.Time     `json:"created_at"`
	StreamURL string        `json:"stream_url,omitempty"`
}

// Handle is the exclusive view of a session passed to Use callbacks. It is
// only valid for the duration of the callback.
type Handle struct {
	s *Session
}

// Computer returns the session's live computer.
func (h Handle) Computer() computer.Computer { return h.s.computer }

// Transcript returns a copy of the transcript so far.
func (h Handle) Transcript() []transcript.Item { return h.s.log.Items() }

// Append adds items to the transcript in order and returns them with IDs
// assigned.
func (h Handle) Append(items ...transcript.Item) []transcript.Item {
	return h.s.log.Append(items...)
}

// Call runs fn under the session's per-call timeout.
func (h Handle) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if h.s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.s.callTimeout)
		defer cancel()
	}
	return fn(ctx)
}

// Do performs action on the session's computer.
func (h Handle) Do(ctx context.Context, action computer.Action) error {
	return h.Call(ctx, func(ctx context.Context) error {
		return h.s.computer.Do(ctx, action)
	})
}

// Screenshot captures the current screen.
func (h Handle) Screenshot(ctx context.Context) (shot string, err error) {
	err = h.Call(ctx, func(ctx context.Context) error {
		shot, err = h.s.computer.Screenshot(ctx)
		return err
	})
	return shot, err
}

// CurrentURL reports the page URL of browser sessions. Desktops and failed
// lookups report false.
func (h Handle) CurrentURL(ctx context.Context) (url string, ok bool) {
	if h.s.Kind != computer.Browser {
		return "", false
	}
	_ = h.Call(ctx, func(ctx context.Context) error {
		url, ok = computer.Location(ctx, h.s.computer)
		return nil
	})
	return url, ok
}

// Use runs fn while holding the session lock. Callers on the same session
// are serialized; a deleted session fails with NotFound.
func (s *Session) Use(op string, fn func(h Handle) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return failure.NotFound(op, s.ID)
	}
	return fn(Handle{s: s})
}

// AgentOptions returns the switches forwarded to the agent loop.
func (s *Session) AgentOptions() agent.Options {
	return agent.Options{Debug: s.Debug, Verbose: s.Verbose}
}

// TranscriptLen reports the number of transcript items.
func (s *Session) TranscriptLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Len()
}

// Summary returns the list view of s.
func (s *Session) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Kind:      s.Kind,
		CreatedAt: s.CreatedAt,
		StreamURL: s.StreamURL,
	}
}
