package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the position of a breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings tunes when a breaker opens and how it recovers. Zero fields take
// the defaults noted on each.
type Settings struct {
	// Failures is the failure streak that opens the breaker. Default 5.
	Failures int
	// FailureRatio opens the breaker once at least MinRequests calls were
	// made in the current window and more than this share failed. Zero
	// disables the ratio check.
	FailureRatio float64
	MinRequests  int
	// Window is how long closed-state tallies accumulate before reset.
	// Default one minute.
	Window time.Duration
	// Cooldown is how long the breaker stays open. Default 30s.
	Cooldown time.Duration
	// Trials is how many calls a half-open breaker admits, and how many
	// must succeed to close it. Default 1.
	Trials int
	// Failed classifies a call's error. The default counts every non-nil
	// error except context.Canceled.
	Failed func(err error) bool
	// OnStateChange observes transitions. It runs with the breaker locked.
	OnStateChange func(name string, from, to State)
}

type tally struct {
	requests int
	failures int
	streak   int
}

// Breaker guards calls to a remote dependency.
type Breaker struct {
	name string
	set  Settings
	now  func() time.Time

	mu      sync.Mutex
	state   State
	since   time.Time
	tally   tally
	trials  int
	passed  int
	attempt uint64
}

// New returns a closed breaker.
func New(name string, s Settings) *Breaker {
	if s.Failures <= 0 {
		s.Failures = 5
	}
	if s.Window <= 0 {
		s.Window = time.Minute
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.Trials <= 0 {
		s.Trials = 1
	}
	if s.Failed == nil {
		s.Failed = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	b := &Breaker{name: name, set: s, now: time.Now}
	b.since = b.now()
	return b
}

// State reports the breaker's position, applying any elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(b.now())
	return b.state
}

// Call runs fn unless b rejects it, and feeds the outcome back into b. A
// panic in fn counts as a failure and is re-raised.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	attempt, err := b.admit()
	if err != nil {
		return zero, err
	}

	failed := true
	defer func() { b.record(attempt, failed) }()

	result, err := fn()
	failed = b.set.Failed(err)
	return result, err
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(b.now())
	switch b.state {
	case StateOpen:
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if b.trials >= b.set.Trials {
			return 0, ErrTooManyRequests
		}
		b.trials++
	}
	b.tally.requests++
	return b.attempt, nil
}

// record applies one outcome. Outcomes of calls admitted before the last
// transition or window reset are ignored.
func (b *Breaker) record(attempt uint64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.advance(now)
	if attempt != b.attempt {
		return
	}

	if !failed {
		b.tally.streak = 0
		if b.state == StateHalfOpen {
			b.passed++
			if b.passed >= b.set.Trials {
				b.move(StateClosed, now)
			}
		}
		return
	}

	b.tally.failures++
	b.tally.streak++
	if b.state == StateHalfOpen || b.tripped() {
		b.move(StateOpen, now)
	}
}

func (b *Breaker) tripped() bool {
	t := b.tally
	if t.streak >= b.set.Failures {
		return true
	}
	return b.set.FailureRatio > 0 && t.requests >= b.set.MinRequests &&
		float64(t.failures)/float64(t.requests) > b.set.FailureRatio
}

func (b *Breaker) advance(now time.Time) {
	switch b.state {
	case StateClosed:
		if now.Sub(b.since) >= b.set.Window {
			b.reset(now)
		}
	case StateOpen:
		if now.Sub(b.since) >= b.set.Cooldown {
			b.move(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) move(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.reset(now)
	if b.set.OnStateChange != nil {
		b.set.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) reset(now time.Time) {
	b.since = now
	b.tally = tally{}
	b.trials, b.passed = 0, 0
	b.attempt++
}
