// Package testutil provides fakes and mocks shared by package tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/computer-agent/internal/agent"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/transcript"
)

// FakeImage is the base64 screenshot every FakeComputer returns by default.
const FakeImage = "iVBORw0KGgo="

// FakeComputer is an in-memory computer handle that records what it is asked
// to do.
type FakeComputer struct {
	kind computer.Kind

	mu            sync.Mutex
	actions       []computer.Action
	screenshots   int
	releases      int
	image         string
	url           string
	stream        string
	screenshotErr error
	doErr         error
	releaseErr    error
	locateErr     error
	onDo          func(ctx context.Context, a computer.Action) error
	onScreenshot  func()

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewFakeComputer creates a fake of the given kind.
func NewFakeComputer(kind computer.Kind) *FakeComputer {
	return &FakeComputer{kind: kind, image: FakeImage}
}

func (f *FakeComputer) Kind() computer.Kind { return f.kind }

func (f *FakeComputer) Screenshot(ctx context.Context) (string, error) {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	hook := f.onScreenshot
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.screenshots++
	if f.screenshotErr != nil {
		return "", f.screenshotErr
	}
	return f.image, nil
}

func (f *FakeComputer) Do(ctx context.Context, a computer.Action) error {
	f.enter()
	defer f.leave()

	f.mu.Lock()
	hook := f.onDo
	f.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, a); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doErr != nil {
		return f.doErr
	}
	f.actions = append(f.actions, a)
	if g, ok := a.(computer.Goto); ok {
		f.url = g.URL
	}
	return nil
}

func (f *FakeComputer) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	return f.releaseErr
}

func (f *FakeComputer) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locateErr != nil {
		return "", f.locateErr
	}
	return f.url, nil
}

// StreamURL makes the fake resolvable through the direct strategy once a
// stream URL is set.
func (f *FakeComputer) StreamURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stream == "" {
		return "", errors.New("no stream")
	}
	return f.stream, nil
}

func (f *FakeComputer) enter() {
	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (f *FakeComputer) leave() { f.inFlight.Add(-1) }

// SetStreamURL sets the URL StreamURL reports.
func (f *FakeComputer) SetStreamURL(u string) { f.mu.Lock(); f.stream = u; f.mu.Unlock() }

// SetURL sets the URL CurrentURL reports.
func (f *FakeComputer) SetURL(u string) { f.mu.Lock(); f.url = u; f.mu.Unlock() }

// FailScreenshot makes Screenshot return err.
func (f *FakeComputer) FailScreenshot(err error) { f.mu.Lock(); f.screenshotErr = err; f.mu.Unlock() }

// FailDo makes Do return err.
func (f *FakeComputer) FailDo(err error) { f.mu.Lock(); f.doErr = err; f.mu.Unlock() }

// FailRelease makes Release return err.
func (f *FakeComputer) FailRelease(err error) { f.mu.Lock(); f.releaseErr = err; f.mu.Unlock() }

// FailLocate makes CurrentURL return err.
func (f *FakeComputer) FailLocate(err error) { f.mu.Lock(); f.locateErr = err; f.mu.Unlock() }

// OnDo installs a hook that runs before every action.
func (f *FakeComputer) OnDo(hook func(ctx context.Context, a computer.Action) error) {
	f.mu.Lock()
	f.onDo = hook
	f.mu.Unlock()
}

// OnScreenshot installs a hook that runs at the start of every Screenshot.
func (f *FakeComputer) OnScreenshot(hook func()) {
	f.mu.Lock()
	f.onScreenshot = hook
	f.mu.Unlock()
}

// Actions returns the actions performed so far.
func (f *FakeComputer) Actions() []computer.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]computer.Action(nil), f.actions...)
}

// Screenshots returns how many screenshots were requested.
func (f *FakeComputer) Screenshots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screenshots
}

// Releases returns how many times Release was called.
func (f *FakeComputer) Releases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.releases
}

// MaxConcurrent returns the highest number of overlapping Do/Screenshot calls seen.
func (f *FakeComputer) MaxConcurrent() int {
	return int(f.maxInFlight.Load())
}

// FakeLauncher hands out FakeComputers.
type FakeLauncher struct {
	mu        sync.Mutex
	launched  []*FakeComputer
	err       error
	configure func(*FakeComputer)
}

// NewFakeLauncher creates a launcher; configure, if set, runs on every new fake.
func NewFakeLauncher(configure func(*FakeComputer)) *FakeLauncher {
	return &FakeLauncher{configure: configure}
}

func (l *FakeLauncher) Launch(ctx context.Context, kind computer.Kind) (computer.Computer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	fc := NewFakeComputer(kind)
	if l.configure != nil {
		l.configure(fc)
	}
	l.launched = append(l.launched, fc)
	return fc, nil
}

// Fail makes every later Launch return err.
func (l *FakeLauncher) Fail(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// Launched returns every fake handed out so far.
func (l *FakeLauncher) Launched() []*FakeComputer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeComputer(nil), l.launched...)
}

// Last returns the most recently launched fake, or nil.
func (l *FakeLauncher) Last() *FakeComputer {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.launched) == 0 {
		return nil
	}
	return l.launched[len(l.launched)-1]
}

// MockLoop is a mock implementation of agent.Loop.
type MockLoop struct {
	mock.Mock
}

var _ agent.Loop = (*MockLoop)(nil)

// Run mocks the Run method.
func (m *MockLoop) Run(ctx context.Context, c computer.Computer, items []transcript.Item, opts agent.Options) ([]transcript.Item, error) {
	args := m.Called(ctx, c, items, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]transcript.Item), args.Error(1)
}

// NewMockLoop creates a loop that answers every turn with a single assistant
// message.
func NewMockLoop(t *testing.T, reply string) *MockLoop {
	t.Helper()
	m := new(MockLoop)
	m.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]transcript.Item{transcript.AssistantMessage(reply)}, nil).
		Maybe()
	return m
}
