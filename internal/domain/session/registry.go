package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
	"github.com/GriffinCanCode/computer-agent/internal/shared/id"
)

// StreamResolver discovers a live-view URL for a fresh computer.
type StreamResolver interface {
	Resolve(ctx context.Context, c computer.Computer) (string, bool)
}

// Config controls session creation.
type Config struct {
	// DefaultStartURL is opened in new browser sessions when the request
	// names none. Empty disables navigation.
	DefaultStartURL string
	// SettleDelay is waited after launch before stream discovery.
	SettleDelay time.Duration
	// CallTimeout bounds each backend call made by the registry.
	CallTimeout time.Duration
}

// Options are per-session creation choices.
type Options struct {
	Debug    bool
	Verbose  bool
	StartURL string
}

// Registry is the only source of truth for live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	launcher computer.Launcher
	resolver StreamResolver
	cfg      Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	newID func() string
	now   func() time.Time
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(launcher computer.Launcher, resolver StreamResolver, cfg Config, logger *zap.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &Registry{
		sessions: make(map[string]*Session),
		launcher: launcher,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		newID:    func() string { return id.NewSessionID().String() },
		now:      time.Now,
	}
}

// Create launches a computer of kind, takes its first screenshot and only
// then registers a session for it. It returns the session and that
// screenshot. On any failure nothing is registered and an acquired handle is
// released.
func (r *Registry) Create(ctx context.Context, kind computer.Kind, opts Options) (*Session, string, error) {
	const op = "create session"

	if !kind.Valid() {
		return nil, "", failure.Newf(failure.ErrUnsupportedKind, op,
			"Unknown computer type: %s. Only browser and desktop are supported.", kind)
	}

	log := r.logger.With(zap.String("kind", kind.String()))
	log.Info("launching computer")

	c, err := r.launch(ctx, kind)
	if err != nil {
		log.Error("launch failed", zap.Error(err))
		return nil, "", failure.Wrap(failure.ErrBackendUnavailable, op, err)
	}

	if err := r.settle(ctx); err != nil {
		r.release(c, log)
		return nil, "", failure.Wrap(failure.ErrBackendUnavailable, op, err)
	}

	var streamURL string
	if r.resolver != nil {
		url, ok := r.resolver.Resolve(ctx, c)
		r.metrics.RecordStreamLookup(ok)
		if ok {
			streamURL = url
		} else {
			log.Debug("stream url unavailable")
		}
	}

	if kind == computer.Browser {
		start := opts.StartURL
		if start == "" {
			start = r.cfg.DefaultStartURL
		}
		if start != "" {
			log.Info("navigating to start url", zap.String("url", start))
			if err := r.call(ctx, func(ctx context.Context) error {
				return c.Do(ctx, computer.Goto{URL: start})
			}); err != nil {
				log.Error("start navigation failed", zap.Error(err))
				r.release(c, log)
				return nil, "", failure.Wrap(failure.ErrBackendUnavailable, op, err)
			}
		}
	}

	var shot string
	if err := r.call(ctx, func(ctx context.Context) (err error) {
		shot, err = c.Screenshot(ctx)
		return err
	}); err != nil {
		log.Error("first screenshot failed", zap.Error(err))
		r.release(c, log)
		return nil, "", failure.Wrap(failure.ErrBackendInvocation, op, err)
	}

	s := &Session{
		Kind:      kind,
		CreatedAt: r.now(),
		StreamURL: streamURL,
		Debug:     opts.Debug,
		Verbose:   opts.Verbose,

		callTimeout: r.cfg.CallTimeout,
		computer:    c,
	}

	r.mu.Lock()
	for {
		s.ID = r.newID()
		if _, taken := r.sessions[s.ID]; !taken {
			break
		}
	}
	r.sessions[s.ID] = s
	active := len(r.sessions)
	r.mu.Unlock()

	r.metrics.IncSessionsCreated(kind.String())
	r.metrics.SetSessionsActive(active)
	log.Info("session created",
		zap.String("session_id", s.ID),
		zap.Bool("stream_url", streamURL != ""),
	)
	return s, shot, nil
}

// Get returns the live session with the given id.
func (r *Registry) Get(sessionID string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if !ok {
		return nil, failure.NotFound("get session", sessionID)
	}
	return s, nil
}

// List returns a snapshot of every live session ordered by creation time.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	out := make([]Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Summary())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Delete releases the session's computer and removes the entry. Release is
// attempted at most once per session. A release failure is returned as
// ErrBackendInvocation, but the entry is removed anyway.
func (r *Registry) Delete(ctx context.Context, sessionID string) error {
	const op = "delete session"

	s, err := r.Get(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failure.NotFound(op, sessionID)
	}
	s.closed = true
	c := s.computer
	s.computer = nil

	releaseErr := r.call(ctx, c.Release)
	s.mu.Unlock()

	r.mu.Lock()
	if r.sessions[sessionID] == s {
		delete(r.sessions, sessionID)
	}
	active := len(r.sessions)
	r.mu.Unlock()

	r.metrics.IncSessionsDeleted()
	r.metrics.SetSessionsActive(active)

	log := r.logger.With(zap.String("session_id", sessionID))
	if releaseErr != nil {
		log.Error("session removed but release failed", zap.Error(releaseErr))
		return failure.Wrap(failure.ErrBackendInvocation, op, releaseErr)
	}
	log.Info("session deleted")
	return nil
}

// Close deletes every live session. It is used on shutdown.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for sessionID := range r.sessions {
		ids = append(ids, sessionID)
	}
	r.mu.RUnlock()

	var errs []error
	for _, sessionID := range ids {
		if err := r.Delete(ctx, sessionID); err != nil && !errors.Is(err, failure.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) launch(ctx context.Context, kind computer.Kind) (c computer.Computer, err error) {
	timer := monitoring.NewTimer(r.metrics, "launch")
	defer func() { timer.Stop(err) }()

	err = r.call(ctx, func(ctx context.Context) error {
		c, err = r.launcher.Launch(ctx, kind)
		return err
	})
	if err == nil && c == nil {
		err = errors.New("launcher returned no computer")
	}
	return c, err
}

func (r *Registry) settle(ctx context.Context) error {
	if r.cfg.SettleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(r.cfg.SettleDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// release is the best-effort cleanup path for handles that never made it
// into the registry.
func (r *Registry) release(c computer.Computer, log *zap.Logger) {
	if err := r.call(context.Background(), c.Release); err != nil {
		log.Warn("release after failed create", zap.Error(err))
	}
}

func (r *Registry) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}
