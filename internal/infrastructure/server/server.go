package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/agent"
	"github.com/GriffinCanCode/computer-agent/internal/agent/responses"
	apihttp "github.com/GriffinCanCode/computer-agent/internal/api/http"
	"github.com/GriffinCanCode/computer-agent/internal/api/middleware"
	"github.com/GriffinCanCode/computer-agent/internal/api/ws"
	"github.com/GriffinCanCode/computer-agent/internal/domain/capability"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/dispatch"
	"github.com/GriffinCanCode/computer-agent/internal/domain/inspect"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/domain/turn"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/config"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/logging"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/computer-agent/internal/providers/scrapybara"
)

const shutdownTimeout = 30 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	handler  http.Handler
	http     *http.Server
	registry *session.Registry
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

type options struct {
	logger   *logging.Logger
	launcher computer.Launcher
	loop     agent.Loop
}

// Option overrides a collaborator the server would otherwise build from
// configuration.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithLauncher replaces the Scrapybara launcher.
func WithLauncher(l computer.Launcher) Option { return func(o *options) { o.launcher = l } }

// WithLoop replaces the Responses agent loop.
func WithLoop(l agent.Loop) Option { return func(o *options) { o.loop = l } }

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	logger.Info("Initializing computer-agent server",
		zap.String("addr", cfg.Addr()),
		zap.String("provider", cfg.Provider.BaseURL),
		zap.String("model", cfg.Agent.Model),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("computer-agent", logger.Component("tracing"))

	launcher := o.launcher
	if launcher == nil {
		if cfg.Provider.APIKey == "" {
			logger.Warn("SCRAPYBARA_API_KEY is not set; instance launches will be rejected")
		}
		client := scrapybara.NewClient(scrapybara.Config{
			BaseURL:              cfg.Provider.BaseURL,
			APIKey:               cfg.Provider.APIKey,
			Timeout:              cfg.Provider.Timeout,
			Retries:              cfg.Provider.Retries,
			RequestsPerSecond:    cfg.Provider.RequestsPerSecond,
			ReadyTimeout:         cfg.Provider.ReadyTimeout,
			InstanceTimeoutHours: cfg.Provider.InstanceTimeoutHours,
		}, logger.Component("scrapybara"), metrics)
		launcher = scrapybara.NewLauncher(client, logger.Component("scrapybara"))
	}

	loop := o.loop
	if loop == nil {
		if cfg.Agent.APIKey == "" {
			logger.Warn("OPENAI_API_KEY is not set; agent turns will fail")
		}
		loop = responses.New(responses.Config{
			BaseURL:       cfg.Agent.BaseURL,
			APIKey:        cfg.Agent.APIKey,
			Model:         cfg.Agent.Model,
			MaxSteps:      cfg.Agent.MaxSteps,
			DisplayWidth:  cfg.Agent.DisplayWidth,
			DisplayHeight: cfg.Agent.DisplayHeight,
		}, logger.Logger, metrics)
	}

	resolver := capability.NewResolver(logger.Component("capability"), cfg.Session.CallTimeout)
	registry := session.NewRegistry(launcher, resolver, session.Config{
		DefaultStartURL: cfg.Session.DefaultStartURL,
		SettleDelay:     cfg.Session.SettleDelay,
		CallTimeout:     cfg.Session.CallTimeout,
	}, logger.Component("session"), metrics)

	hub := ws.NewHub(logger.Component("events"))
	handlers := apihttp.NewHandlers(apihttp.Deps{
		Registry:    registry,
		Dispatcher:  dispatch.New(registry, logger.Component("dispatch"), metrics),
		Coordinator: turn.New(registry, loop, cfg.Agent.TurnTimeout, logger.Component("turn"), metrics),
		Inspector:   inspect.New(registry, resolver, logger.Component("inspect")),
		Hub:         hub,
		Metrics:     metrics,
		Logger:      logger.Component("http"),
	})

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(middleware.Recovery(logger.Component("http")))
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.Logger(logger.Component("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	prefix := "/" + strings.Trim(cfg.Server.APIPrefix, "/")
	if prefix != "/" {
		handlers.Register(router.Group(prefix))
	}
	handlers.Register(router)

	var handler http.Handler = router
	if cfg.Server.Gzip {
		handler = compress(router)
	}

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		handler: handler,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: registry,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// compress gzips responses for clients that accept it. WebSocket upgrades
// bypass compression since they hijack the connection.
func compress(next http.Handler) http.Handler {
	gz := gzhttp.GzipHandler(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			next.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Registry returns the session registry.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// every live session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	return errors.Join(err, s.Close(ctx))
}

// Close releases every live session and flushes telemetry.
func (s *Server) Close(ctx context.Context) error {
	n := s.registry.Len()
	err := s.registry.Close(ctx)
	if err != nil {
		s.logger.Error("Failed to release sessions", zap.Error(err))
	} else {
		s.logger.Info("Released sessions", zap.Int("count", n))
	}

	s.tracer.Close()
	_ = s.logger.Sync()
	return err
}
