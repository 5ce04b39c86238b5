package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/api/ws"
	"github.com/GriffinCanCode/computer-agent/internal/domain/dispatch"
	"github.com/GriffinCanCode/computer-agent/internal/domain/inspect"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/domain/turn"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
)

const version = "1.0.0"

// Deps are the collaborators the handlers are built from.
type Deps struct {
	Registry    *session.Registry
	Dispatcher  *dispatch.Dispatcher
	Coordinator *turn.Coordinator
	Inspector   *inspect.Inspector
	Hub         *ws.Hub
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	registry    *session.Registry
	dispatcher  *dispatch.Dispatcher
	coordinator *turn.Coordinator
	inspector   *inspect.Inspector
	hub         *ws.Hub
	events      *ws.Handler
	health      *HealthReporter
	logger      *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := deps.Hub
	if hub == nil {
		hub = ws.NewHub(logger)
	}

	h := &Handlers{
		registry:    deps.Registry,
		dispatcher:  deps.Dispatcher,
		coordinator: deps.Coordinator,
		inspector:   deps.Inspector,
		hub:         hub,
		health:      NewHealthReporter(deps.Registry, deps.Metrics),
		logger:      logger,
	}
	h.events = ws.NewHandler(hub, h.checkSession, logger, deps.Metrics)
	return h
}

// Register mounts the session routes on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.POST("/sessions/:id/interact", h.Interact)
	r.POST("/sessions/:id/action", h.ExecuteAction)
	r.GET("/sessions/:id/screenshot", h.Screenshot)
	r.GET("/sessions/:id/debug", h.DebugSession)
	r.GET("/sessions/:id/events", h.events.Events)
	r.GET("/debug/session/:id", h.DebugSession)
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "computer-agent",
		"version": version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.Report(time.Now()))
}

func (h *Handlers) checkSession(sessionID string) error {
	_, err := h.registry.Get(sessionID)
	return err
}
