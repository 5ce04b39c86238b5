package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/api/ws"
	"github.com/GriffinCanCode/computer-agent/internal/domain/computer"
	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// CreateSession launches a computer and returns the new session with a first
// screenshot. A missing computer type defaults to a browser.
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.fail(c, "create session", err)
		return
	}

	name := req.Computer
	if name == "" {
		name = string(computer.Browser)
	}
	kind, err := computer.ParseKind(name)
	if err != nil {
		h.fail(c, "create session", err)
		return
	}

	s, shot, err := h.registry.Create(c.Request.Context(), kind, session.Options{
		Debug:    req.Debug,
		Verbose:  req.Show,
		StartURL: req.StartURL,
	})
	if err != nil {
		h.fail(c, "create session", err)
		return
	}

	c.JSON(http.StatusOK, CreateSessionResponse{
		SessionID:    s.ID,
		ComputerType: s.Kind,
		Screenshot:   shot,
		StreamURL:    s.StreamURL,
		Message:      fmt.Sprintf("Session created with %s", s.Kind),
	})
}

// DeleteSession releases a session. A release failure is reported in the
// message but the session is gone either way.
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")

	err := h.registry.Delete(c.Request.Context(), sessionID)
	if errors.Is(err, failure.ErrNotFound) {
		h.fail(c, "delete session", err)
		return
	}
	h.hub.Close(sessionID)

	message := fmt.Sprintf("Session %s deleted", sessionID)
	if err != nil {
		h.logger.Warn("session deleted with release failure", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"message": message, "warning": failure.Message(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// ListSessions returns every live session keyed by id.
func (h *Handlers) ListSessions(c *gin.Context) {
	summaries := h.registry.List()
	resp := ListSessionsResponse{Sessions: make(map[string]SessionEntry, len(summaries))}
	for _, s := range summaries {
		resp.Sessions[s.ID] = SessionEntry{
			ComputerType: s.Kind,
			CreatedAt:    s.CreatedAt,
			StreamURL:    s.StreamURL,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Screenshot captures the session's screen.
func (h *Handlers) Screenshot(c *gin.Context) {
	res, err := h.dispatcher.Screenshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "screenshot", err)
		return
	}
	c.JSON(http.StatusOK, ScreenshotResponse{Screenshot: res.Screenshot, StreamURL: res.StreamURL})
}

// DebugSession returns the diagnostic record of a session.
func (h *Handlers) DebugSession(c *gin.Context) {
	record, err := h.inspector.Inspect(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "debug session", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// publish forwards an event to the session's stream subscribers.
func (h *Handlers) publish(ev ws.Event) {
	h.hub.Publish(ev)
}
