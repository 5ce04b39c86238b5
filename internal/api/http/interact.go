package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/computer-agent/internal/api/ws"
)

// Interact runs one agent turn with the given instruction.
func (h *Handlers) Interact(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.checkSession(sessionID); err != nil {
		h.fail(c, "interact", err)
		return
	}

	var req InteractRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.fail(c, "interact", err)
		return
	}

	res, err := h.coordinator.RunTurn(c.Request.Context(), sessionID, req.Input)
	if err != nil {
		h.fail(c, "interact", err)
		return
	}

	h.publish(ws.Event{
		Type:       ws.EventTurn,
		SessionID:  sessionID,
		Items:      res.Items,
		Screenshot: res.Screenshot,
		CurrentURL: res.CurrentURL,
	})
	c.JSON(http.StatusOK, InteractResponse{
		Items:      res.Items,
		Screenshot: res.Screenshot,
		StreamURL:  res.StreamURL,
		CurrentURL: res.CurrentURL,
	})
}

// ExecuteAction performs one direct action. The body is {type, ...params}.
func (h *Handlers) ExecuteAction(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.checkSession(sessionID); err != nil {
		h.fail(c, "execute action", err)
		return
	}

	body := map[string]any{}
	if err := bindOptionalJSON(c, &body); err != nil {
		h.fail(c, "execute action", err)
		return
	}
	name, _ := body["type"].(string)
	delete(body, "type")

	res, err := h.dispatcher.Execute(c.Request.Context(), sessionID, name, body)
	if err != nil {
		h.fail(c, "execute action", err)
		return
	}

	h.publish(ws.Event{
		Type:       ws.EventAction,
		SessionID:  sessionID,
		Action:     res.Action,
		Screenshot: res.Screenshot,
		CurrentURL: res.CurrentURL,
	})
	c.JSON(http.StatusOK, ActionResponse{
		Message:    fmt.Sprintf("Action %s executed", res.Action),
		Screenshot: res.Screenshot,
		StreamURL:  res.StreamURL,
		CurrentURL: res.CurrentURL,
	})
}
