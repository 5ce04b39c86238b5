package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/api/middleware"
	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// fail writes err as an ErrorResponse with its mapped status. Server-side
// failures are logged with the full cause.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	status := failure.Status(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Int("status", status),
		zap.Error(err),
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("session_id", id))
	}
	if status >= 500 {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Debug("request rejected", fields...)
	}

	c.JSON(status, ErrorResponse{
		Error:   failure.Message(err),
		Details: failure.Details(err),
	})
}
