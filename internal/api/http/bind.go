package http

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/computer-agent/internal/shared/failure"
)

// bindOptionalJSON decodes the request body into v. An empty body leaves v
// untouched so that field-level validation reports what is missing.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return &failure.Error{
			Kind:    failure.ErrInvalidRequest,
			Op:      "decode body",
			Message: "Invalid JSON body",
			Err:     err,
		}
	}
	return nil
}
