package tracing

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// HTTPMiddleware opens a span per request. Incoming X-Trace-ID and
// X-Span-ID continue the caller's trace. The response always carries the
// request span's IDs.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, parentID := Extract(c.Request.Header)
		ctx := withIDs(c.Request.Context(), traceID, parentID)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+route)
		span.Annotate("http.path", c.Request.URL.Path)
		if sessionID := c.Param("id"); sessionID != "" {
			span.Annotate("session_id", sessionID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		status := c.Writer.Status()
		span.Status(status)
		span.Annotate("http.status", strconv.Itoa(status))
		if err := c.Errors.Last(); err != nil {
			span.Fail(err)
		}
		span.Finish()
		tracer.Submit(span)
	}
}
