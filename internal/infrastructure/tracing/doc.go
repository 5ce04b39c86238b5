/*
Package tracing provides lightweight request tracing.

# Overview

Every HTTP request gets a span. Trace context propagates through the
X-Trace-ID and X-Span-ID headers, so a client that sends its own trace ID
sees it echoed back and can correlate it with server logs. Finished spans are
buffered and logged through zap by a single collector goroutine.

# Usage

	tracer := tracing.New("computer-agent", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Request-scoped logging
	log := tracing.WithTrace(c.Request.Context(), logger)
	log.Info("turn finished")

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "launch")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
*/
package tracing
