package tracing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/computer-agent/internal/shared/id"
)

// Propagation headers.
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// spanBuffer bounds how many finished spans wait for the collector.
const spanBuffer = 1000

type (
	TraceID string
	SpanID  string
)

// Span times one operation. It is not safe for concurrent use.
type Span struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID SpanID
	Name     string

	start  time.Time
	took   time.Duration
	status int
	err    error
	attrs  []zap.Field
}

// Annotate attaches a string attribute that is logged with the span.
func (s *Span) Annotate(key, value string) {
	s.attrs = append(s.attrs, zap.String(key, value))
}

// Fail marks the span failed. A span without a status is reported as 500.
func (s *Span) Fail(err error) {
	s.err = err
	if s.status == 0 {
		s.status = http.StatusInternalServerError
	}
}

// Status records the response status of the operation.
func (s *Span) Status(code int) { s.status = code }

// Finish stops the span's clock.
func (s *Span) Finish() { s.took = time.Since(s.start) }

func (s *Span) fields(service string) []zap.Field {
	fields := make([]zap.Field, 0, 7+len(s.attrs))
	fields = append(fields,
		zap.String("service", service),
		zap.String("operation", s.Name),
		zap.String("trace_id", string(s.TraceID)),
		zap.String("span_id", string(s.SpanID)),
		zap.Duration("duration", s.took),
	)
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(s.ParentID)))
	}
	if s.status != 0 {
		fields = append(fields, zap.Int("status", s.status))
	}
	return append(fields, s.attrs...)
}

// Tracer hands finished spans to a single goroutine that logs them.
type Tracer struct {
	service string
	logger  *zap.Logger
	queue   chan *Span

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New starts a tracer that logs spans for service.
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		queue:   make(chan *Span, spanBuffer),
		done:    make(chan struct{}),
	}
	go t.collect()
	return t
}

// StartSpan opens a span, continuing the trace carried by ctx if any.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}
	span := &Span{
		TraceID:  traceID,
		SpanID:   SpanID(id.NewRequestID()),
		ParentID: GetSpanID(ctx),
		Name:     name,
		start:    time.Now(),
	}
	return span, withIDs(ctx, span.TraceID, span.SpanID)
}

// Submit queues a finished span. It drops the span when the queue is full
// or the tracer is closed.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.queue <- span:
	default:
		t.logger.Warn("span queue full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("operation", span.Name),
		)
	}
}

// Close logs the queued spans and stops the collector.
func (t *Tracer) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()
	<-t.done
}

func (t *Tracer) collect() {
	defer close(t.done)
	for span := range t.queue {
		fields := span.fields(t.service)
		if span.err != nil {
			t.logger.Error("span completed with error", append(fields, zap.Error(span.err))...)
			continue
		}
		t.logger.Debug("span completed", fields...)
	}
}

type ctxKey int

const (
	traceKey ctxKey = iota
	spanKey
)

func withIDs(ctx context.Context, traceID TraceID, spanID SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceKey, traceID)
	}
	if spanID != "" {
		ctx = context.WithValue(ctx, spanKey, spanID)
	}
	return ctx
}

// GetTraceID returns the trace in ctx, or "".
func GetTraceID(ctx context.Context) TraceID {
	v, _ := ctx.Value(traceKey).(TraceID)
	return v
}

// GetSpanID returns the current span in ctx, or "".
func GetSpanID(ctx context.Context) SpanID {
	v, _ := ctx.Value(spanKey).(SpanID)
	return v
}

// Extract reads propagated trace context from inbound headers.
func Extract(h http.Header) (TraceID, SpanID) {
	return TraceID(h.Get(HeaderTraceID)), SpanID(h.Get(HeaderSpanID))
}

// Inject writes the trace context in ctx into outbound headers.
func Inject(ctx context.Context, headers map[string]string) {
	if traceID := GetTraceID(ctx); traceID != "" {
		headers[HeaderTraceID] = string(traceID)
	}
	if spanID := GetSpanID(ctx); spanID != "" {
		headers[HeaderSpanID] = string(spanID)
	}
}

// WithTrace returns logger annotated with the trace and span in ctx.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		return logger
	}
	return logger.With(
		zap.String("trace_id", string(traceID)),
		zap.String("span_id", string(GetSpanID(ctx))),
	)
}
