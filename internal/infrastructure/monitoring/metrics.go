package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. Every instance owns its own registry.
// All record methods are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated *prometheus.CounterVec
	SessionsDeleted prometheus.Counter

	// Turn and action metrics
	TurnsTotal    *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	ActionsTotal  *prometheus.CounterVec
	AgentSteps    prometheus.Histogram
	SafetyChecks  prometheus.Counter
	StreamLookups *prometheus.CounterVec

	// Backend metrics
	BackendCalls    *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	mu       sync.RWMutex
	snapshot Snapshot
}

// Snapshot holds current values for the health endpoint.
type Snapshot struct {
	TotalRequests  int64 `json:"total_requests"`
	TotalErrors    int64 `json:"total_errors"`
	ActiveSessions int64 `json:"active_sessions"`
	TotalTurns     int64 `json:"total_turns"`
	TotalActions   int64 `json:"total_actions"`
}

// NewMetrics creates a new metrics collector with Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_sessions_active",
				Help: "Number of live computer sessions",
			},
		),
		SessionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_sessions_created_total",
				Help: "Total number of sessions created",
			},
			[]string{"kind"},
		),
		SessionsDeleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_sessions_deleted_total",
				Help: "Total number of sessions deleted",
			},
		),

		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_turns_total",
				Help: "Total number of agent turns",
			},
			[]string{"status"},
		),
		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agent_turn_duration_seconds",
				Help:    "Agent turn duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_actions_total",
				Help: "Total number of direct actions",
			},
			[]string{"action", "status"},
		),
		AgentSteps: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agent_loop_steps",
				Help:    "Model round trips per agent turn",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
		),
		SafetyChecks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_safety_checks_acknowledged_total",
				Help: "Total number of pending safety checks acknowledged",
			},
		),
		StreamLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_stream_url_lookups_total",
				Help: "Stream URL resolutions by outcome",
			},
			[]string{"outcome"},
		),

		BackendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_backend_calls_total",
				Help: "Total number of calls to the computer provider",
			},
			[]string{"operation", "status"},
		),
		BackendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_backend_duration_seconds",
				Help:    "Computer provider call duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agent_ws_connections",
				Help: "Number of active event stream connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_ws_messages_total",
				Help: "Total number of event stream messages",
			},
			[]string{"direction", "type"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "agent_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler exposes the registry in the Prometheus text format. Compression
// is left to the server.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:           m.registry,
		DisableCompression: true,
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetSessionsActive sets the number of live sessions
func (m *Metrics) SetSessionsActive(count int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsCreated counts a created session of the given kind
func (m *Metrics) IncSessionsCreated(kind string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(kind).Inc()
}

// IncSessionsDeleted counts a deleted session
func (m *Metrics) IncSessionsDeleted() {
	if m == nil {
		return
	}
	m.SessionsDeleted.Inc()
}

// RecordTurn records a finished agent turn
func (m *Metrics) RecordTurn(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(status).Inc()
	m.TurnDuration.Observe(duration.Seconds())
	m.mu.Lock()
	m.snapshot.TotalTurns++
	m.mu.Unlock()
}

// RecordAction records a direct action
func (m *Metrics) RecordAction(action, status string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(action, status).Inc()
	m.mu.Lock()
	m.snapshot.TotalActions++
	m.mu.Unlock()
}

// ObserveAgentSteps records how many model round trips a turn took
func (m *Metrics) ObserveAgentSteps(steps int) {
	if m == nil {
		return
	}
	m.AgentSteps.Observe(float64(steps))
}

// AddSafetyChecks counts acknowledged safety checks
func (m *Metrics) AddSafetyChecks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SafetyChecks.Add(float64(n))
}

// RecordStreamLookup records a stream URL resolution outcome
func (m *Metrics) RecordStreamLookup(found bool) {
	if m == nil {
		return
	}
	outcome := "missing"
	if found {
		outcome = "found"
	}
	m.StreamLookups.WithLabelValues(outcome).Inc()
}

// RecordBackendCall records a call to the computer provider
func (m *Metrics) RecordBackendCall(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendCalls.WithLabelValues(operation, status).Inc()
	m.BackendDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWSMessage records an event stream message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments event stream connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements event stream connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns the current summary values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Since returns the process uptime.
func (m *Metrics) Since() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}
