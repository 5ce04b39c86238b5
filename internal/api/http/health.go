package http

import (
	"time"

	"github.com/GriffinCanCode/computer-agent/internal/domain/session"
	"github.com/GriffinCanCode/computer-agent/internal/infrastructure/monitoring"
)

// HealthReport is the body of GET /health.
type HealthReport struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Sessions  int            `json:"sessions"`
	Summary   MetricsSummary `json:"summary"`
}

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	TotalRequests int64   `json:"total_requests"`
	ErrorRate     float64 `json:"error_rate"`
	TotalTurns    int64   `json:"total_turns"`
	TotalActions  int64   `json:"total_actions"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// HealthReporter assembles health reports from the registry and metrics.
type HealthReporter struct {
	registry *session.Registry
	metrics  *monitoring.Metrics
}

// NewHealthReporter creates a reporter. metrics may be nil.
func NewHealthReporter(registry *session.Registry, metrics *monitoring.Metrics) *HealthReporter {
	return &HealthReporter{registry: registry, metrics: metrics}
}

// Report returns the current health at now.
func (hr *HealthReporter) Report(now time.Time) HealthReport {
	report := HealthReport{
		Status:    "healthy",
		Timestamp: now,
		Sessions:  hr.registry.Len(),
	}
	if hr.metrics == nil {
		return report
	}

	snap := hr.metrics.Snapshot()
	report.Summary = MetricsSummary{
		TotalRequests: snap.TotalRequests,
		TotalTurns:    snap.TotalTurns,
		TotalActions:  snap.TotalActions,
		UptimeSeconds: hr.metrics.Since().Seconds(),
	}
	if snap.TotalRequests > 0 {
		report.Summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	return report
}
