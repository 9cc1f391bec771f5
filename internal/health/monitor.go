// Package health continuously assesses proxy health: per-cycle checks with
// enrichment, a bounded observation history, diagnostics and trend analysis.
package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/metrics"
)

// AdminAPI is the slice of the admin client the monitor depends on.
type AdminAPI interface {
	GetStatus(ctx context.Context) caddy.HealthStatus
	GetConfig(ctx context.Context) (*caddy.Config, error)
	GetMetrics(ctx context.Context) (caddy.Metrics, error)
	IsHealthy(ctx context.Context) bool
}

// Thresholds for metric-derived warnings and diagnostics.
const (
	errorRateWarnPercent   = 5.0
	responseTimeWarnMs     = 1000.0
	resourceWarnPercent    = 80.0
	failureThreshold       = 5
	defaultHistoryCapacity = 100
)

// Monitor runs health checks and retains a bounded history. History and the
// failure counter are shared mutable state guarded by a single mutex.
type Monitor struct {
	client    AdminAPI
	logger    *logging.Logger
	collector *metrics.Collector

	capacity int

	mu                  sync.Mutex
	history             []caddy.HealthStatus
	consecutiveFailures int
}

// Options configures a Monitor.
type Options struct {
	HistoryCapacity int
	Collector       *metrics.Collector
}

// NewMonitor creates a health monitor around the given admin client.
func NewMonitor(client AdminAPI, opts Options) *Monitor {
	capacity := opts.HistoryCapacity
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &Monitor{
		client:    client,
		logger:    logging.GetGlobalLogger(),
		collector: opts.Collector,
		capacity:  capacity,
	}
}

// Check runs one health-check cycle: fetch the base status, enrich it with
// liveness, config-structure and metric-derived findings, then record it.
func (m *Monitor) Check(ctx context.Context) caddy.HealthStatus {
	status := m.client.GetStatus(ctx)

	if !m.client.IsHealthy(ctx) {
		status.Status = caddy.Unhealthy
		status.Errors = append(status.Errors, "admin API liveness probe failed")
	}

	m.enrichFromConfig(ctx, &status)
	m.enrichFromMetrics(ctx, &status)

	m.record(status)
	return status
}

// enrichFromConfig adds structural warnings from the live config tree.
func (m *Monitor) enrichFromConfig(ctx context.Context, status *caddy.HealthStatus) {
	cfg, err := m.client.GetConfig(ctx)
	if err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("configuration not retrievable: %v", err))
		return
	}

	switch {
	case !cfg.HasHTTPApp():
		status.Warnings = append(status.Warnings, "no HTTP app configured")
	case cfg.ServerCount() == 0:
		status.Warnings = append(status.Warnings, "HTTP app has no servers")
	case cfg.RouteCount() == 0:
		status.Warnings = append(status.Warnings, "no routes configured")
	}
}

// enrichFromMetrics adds threshold warnings. Metrics are best-effort; an
// unavailable endpoint is itself only a warning.
func (m *Monitor) enrichFromMetrics(ctx context.Context, status *caddy.HealthStatus) {
	pm, err := m.client.GetMetrics(ctx)
	if err != nil {
		status.Warnings = append(status.Warnings, fmt.Sprintf("metrics not retrievable: %v", err))
		return
	}

	status.UptimeSeconds = pm.UptimeSeconds

	if pm.ErrorRatePercent > errorRateWarnPercent {
		status.Warnings = append(status.Warnings, fmt.Sprintf("error rate %.1f%% exceeds %.0f%%", pm.ErrorRatePercent, errorRateWarnPercent))
	}
	if pm.ResponseTimeAvgMs > responseTimeWarnMs {
		status.Warnings = append(status.Warnings, fmt.Sprintf("average response time %.0fms exceeds %.0fms", pm.ResponseTimeAvgMs, responseTimeWarnMs))
	}
	if pm.CPUUsagePercent > resourceWarnPercent {
		status.Warnings = append(status.Warnings, fmt.Sprintf("CPU usage %.1f%% exceeds %.0f%%", pm.CPUUsagePercent, resourceWarnPercent))
	}
	if pm.MemoryUsagePercent > resourceWarnPercent {
		status.Warnings = append(status.Warnings, fmt.Sprintf("memory usage %.1f%% exceeds %.0f%%", pm.MemoryUsagePercent, resourceWarnPercent))
	}
}

// record appends to the bounded history and updates the failure counter.
func (m *Monitor) record(status caddy.HealthStatus) {
	m.mu.Lock()
	m.history = append(m.history, status)
	if len(m.history) > m.capacity {
		m.history = m.history[len(m.history)-m.capacity:]
	}

	if status.Status == caddy.Healthy {
		m.consecutiveFailures = 0
	} else {
		m.consecutiveFailures++
	}
	failures := m.consecutiveFailures
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordHealthCheck(string(status.Status))
		m.collector.SetConsecutiveFailures(failures)
	}

	if status.Status != caddy.Healthy {
		m.logger.Warn("Health check %s (consecutive failures: %d)", status.Status, failures)
	}
}

// ConsecutiveFailures returns the current run of non-healthy checks.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveFailures
}

// History returns a copy of the retained observations, oldest first.
func (m *Monitor) History() []caddy.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]caddy.HealthStatus, len(m.history))
	copy(out, m.history)
	return out
}
