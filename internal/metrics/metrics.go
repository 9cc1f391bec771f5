// Package metrics exposes Prometheus instrumentation for the proxy control
// plane: admin API traffic, reconciliation actions and health-check outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and records all wakeproxy metrics against a private
// Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	adminRequests       *prometheus.CounterVec
	adminRetries        prometheus.Counter
	reconcileRoutes     *prometheus.CounterVec
	healthChecks        *prometheus.CounterVec
	consecutiveFailures prometheus.Gauge
	configExternalEdits prometheus.Counter
	backupRuns          *prometheus.CounterVec
}

// NewCollector creates a collector. If registry is nil, a new private
// registry is used.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		adminRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakeproxy",
			Name:      "admin_requests_total",
			Help:      "Admin API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		adminRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wakeproxy",
			Name:      "admin_retries_total",
			Help:      "Admin API attempts retried after a transient failure.",
		}),
		reconcileRoutes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakeproxy",
			Name:      "reconcile_routes_total",
			Help:      "Route reconciliation actions by action and outcome.",
		}, []string{"action", "outcome"}),
		healthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakeproxy",
			Name:      "health_checks_total",
			Help:      "Health checks by resulting status.",
		}, []string{"status"}),
		consecutiveFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wakeproxy",
			Name:      "consecutive_failures",
			Help:      "Current run of consecutive unhealthy checks.",
		}),
		configExternalEdits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wakeproxy",
			Name:      "config_external_edits_total",
			Help:      "External writes observed on the canonical config file.",
		}),
		backupRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakeproxy",
			Name:      "backup_runs_total",
			Help:      "Scheduled backup runs by outcome.",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		c.adminRequests,
		c.adminRetries,
		c.reconcileRoutes,
		c.healthChecks,
		c.consecutiveFailures,
		c.configExternalEdits,
		c.backupRuns,
	)

	return c
}

// Registry returns the underlying Prometheus registry, for callers that want
// to expose or gather it.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordAdminRequest(op string, success bool) {
	c.adminRequests.WithLabelValues(op, outcome(success)).Inc()
}

func (c *Collector) RecordAdminRetry() {
	c.adminRetries.Inc()
}

func (c *Collector) RecordReconcileAction(action string, success bool) {
	c.reconcileRoutes.WithLabelValues(action, outcome(success)).Inc()
}

func (c *Collector) RecordHealthCheck(status string) {
	c.healthChecks.WithLabelValues(status).Inc()
}

func (c *Collector) SetConsecutiveFailures(n int) {
	c.consecutiveFailures.Set(float64(n))
}

func (c *Collector) RecordExternalConfigEdit() {
	c.configExternalEdits.Inc()
}

func (c *Collector) RecordBackupRun(success bool) {
	c.backupRuns.WithLabelValues(outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
