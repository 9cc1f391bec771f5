package caddy

import "time"

// RoutePrefix is prepended to a service id to form the stable route id.
const RoutePrefix = "service_"

// RouteID derives the stable route identifier for a service. The id never
// changes for the lifetime of the owning service.
func RouteID(serviceID string) string {
	return RoutePrefix + serviceID
}

// Route binds a public domain to a backend upstream. Routes are owned by the
// routes registry; the proxy's internal state is treated as a mirror of it.
type Route struct {
	ID       string            `json:"id"`
	Host     string            `json:"host"`
	Upstream string            `json:"upstream"`
	Port     int               `json:"port"`
	Path     string            `json:"path"`
	TLS      bool              `json:"tls"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// ServiceStatus is the orchestrator-reported lifecycle state of a service.
type ServiceStatus string

const (
	ServiceRunning ServiceStatus = "running"
	ServiceStopped ServiceStatus = "stopped"
)

// ServiceDescriptor is the orchestrator's view of a service. Read-only input.
type ServiceDescriptor struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Domain string        `json:"domain,omitempty"`
	Status ServiceStatus `json:"status"`
	Port   int           `json:"port"`
}

// ConfigValidation is the outcome of validating a candidate configuration.
// Instances are built once and never mutated afterwards.
type ConfigValidation struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// BackupResult identifies a backup snapshot by its timestamp-derived id.
type BackupResult struct {
	BackupID string `json:"backup_id"`
	Path     string `json:"path"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// RestoreResult reports the outcome of restoring a backup.
type RestoreResult struct {
	BackupID string `json:"backup_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// BackupInfo describes one stored backup file when enumerating the backup
// directory, newest first.
type BackupInfo struct {
	BackupID  string    `json:"backup_id"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// ReloadResult reports a config reload attempt. Duration is populated on
// failure too, so callers can measure the cost of failed attempts.
type ReloadResult struct {
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Health is the coarse state reported by a single health check.
type Health string

const (
	Healthy   Health = "healthy"
	Unhealthy Health = "unhealthy"
	Unknown   Health = "unknown"
)

// HealthStatus is one health-check observation. Appended to a bounded
// history by the health monitor.
type HealthStatus struct {
	Status        Health    `json:"status"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	ActiveRoutes  int       `json:"active_routes"`
	Errors        []string  `json:"errors,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Metrics is a point-in-time snapshot of proxy performance counters.
type Metrics struct {
	ActiveRoutes       int     `json:"active_routes"`
	RequestsPerMinute  float64 `json:"requests_per_minute"`
	ResponseTimeAvgMs  float64 `json:"response_time_avg_ms"`
	ErrorRatePercent   float64 `json:"error_rate_percent"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	CPUUsagePercent    float64 `json:"cpu_usage_percent"`
}

// IssueSeverity ranks diagnostic issues.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityWarning  IssueSeverity = "warning"
	SeverityInfo     IssueSeverity = "info"
)

// Issue is a single failed diagnostic check with a remediation hint.
type Issue struct {
	Type        string        `json:"type"`
	Severity    IssueSeverity `json:"severity"`
	Description string        `json:"description"`
	Suggestion  string        `json:"suggestion"`
}

// DiagnosticReport is a pass/fail assessment across the fixed battery of
// health checks.
type DiagnosticReport struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Status          Health    `json:"status"`
	ChecksPassed    int       `json:"checks_passed"`
	ChecksTotal     int       `json:"checks_total"`
	Issues          []Issue   `json:"issues"`
	Recommendations []string  `json:"recommendations"`
}

// TrendRating classifies recent proxy stability.
type TrendRating string

const (
	TrendExcellent TrendRating = "excellent"
	TrendGood      TrendRating = "good"
	TrendDegraded  TrendRating = "degraded"
	TrendPoor      TrendRating = "poor"
	TrendUnknown   TrendRating = "unknown"
)

// HealthTrend is a windowed aggregate over the health history.
type HealthTrend struct {
	WindowHours    int         `json:"window_hours"`
	Samples        int         `json:"samples"`
	HealthyPercent float64     `json:"healthy_percent"`
	AvgErrors      float64     `json:"avg_errors"`
	Rating         TrendRating `json:"rating"`
}

// RouteState classifies a registered route against the proxy's live config.
type RouteState string

const (
	RouteActive   RouteState = "active"
	RouteInactive RouteState = "inactive"
	RouteError    RouteState = "error"
)
