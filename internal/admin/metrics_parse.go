package admin

import (
	"strconv"
	"strings"

	"github.com/wakedock/wakeproxy/internal/caddy"
)

// Prefixes scanned in the raw metrics blob. Everything else is ignored.
const (
	metricRequestsPerMinute = "caddy_http_requests_per_minute"
	metricResponseTimeAvg   = "caddy_http_response_duration_ms_avg"
	metricErrorRate         = "caddy_http_error_rate_percent"
	metricUptime            = "caddy_admin_uptime_seconds"
	metricMemoryUsage       = "process_memory_usage_percent"
	metricCPUUsage          = "process_cpu_usage_percent"
)

// parseMetrics scans the metrics blob line by line, picking out the few
// gauges the health monitor consumes. Unknown or malformed lines are
// skipped; this function cannot fail.
func parseMetrics(blob string) caddy.Metrics {
	var m caddy.Metrics

	for _, line := range strings.Split(blob, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[len(fields)-1], 64)
		if err != nil {
			continue
		}

		switch {
		case strings.HasPrefix(fields[0], metricRequestsPerMinute):
			m.RequestsPerMinute = value
		case strings.HasPrefix(fields[0], metricResponseTimeAvg):
			m.ResponseTimeAvgMs = value
		case strings.HasPrefix(fields[0], metricErrorRate):
			m.ErrorRatePercent = value
		case strings.HasPrefix(fields[0], metricUptime):
			m.UptimeSeconds = value
		case strings.HasPrefix(fields[0], metricMemoryUsage):
			m.MemoryUsagePercent = value
		case strings.HasPrefix(fields[0], metricCPUUsage):
			m.CPUUsagePercent = value
		}
	}

	return m
}
