package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wakedock/wakeproxy/internal/caddy"
)

// Diagnose runs the fixed battery of five independent checks and assembles
// a report with remediation suggestions.
func (m *Monitor) Diagnose(ctx context.Context) caddy.DiagnosticReport {
	report := caddy.DiagnosticReport{
		ID:              uuid.NewString(),
		Timestamp:       time.Now(),
		Issues:          []caddy.Issue{},
		Recommendations: []string{},
	}

	type check struct {
		name string
		run  func() (bool, caddy.Issue)
	}

	checks := []check{
		{"connectivity", func() (bool, caddy.Issue) {
			if m.client.IsHealthy(ctx) {
				return true, caddy.Issue{}
			}
			return false, caddy.Issue{
				Type:        "connectivity",
				Severity:    caddy.SeverityCritical,
				Description: "admin API is not reachable",
				Suggestion:  "check that the proxy process is running and the admin endpoint address is correct",
			}
		}},
		{"configuration", func() (bool, caddy.Issue) {
			if _, err := m.client.GetConfig(ctx); err == nil {
				return true, caddy.Issue{}
			}
			return false, caddy.Issue{
				Type:        "configuration",
				Severity:    caddy.SeverityCritical,
				Description: "live configuration could not be retrieved",
				Suggestion:  "reload a known-good configuration or restore the latest backup",
			}
		}},
		{"routes", func() (bool, caddy.Issue) {
			cfg, err := m.client.GetConfig(ctx)
			if err == nil && cfg.RouteCount() > 0 {
				return true, caddy.Issue{}
			}
			return false, caddy.Issue{
				Type:        "routes",
				Severity:    caddy.SeverityWarning,
				Description: "no active routes are configured",
				Suggestion:  "run a reconciliation pass to push routes for running services",
			}
		}},
		{"stability", func() (bool, caddy.Issue) {
			failures := m.ConsecutiveFailures()
			if failures < failureThreshold {
				return true, caddy.Issue{}
			}
			return false, caddy.Issue{
				Type:        "stability",
				Severity:    caddy.SeverityCritical,
				Description: fmt.Sprintf("%d consecutive failed health checks (threshold %d)", failures, failureThreshold),
				Suggestion:  "inspect proxy logs for crash loops and verify upstream availability",
			}
		}},
		{"metrics", func() (bool, caddy.Issue) {
			pm, err := m.client.GetMetrics(ctx)
			if err != nil {
				return false, caddy.Issue{
					Type:        "metrics",
					Severity:    caddy.SeverityWarning,
					Description: fmt.Sprintf("metrics endpoint unavailable: %v", err),
					Suggestion:  "enable the metrics endpoint in the proxy configuration",
				}
			}
			if pm.ErrorRatePercent > errorRateWarnPercent ||
				pm.ResponseTimeAvgMs > responseTimeWarnMs ||
				pm.CPUUsagePercent > resourceWarnPercent ||
				pm.MemoryUsagePercent > resourceWarnPercent {
				return false, caddy.Issue{
					Type:        "metrics",
					Severity:    caddy.SeverityWarning,
					Description: "one or more performance metrics are outside acceptable bounds",
					Suggestion:  "review upstream latency, error sources and host resource usage",
				}
			}
			return true, caddy.Issue{}
		}},
	}

	report.ChecksTotal = len(checks)
	for _, c := range checks {
		passed, issue := c.run()
		if passed {
			report.ChecksPassed++
		} else {
			report.Issues = append(report.Issues, issue)
		}
	}

	ratio := float64(report.ChecksPassed) / float64(report.ChecksTotal)
	switch {
	case report.ChecksPassed == report.ChecksTotal:
		report.Status = caddy.Healthy
	case ratio >= 0.7:
		report.Status = caddy.Unhealthy
	default:
		report.Status = caddy.Unknown
	}

	report.Recommendations = recommendations(report.Issues)
	return report
}

// recommendations derives operator guidance from the issue categories
// present. There is always at least one entry.
func recommendations(issues []caddy.Issue) []string {
	var recs []string
	seen := map[string]bool{}
	for _, issue := range issues {
		if seen[issue.Type] {
			continue
		}
		seen[issue.Type] = true
		switch issue.Type {
		case "connectivity":
			recs = append(recs, "Verify the proxy is running and the admin API address is reachable from the control plane.")
		case "configuration":
			recs = append(recs, "Validate the on-disk configuration and reload it, or restore the most recent backup.")
		case "routes":
			recs = append(recs, "Trigger a service sync so running services are routed again.")
		case "stability":
			recs = append(recs, "Investigate repeated failures before they impact traffic; consider restarting the proxy.")
		case "metrics":
			recs = append(recs, "Review performance metrics and scale or tune upstreams as needed.")
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "Proxy is operating normally; no action needed.")
	}
	return recs
}
