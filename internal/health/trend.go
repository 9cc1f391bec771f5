package health

import (
	"time"

	"github.com/wakedock/wakeproxy/internal/caddy"
)

// Trend aggregates the retained history over the given window and
// classifies recent stability.
func (m *Monitor) Trend(windowHours int) caddy.HealthTrend {
	trend := caddy.HealthTrend{
		WindowHours: windowHours,
		Rating:      caddy.TrendUnknown,
	}
	if windowHours <= 0 {
		return trend
	}

	cutoff := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	m.mu.Lock()
	var healthy, errors int
	for _, status := range m.history {
		if status.CheckedAt.Before(cutoff) {
			continue
		}
		trend.Samples++
		if status.Status == caddy.Healthy {
			healthy++
		}
		errors += len(status.Errors)
	}
	m.mu.Unlock()

	if trend.Samples == 0 {
		return trend
	}

	trend.HealthyPercent = float64(healthy) / float64(trend.Samples) * 100
	trend.AvgErrors = float64(errors) / float64(trend.Samples)

	switch {
	case trend.HealthyPercent >= 90:
		trend.Rating = caddy.TrendExcellent
	case trend.HealthyPercent >= 75:
		trend.Rating = caddy.TrendGood
	case trend.HealthyPercent >= 50:
		trend.Rating = caddy.TrendDegraded
	default:
		trend.Rating = caddy.TrendPoor
	}

	return trend
}
