// Package tasks holds the control plane's background loops: continuous
// health monitoring, scheduled config backups and config-file watching.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
)

// HealthChecker is the slice of the health monitor the task drives.
type HealthChecker interface {
	Check(ctx context.Context) caddy.HealthStatus
}

// HealthMonitorTask runs the health-check cycle on a fixed interval until
// stopped. Cancellation is honored between cycles, not mid-call.
type HealthMonitorTask struct {
	checker  HealthChecker
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewHealthMonitorTask creates the continuous monitoring task.
func NewHealthMonitorTask(checker HealthChecker, interval time.Duration) *HealthMonitorTask {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitorTask{
		checker:  checker,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the monitoring loop in the background.
func (t *HealthMonitorTask) Start() {
	t.wg.Add(1)
	go t.runPeriodically()
}

// Stop gracefully stops the loop and waits for the current cycle to finish.
func (t *HealthMonitorTask) Stop() {
	close(t.done)
	t.wg.Wait()
}

// runPeriodically runs the check cycle at regular intervals. A panicking
// cycle is logged and the loop continues at the same interval.
func (t *HealthMonitorTask) runPeriodically() {
	defer t.wg.Done()
	logger := logging.GetGlobalLogger()

	logger.Info("Starting health monitor task (interval %s)", t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.runOnce(logger)
		case <-t.done:
			logger.Info("Health monitor task stopped")
			return
		}
	}
}

func (t *HealthMonitorTask) runOnce(logger *logging.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Health check cycle panicked: %v", r)
		}
	}()
	t.checker.Check(context.Background())
}
