package tasks

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
)

func initTestLogger(t *testing.T) {
	t.Helper()
	logging.InitLogger(&logging.Config{
		Level:      "info",
		File:       filepath.Join(os.TempDir(), "wakeproxy-test.log"),
		MaxSize:    10,
		MaxBackups: 1,
		MaxAge:     1,
	})
}

type countingChecker struct {
	calls int32
	panic bool
}

func (c *countingChecker) Check(ctx context.Context) caddy.HealthStatus {
	n := atomic.AddInt32(&c.calls, 1)
	if c.panic && n == 1 {
		panic("boom")
	}
	return caddy.HealthStatus{Status: caddy.Healthy, CheckedAt: time.Now()}
}

func TestHealthMonitorTaskRunsAndStops(t *testing.T) {
	initTestLogger(t)
	checker := &countingChecker{}
	task := NewHealthMonitorTask(checker, 10*time.Millisecond)

	task.Start()
	time.Sleep(60 * time.Millisecond)
	task.Stop()

	calls := atomic.LoadInt32(&checker.calls)
	require.GreaterOrEqual(t, calls, int32(2), "loop should have run multiple cycles")

	// No further cycles after Stop.
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, calls, atomic.LoadInt32(&checker.calls))
}

func TestHealthMonitorTaskSurvivesPanic(t *testing.T) {
	initTestLogger(t)
	checker := &countingChecker{panic: true}
	task := NewHealthMonitorTask(checker, 10*time.Millisecond)

	task.Start()
	time.Sleep(60 * time.Millisecond)
	task.Stop()

	require.GreaterOrEqual(t, atomic.LoadInt32(&checker.calls), int32(2), "loop must continue after a panicking cycle")
}
