package tasks

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wakedock/wakeproxy/internal/metrics"
)

func externalEdits(t *testing.T, collector *metrics.Collector) float64 {
	t.Helper()
	families, err := collector.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "wakeproxy_config_external_edits_total" {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestConfigWatcherCountsExternalEdits(t *testing.T) {
	initTestLogger(t)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "Caddyfile")
	require.NoError(t, os.WriteFile(configPath, []byte(":80 {\n}\n"), 0644))

	collector := metrics.NewCollector(nil)
	watcher, err := NewConfigWatcher(configPath, collector)
	require.NoError(t, err)

	watcher.Start()
	defer watcher.Stop()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(configPath, []byte(":80 {\n\trespond 404\n}\n"), 0644))

	require.Eventually(t, func() bool {
		return externalEdits(t, collector) >= 1
	}, 2*time.Second, 20*time.Millisecond)

	// Writes to sibling files are ignored.
	time.Sleep(100 * time.Millisecond) // let any queued events drain
	before := externalEdits(t, collector)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, before, externalEdits(t, collector))
}

func TestBackupSchedulerRejectsInvalidSpec(t *testing.T) {
	initTestLogger(t)
	_, err := NewBackupScheduler(nil, "not a cron spec", 5, nil)
	require.Error(t, err)
}
