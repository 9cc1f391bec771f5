package tasks

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/metrics"
)

// ConfigBackuper is the slice of the config manager the scheduler drives.
type ConfigBackuper interface {
	Backup() caddy.BackupResult
	Prune(keep int) (int, error)
}

// BackupScheduler takes periodic snapshots of the canonical config file on
// a cron schedule and prunes old snapshots beyond the retention count.
type BackupScheduler struct {
	manager   ConfigBackuper
	retention int
	collector *metrics.Collector
	cron      *cron.Cron
}

// NewBackupScheduler creates the scheduler. schedule is a standard cron
// spec; retention is the number of newest backups to keep.
func NewBackupScheduler(manager ConfigBackuper, schedule string, retention int, collector *metrics.Collector) (*BackupScheduler, error) {
	s := &BackupScheduler{
		manager:   manager,
		retention: retention,
		collector: collector,
		cron:      cron.New(),
	}

	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins scheduled execution in the background.
func (s *BackupScheduler) Start() {
	logging.GetGlobalLogger().Info("Starting scheduled config backups (retention %d)", s.retention)
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish.
func (s *BackupScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *BackupScheduler) run() {
	logger := logging.GetGlobalLogger()

	res := s.manager.Backup()
	if s.collector != nil {
		s.collector.RecordBackupRun(res.Success)
	}
	if !res.Success {
		logger.Error("Scheduled backup failed: %s", res.Error)
		return
	}

	if _, err := s.manager.Prune(s.retention); err != nil {
		logger.Warn("Backup pruning failed: %v", err)
	}
}
