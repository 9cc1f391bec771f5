package caddyfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wakedock/wakeproxy/internal/caddy"
)

const backupPrefix = "caddyfile_backup_"

// backupID derives the timestamp-based backup identifier, e.g.
// caddyfile_backup_20260827_153000.
func backupID(now time.Time) string {
	return backupPrefix + now.Format("20060102_150405")
}

// Backup copies the current canonical file verbatim into a timestamp-named
// file in the backups directory. Backups are append-only and never modified
// after being written.
func (m *Manager) Backup() caddy.BackupResult {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return caddy.BackupResult{Success: false, Error: fmt.Sprintf("failed to read config: %v", err)}
	}

	id := backupID(time.Now())
	path := filepath.Join(m.backupsDir, id)

	// A second backup within the same second gets a suffixed id rather than
	// clobbering the existing snapshot.
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(m.backupsDir, fmt.Sprintf("%s_%d", id, i))
	}

	if err := os.WriteFile(path, data, 0444); err != nil {
		return caddy.BackupResult{Success: false, Error: fmt.Sprintf("failed to write backup: %v", err)}
	}

	m.logger.Info("Backed up Caddy configuration to %s", path)
	return caddy.BackupResult{BackupID: filepath.Base(path), Path: path, Success: true}
}

// Restore replaces the canonical file with the named backup. The backup's
// content is validated first; an invalid backup aborts with no write. On
// success the pre-restore state is itself backed up, so a bad restore stays
// recoverable.
func (m *Manager) Restore(backupIDOrPath string) caddy.RestoreResult {
	id := filepath.Base(backupIDOrPath)
	if !strings.HasPrefix(id, backupPrefix) {
		return caddy.RestoreResult{BackupID: id, Success: false, Error: "not a recognized backup id"}
	}

	data, err := os.ReadFile(filepath.Join(m.backupsDir, id))
	if err != nil {
		return caddy.RestoreResult{BackupID: id, Success: false, Error: fmt.Sprintf("failed to read backup: %v", err)}
	}

	if v := Validate(string(data)); !v.IsValid {
		return caddy.RestoreResult{
			BackupID: id,
			Success:  false,
			Error:    fmt.Sprintf("backup content is invalid: %s", strings.Join(v.Errors, "; ")),
		}
	}

	if res := m.Backup(); !res.Success {
		return caddy.RestoreResult{BackupID: id, Success: false, Error: fmt.Sprintf("failed to back up current config: %s", res.Error)}
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return caddy.RestoreResult{BackupID: id, Success: false, Error: fmt.Sprintf("failed to write config: %v", err)}
	}

	m.logger.Info("Restored Caddy configuration from %s", id)
	return caddy.RestoreResult{BackupID: id, Success: true}
}

// ListBackups enumerates stored backups, newest first.
func (m *Manager) ListBackups() ([]caddy.BackupInfo, error) {
	entries, err := os.ReadDir(m.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	var backups []caddy.BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, caddy.BackupInfo{
			BackupID:  entry.Name(),
			Path:      filepath.Join(m.backupsDir, entry.Name()),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Prune removes the oldest backups beyond keep. Used by the scheduled
// backup task.
func (m *Manager) Prune(keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("retention must be at least 1")
	}

	backups, err := m.ListBackups()
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[keep:] {
		if err := os.Remove(b.Path); err != nil {
			m.logger.Warn("Failed to prune backup %s: %v", b.BackupID, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("Pruned %d old config backups", removed)
	}
	return removed, nil
}
