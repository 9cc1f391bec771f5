// Package caddyfile owns the canonical on-disk Caddy configuration: path
// selection, bootstrap, generation from a service list, pure validation and
// versioned backup/restore.
package caddyfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
)

// Manager owns the canonical config file and its sibling templates/ and
// backups/ directories. Path selection runs once at construction and the
// manager never relocates afterward.
type Manager struct {
	configPath   string
	templatesDir string
	backupsDir   string
	logger       *logging.Logger
}

// Options configures a Manager.
type Options struct {
	// CandidateDirs is probed in order; the first creatable and writable
	// directory wins. Empty falls back to caddy.DefaultConfigDirs.
	CandidateDirs []string
}

// NewManager selects the config directory, creates the sibling directories
// and bootstraps a minimal safe config when the canonical file is missing.
func NewManager(opts Options) (*Manager, error) {
	logger := logging.GetGlobalLogger()

	dirs := opts.CandidateDirs
	if len(dirs) == 0 {
		dirs = caddy.DefaultConfigDirs
	}

	dir, err := selectWritableDir(dirs)
	if err != nil {
		// Last resort: a temporary location.
		dir, err = os.MkdirTemp("", "wakeproxy-caddy-")
		if err != nil {
			return nil, fmt.Errorf("no writable config directory: %w", err)
		}
		logger.Warn("No candidate config directory writable, using temporary location %s", dir)
	}

	m := &Manager{
		configPath:   filepath.Join(dir, caddy.DefaultConfigFile),
		templatesDir: filepath.Join(dir, caddy.TemplatesDir),
		backupsDir:   filepath.Join(dir, caddy.BackupsDir),
		logger:       logger,
	}

	for _, d := range []string{m.templatesDir, m.backupsDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	if err := m.bootstrap(); err != nil {
		return nil, err
	}

	logger.Info("Caddy configuration managed at %s", m.configPath)
	return m, nil
}

// selectWritableDir returns the first candidate that can be created and
// written to.
func selectWritableDir(candidates []string) (string, error) {
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0755); err != nil {
			continue
		}
		probe := filepath.Join(dir, ".wakeproxy-probe")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			continue
		}
		os.Remove(probe)
		return dir, nil
	}
	return "", fmt.Errorf("none of %d candidate directories are writable", len(candidates))
}

// bootstrap writes the minimal safe default config when the canonical file
// is missing. A directory at the config path is a repair-on-start condition:
// it is removed and replaced by the default file.
func (m *Manager) bootstrap() error {
	info, err := os.Stat(m.configPath)
	switch {
	case err == nil && info.IsDir():
		m.logger.Warn("Config path %s is a directory, repairing with default config", m.configPath)
		if err := os.RemoveAll(m.configPath); err != nil {
			return fmt.Errorf("failed to remove directory at config path: %w", err)
		}
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to stat config path: %w", err)
	}

	if err := os.WriteFile(m.configPath, []byte(defaultMinimalConfig), 0644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	m.logger.Info("Wrote default Caddy configuration to %s", m.configPath)
	return nil
}

// ConfigPath returns the canonical config file location.
func (m *Manager) ConfigPath() string {
	return m.configPath
}

// CurrentConfig reads the canonical config file.
func (m *Manager) CurrentConfig() (string, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return string(data), nil
}

// Save validates the candidate (unless skipValidation), backs up the
// current file and writes the new content. An invalid candidate never
// reaches disk.
func (m *Manager) Save(content string, skipValidation bool) error {
	if !skipValidation {
		if v := Validate(content); !v.IsValid {
			return fmt.Errorf("refusing to save invalid config: %v", v.Errors)
		}
	}

	if res := m.Backup(); !res.Success {
		return fmt.Errorf("failed to back up current config: %s", res.Error)
	}

	if err := os.WriteFile(m.configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	m.logger.Info("Saved Caddy configuration (%d bytes)", len(content))
	return nil
}
