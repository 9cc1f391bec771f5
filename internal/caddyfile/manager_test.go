package caddyfile

import (
	"os"
	"path/filepath"
	"strings"
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

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	initTestLogger(t)
	m, err := NewManager(Options{CandidateDirs: []string{t.TempDir()}})
	require.NoError(t, err)
	return m
}

const validConfigV1 = "{\n\tadmin localhost:2019\n}\n:80 {\n\trespond \"v1\" 200\n}\n"
const validConfigV2 = "{\n\tadmin localhost:2019\n}\n:80 {\n\trespond \"v2\" 200\n}\n"

func TestNewManagerBootstrapsDefaultConfig(t *testing.T) {
	m := newTestManager(t)

	content, err := m.CurrentConfig()
	require.NoError(t, err)
	require.Contains(t, content, "admin")
	require.Contains(t, content, ":80")
	require.True(t, Validate(content).IsValid)
}

func TestNewManagerRepairsDirectoryAtConfigPath(t *testing.T) {
	initTestLogger(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, caddy.DefaultConfigFile), 0755))

	m, err := NewManager(Options{CandidateDirs: []string{dir}})
	require.NoError(t, err)

	info, err := os.Stat(m.ConfigPath())
	require.NoError(t, err)
	require.False(t, info.IsDir())
}

func TestNewManagerFallsThroughUnwritableCandidates(t *testing.T) {
	initTestLogger(t)
	writable := t.TempDir()
	m, err := NewManager(Options{CandidateDirs: []string{"/proc/no-such-place", writable}})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(writable, caddy.DefaultConfigFile), m.ConfigPath())
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	m := newTestManager(t)
	before, err := m.CurrentConfig()
	require.NoError(t, err)

	err = m.Save("{ unmatched", false)
	require.Error(t, err)

	after, err := m.CurrentConfig()
	require.NoError(t, err)
	require.Equal(t, before, after, "invalid config must never reach disk")
}

func TestSaveBacksUpBeforeWriting(t *testing.T) {
	m := newTestManager(t)
	original, err := m.CurrentConfig()
	require.NoError(t, err)

	require.NoError(t, m.Save(validConfigV1, false))

	backups, err := m.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)

	data, err := os.ReadFile(backups[0].Path)
	require.NoError(t, err)
	require.Equal(t, original, string(data))
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Save(validConfigV1, false))

	res := m.Backup()
	require.True(t, res.Success, res.Error)
	require.True(t, strings.HasPrefix(res.BackupID, "caddyfile_backup_"))

	// Restore without any intervening save: content must be byte-identical.
	restore := m.Restore(res.BackupID)
	require.True(t, restore.Success, restore.Error)

	content, err := m.CurrentConfig()
	require.NoError(t, err)
	require.Equal(t, validConfigV1, content)
}

func TestRestoreRevertsASave(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Save(validConfigV1, false))

	res := m.Backup()
	require.True(t, res.Success)

	require.NoError(t, m.Save(validConfigV2, false))

	restore := m.Restore(res.BackupID)
	require.True(t, restore.Success, restore.Error)

	content, err := m.CurrentConfig()
	require.NoError(t, err)
	require.Equal(t, validConfigV1, content)
}

func TestRestoreRejectsInvalidBackup(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Save(validConfigV1, false))

	// Plant a corrupt backup by hand.
	bad := filepath.Join(filepath.Dir(m.ConfigPath()), caddy.BackupsDir, "caddyfile_backup_19990101_000000")
	require.NoError(t, os.WriteFile(bad, []byte("{ unmatched"), 0444))

	restore := m.Restore("caddyfile_backup_19990101_000000")
	require.False(t, restore.Success)
	require.Contains(t, restore.Error, "invalid")

	// Canonical file untouched.
	content, err := m.CurrentConfig()
	require.NoError(t, err)
	require.Equal(t, validConfigV1, content)
}

func TestRestoreUnknownIDFails(t *testing.T) {
	m := newTestManager(t)
	restore := m.Restore("not_a_backup")
	require.False(t, restore.Success)
}

func TestListBackupsNewestFirst(t *testing.T) {
	m := newTestManager(t)

	dir := filepath.Join(filepath.Dir(m.ConfigPath()), caddy.BackupsDir)
	older := filepath.Join(dir, "caddyfile_backup_20200101_000000")
	newer := filepath.Join(dir, "caddyfile_backup_20250101_000000")
	require.NoError(t, os.WriteFile(older, []byte(validConfigV1), 0444))
	require.NoError(t, os.WriteFile(newer, []byte(validConfigV2), 0444))
	require.NoError(t, os.Chtimes(older, time.Now().Add(-2*time.Hour), time.Now().Add(-2*time.Hour)))
	require.NoError(t, os.Chtimes(newer, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))

	backups, err := m.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	require.Equal(t, "caddyfile_backup_20250101_000000", backups[0].BackupID)
}

func TestPruneKeepsNewest(t *testing.T) {
	m := newTestManager(t)

	dir := filepath.Join(filepath.Dir(m.ConfigPath()), caddy.BackupsDir)
	base := time.Now().Add(-10 * time.Hour)
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, backupID(base.Add(time.Duration(i)*time.Hour)))
		require.NoError(t, os.WriteFile(path, []byte(validConfigV1), 0444))
		require.NoError(t, os.Chtimes(path, base.Add(time.Duration(i)*time.Hour), base.Add(time.Duration(i)*time.Hour)))
	}

	removed, err := m.Prune(2)
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	backups, err := m.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
}

func TestGenerateBindsEligibleServicesOnly(t *testing.T) {
	m := newTestManager(t)

	services := []caddy.ServiceDescriptor{
		{ID: "1", Name: "shop", Domain: "shop.example.com", Status: caddy.ServiceRunning, Port: 8080},
		{ID: "2", Name: "blog", Domain: "", Status: caddy.ServiceRunning, Port: 8081},
		{ID: "3", Name: "old", Domain: "old.example.com", Status: caddy.ServiceStopped, Port: 8082},
	}

	content, err := m.Generate(services)
	require.NoError(t, err)

	require.Contains(t, content, "shop.example.com")
	require.Contains(t, content, "reverse_proxy shop:8080")
	require.Contains(t, content, "X-Frame-Options")
	require.Contains(t, content, "X-Content-Type-Options")
	require.Contains(t, content, "X-XSS-Protection")
	require.NotContains(t, content, "old.example.com")
	require.NotContains(t, content, "blog")

	require.True(t, Validate(content).IsValid)
}

func TestGenerateUsesOverrideTemplate(t *testing.T) {
	m := newTestManager(t)

	override := filepath.Join(filepath.Dir(m.ConfigPath()), caddy.TemplatesDir, overrideTemplateName)
	require.NoError(t, os.WriteFile(override, []byte("custom {{ range .Services }}{{ .Domain }} {{ end }}"), 0644))

	content, err := m.Generate([]caddy.ServiceDescriptor{
		{ID: "1", Name: "shop", Domain: "shop.example.com", Status: caddy.ServiceRunning, Port: 8080},
	})
	require.NoError(t, err)
	require.Contains(t, content, "custom shop.example.com")
}
