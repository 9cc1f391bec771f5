package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wakedock/wakeproxy/internal/caddy"
)

func TestFileOrchestrator(t *testing.T) {
	manifest := `services:
  - id: "42"
    name: shop
    domain: shop.example.com
    status: running
    port: 8080
  - id: "43"
    name: worker
    status: stopped
    port: 9000
`
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0644))

	o := NewFileOrchestrator(path)
	services, err := o.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)

	require.Equal(t, "42", services[0].ID)
	require.Equal(t, "shop.example.com", services[0].Domain)
	require.Equal(t, caddy.ServiceRunning, services[0].Status)
	require.Equal(t, 8080, services[0].Port)
	require.Equal(t, caddy.ServiceStopped, services[1].Status)
}

func TestFileOrchestratorMissingFile(t *testing.T) {
	o := NewFileOrchestrator(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := o.ListServices(context.Background())
	require.Error(t, err)
}

func TestStaticOrchestrator(t *testing.T) {
	s := Static{{ID: "1", Name: "a", Status: caddy.ServiceRunning, Port: 80}}
	services, err := s.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 1)
}
