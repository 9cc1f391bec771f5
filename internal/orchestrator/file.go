// Package orchestrator provides adapters for the service-list boundary.
// The real container orchestrator lives elsewhere in the platform; the file
// adapter lets operators and tests drive the control plane from a manifest.
package orchestrator

import (
	"context"
	"fmt"
	"os"

	"github.com/wakedock/wakeproxy/internal/caddy"

	"gopkg.in/yaml.v3"
)

// FileOrchestrator reads service descriptors from a YAML manifest on every
// call, so edits are picked up without restarting.
type FileOrchestrator struct {
	path string
}

// NewFileOrchestrator creates a manifest-backed orchestrator.
func NewFileOrchestrator(path string) *FileOrchestrator {
	return &FileOrchestrator{path: path}
}

type manifest struct {
	Services []caddy.ServiceDescriptor `yaml:"services"`
}

// ListServices loads the manifest and returns its services.
func (o *FileOrchestrator) ListServices(ctx context.Context) ([]caddy.ServiceDescriptor, error) {
	data, err := os.ReadFile(o.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read services manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse services manifest: %w", err)
	}
	return m.Services, nil
}

// Static is a fixed-list orchestrator, mainly for tests and dry runs.
type Static []caddy.ServiceDescriptor

// ListServices returns the fixed list.
func (s Static) ListServices(ctx context.Context) ([]caddy.ServiceDescriptor, error) {
	return []caddy.ServiceDescriptor(s), nil
}
