// Package service composes the configuration manager, admin client, routes
// manager and health monitor behind one facade for external callers. It is
// pure composition; no independent logic lives here.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wakedock/wakeproxy/internal/admin"
	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/caddyfile"
	"github.com/wakedock/wakeproxy/internal/health"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/routes"
	"github.com/wakedock/wakeproxy/internal/tasks"
)

// Orchestrator supplies the list of running services on demand. The control
// plane never mutates orchestrator state.
type Orchestrator interface {
	ListServices(ctx context.Context) ([]caddy.ServiceDescriptor, error)
}

// ProxyService is the facade surface consumed by the platform's API layer.
type ProxyService interface {
	// Configuration
	GenerateConfig(ctx context.Context) (string, error)
	ReloadConfig(ctx context.Context) caddy.ReloadResult
	ValidateConfig(content string) caddy.ConfigValidation
	BackupConfig() caddy.BackupResult
	RestoreConfig(backupID string) caddy.RestoreResult
	ListBackups() ([]caddy.BackupInfo, error)
	GetCurrentConfig() (string, error)
	GetLiveConfig(ctx context.Context) (string, error)

	// Routes
	AddService(ctx context.Context, svc caddy.ServiceDescriptor) (caddy.Route, error)
	RemoveService(ctx context.Context, serviceID string) error
	UpdateService(ctx context.Context, svc caddy.ServiceDescriptor) (caddy.Route, error)
	SyncServices(ctx context.Context) (map[string]bool, error)
	ValidateDomain(domain string) routes.DomainValidation
	ListRoutes() []caddy.Route
	GetRouteByDomain(host string) (caddy.Route, bool)
	RouteStatuses(ctx context.Context) map[string]caddy.RouteState

	// Health
	CheckHealth(ctx context.Context) caddy.HealthStatus
	GetMetrics(ctx context.Context) (caddy.Metrics, error)
	Diagnose(ctx context.Context) caddy.DiagnosticReport
	GetHealthTrend(windowHours int) caddy.HealthTrend
	StartMonitoring(interval time.Duration) *tasks.HealthMonitorTask
}

type proxyService struct {
	configs      *caddyfile.Manager
	client       *admin.Client
	routes       *routes.Manager
	monitor      *health.Monitor
	orchestrator Orchestrator
	logger       *logging.Logger
}

// NewProxyService wires the four components and the orchestrator boundary
// into one facade.
func NewProxyService(
	configs *caddyfile.Manager,
	client *admin.Client,
	routesMgr *routes.Manager,
	monitor *health.Monitor,
	orchestrator Orchestrator,
) ProxyService {
	return &proxyService{
		configs:      configs,
		client:       client,
		routes:       routesMgr,
		monitor:      monitor,
		orchestrator: orchestrator,
		logger:       logging.GetGlobalLogger(),
	}
}

func (s *proxyService) GenerateConfig(ctx context.Context) (string, error) {
	services, err := s.orchestrator.ListServices(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list services: %w", err)
	}

	content, err := s.configs.Generate(services)
	if err != nil {
		return "", err
	}
	if err := s.configs.Save(content, false); err != nil {
		return "", err
	}
	return content, nil
}

func (s *proxyService) ReloadConfig(ctx context.Context) caddy.ReloadResult {
	content, err := s.configs.CurrentConfig()
	if err != nil {
		return caddy.ReloadResult{Success: false, Error: err.Error()}
	}
	return s.client.Reload(ctx, content)
}

func (s *proxyService) ValidateConfig(content string) caddy.ConfigValidation {
	return caddyfile.Validate(content)
}

func (s *proxyService) BackupConfig() caddy.BackupResult {
	return s.configs.Backup()
}

func (s *proxyService) RestoreConfig(backupID string) caddy.RestoreResult {
	return s.configs.Restore(backupID)
}

func (s *proxyService) ListBackups() ([]caddy.BackupInfo, error) {
	return s.configs.ListBackups()
}

func (s *proxyService) GetCurrentConfig() (string, error) {
	return s.configs.CurrentConfig()
}

func (s *proxyService) GetLiveConfig(ctx context.Context) (string, error) {
	return s.client.GetRawConfig(ctx)
}

func (s *proxyService) AddService(ctx context.Context, svc caddy.ServiceDescriptor) (caddy.Route, error) {
	return s.routes.AddService(ctx, svc)
}

func (s *proxyService) RemoveService(ctx context.Context, serviceID string) error {
	return s.routes.RemoveService(ctx, serviceID)
}

func (s *proxyService) UpdateService(ctx context.Context, svc caddy.ServiceDescriptor) (caddy.Route, error) {
	return s.routes.UpdateService(ctx, svc)
}

func (s *proxyService) SyncServices(ctx context.Context) (map[string]bool, error) {
	services, err := s.orchestrator.ListServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return s.routes.Sync(ctx, services), nil
}

func (s *proxyService) ValidateDomain(domain string) routes.DomainValidation {
	return s.routes.ValidateDomain(domain)
}

func (s *proxyService) ListRoutes() []caddy.Route {
	return s.routes.ListRoutes()
}

func (s *proxyService) GetRouteByDomain(host string) (caddy.Route, bool) {
	return s.routes.GetRouteByDomain(host)
}

func (s *proxyService) RouteStatuses(ctx context.Context) map[string]caddy.RouteState {
	return s.routes.RouteStatuses(ctx)
}

func (s *proxyService) CheckHealth(ctx context.Context) caddy.HealthStatus {
	return s.monitor.Check(ctx)
}

func (s *proxyService) GetMetrics(ctx context.Context) (caddy.Metrics, error) {
	return s.client.GetMetrics(ctx)
}

func (s *proxyService) Diagnose(ctx context.Context) caddy.DiagnosticReport {
	return s.monitor.Diagnose(ctx)
}

func (s *proxyService) GetHealthTrend(windowHours int) caddy.HealthTrend {
	return s.monitor.Trend(windowHours)
}

func (s *proxyService) StartMonitoring(interval time.Duration) *tasks.HealthMonitorTask {
	task := tasks.NewHealthMonitorTask(s.monitor, interval)
	task.Start()
	return task
}
