// Package routes keeps an in-memory route registry consistent with the
// desired state implied by the orchestrator's service list, validating
// domains before any remote call is made.
package routes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/metrics"
)

// AdminAPI is the slice of the admin client the routes manager depends on.
type AdminAPI interface {
	AddRoute(ctx context.Context, route caddy.RouteConfig) error
	RemoveRoute(ctx context.Context, routeID string) error
	GetConfig(ctx context.Context) (*caddy.Config, error)
	IsHealthy(ctx context.Context) bool
}

// defaultHeaders are injected into every proxied request.
var defaultHeaders = map[string]string{
	"X-Real-IP":         "{http.request.remote.host}",
	"X-Forwarded-For":   "{http.request.remote.host}",
	"X-Forwarded-Proto": "{http.request.scheme}",
}

// Manager owns the route registry. The registry is the source of truth; the
// proxy's state is a mirror that reconciliation pushes toward it.
type Manager struct {
	client    AdminAPI
	logger    *logging.Logger
	collector *metrics.Collector

	reserved map[string]struct{}
	eligible map[caddy.ServiceStatus]struct{}

	mu     sync.RWMutex
	routes map[string]caddy.Route // route id -> route
	hosts  map[string]string      // host -> route id

	// syncMu serializes reconciliation passes so concurrent syncs cannot
	// interleave additions and removals for the same route id.
	syncMu sync.Mutex
}

// Options configures a Manager. Empty sets fall back to the platform
// defaults.
type Options struct {
	ReservedDomains  []string
	EligibleStatuses []string
	Collector        *metrics.Collector
}

// NewManager creates a routes manager around the given admin client.
func NewManager(client AdminAPI, opts Options) *Manager {
	reservedList := opts.ReservedDomains
	if len(reservedList) == 0 {
		reservedList = caddy.DefaultReservedDomains
	}
	reserved := make(map[string]struct{}, len(reservedList))
	for _, d := range reservedList {
		reserved[strings.ToLower(d)] = struct{}{}
	}

	statusList := opts.EligibleStatuses
	if len(statusList) == 0 {
		statusList = []string{string(caddy.ServiceRunning)}
	}
	eligible := make(map[caddy.ServiceStatus]struct{}, len(statusList))
	for _, s := range statusList {
		eligible[caddy.ServiceStatus(s)] = struct{}{}
	}

	return &Manager{
		client:    client,
		logger:    logging.GetGlobalLogger(),
		collector: opts.Collector,
		reserved:  reserved,
		eligible:  eligible,
		routes:    make(map[string]caddy.Route),
		hosts:     make(map[string]string),
	}
}

// Eligible reports whether a service should yield a route: it must be in an
// eligible status, carry a domain, and the domain must not be reserved.
func (m *Manager) Eligible(svc caddy.ServiceDescriptor) bool {
	if _, ok := m.eligible[svc.Status]; !ok {
		return false
	}
	if svc.Domain == "" {
		return false
	}
	_, reserved := m.reserved[strings.ToLower(svc.Domain)]
	return !reserved
}

// buildRoute derives the registry route for a service.
func buildRoute(svc caddy.ServiceDescriptor) caddy.Route {
	headers := make(map[string]string, len(defaultHeaders))
	for k, v := range defaultHeaders {
		headers[k] = v
	}
	return caddy.Route{
		ID:       caddy.RouteID(svc.ID),
		Host:     svc.Domain,
		Upstream: caddy.FormatUpstream(svc.Name, svc.Port),
		Port:     svc.Port,
		Path:     "/",
		TLS:      true,
		Headers:  headers,
	}
}

// AddService validates the service's domain and pushes its route to the
// proxy. The route is registered locally only after the remote call
// succeeds; a validation failure performs zero remote calls.
func (m *Manager) AddService(ctx context.Context, svc caddy.ServiceDescriptor) (caddy.Route, error) {
	if !m.Eligible(svc) {
		return caddy.Route{}, fmt.Errorf("service %s is not eligible for routing", svc.ID)
	}

	route := buildRoute(svc)
	if v := m.validateDomainFor(svc.Domain, route.ID); !v.Valid {
		return caddy.Route{}, fmt.Errorf("invalid domain %q: %s", svc.Domain, strings.Join(v.Errors, "; "))
	}

	if err := m.client.AddRoute(ctx, caddy.BuildRouteConfig(route)); err != nil {
		if m.collector != nil {
			m.collector.RecordReconcileAction("add", false)
		}
		return caddy.Route{}, fmt.Errorf("failed to add route for %s: %w", svc.Domain, err)
	}

	m.mu.Lock()
	m.routes[route.ID] = route
	m.hosts[route.Host] = route.ID
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordReconcileAction("add", true)
	}
	return route, nil
}

// RemoveService removes the service's route remotely and deregisters it.
// An already-absent remote route counts as success; any other remote
// failure leaves the registry untouched.
func (m *Manager) RemoveService(ctx context.Context, serviceID string) error {
	routeID := caddy.RouteID(serviceID)

	m.mu.RLock()
	route, known := m.routes[routeID]
	m.mu.RUnlock()
	if !known {
		return nil
	}

	if err := m.client.RemoveRoute(ctx, routeID); err != nil {
		if m.collector != nil {
			m.collector.RecordReconcileAction("remove", false)
		}
		return fmt.Errorf("failed to remove route %s: %w", routeID, err)
	}

	m.mu.Lock()
	delete(m.routes, routeID)
	delete(m.hosts, route.Host)
	m.mu.Unlock()

	if m.collector != nil {
		m.collector.RecordReconcileAction("remove", true)
	}
	return nil
}

// UpdateService replaces a service's route: the old route is removed first,
// then the new one added, so a changed domain or port takes effect.
func (m *Manager) UpdateService(ctx context.Context, svc caddy.ServiceDescriptor) (caddy.Route, error) {
	if err := m.RemoveService(ctx, svc.ID); err != nil {
		return caddy.Route{}, err
	}
	return m.AddService(ctx, svc)
}

// Sync reconciles the registry against the supplied service list. Missing
// routes are added, orphaned routes removed. The returned map reports
// per-route-id success; partial failure is reported, never retried here —
// callers decide whether to re-run the pass.
func (m *Manager) Sync(ctx context.Context, services []caddy.ServiceDescriptor) map[string]bool {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	expected := make(map[string]caddy.ServiceDescriptor)
	for _, svc := range services {
		if m.Eligible(svc) {
			expected[caddy.RouteID(svc.ID)] = svc
		}
	}

	m.mu.RLock()
	current := make(map[string]struct{}, len(m.routes))
	for id := range m.routes {
		current[id] = struct{}{}
	}
	m.mu.RUnlock()

	results := make(map[string]bool)

	for id, svc := range expected {
		if _, exists := current[id]; exists {
			continue
		}
		if _, err := m.AddService(ctx, svc); err != nil {
			m.logger.Warn("Sync: failed to add route %s: %v", id, err)
			results[id] = false
			continue
		}
		results[id] = true
	}

	for id := range current {
		if _, wanted := expected[id]; wanted {
			continue
		}
		serviceID := strings.TrimPrefix(id, caddy.RoutePrefix)
		if err := m.RemoveService(ctx, serviceID); err != nil {
			m.logger.Warn("Sync: failed to remove route %s: %v", id, err)
			results[id] = false
			continue
		}
		results[id] = true
	}

	return results
}

// ListRoutes returns a stable-ordered snapshot of the registry.
func (m *Manager) ListRoutes() []caddy.Route {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]caddy.Route, 0, len(m.routes))
	for _, r := range m.routes {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// GetRouteByDomain looks up the active route for a host.
func (m *Manager) GetRouteByDomain(host string) (caddy.Route, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.hosts[host]
	if !ok {
		return caddy.Route{}, false
	}
	return m.routes[id], true
}

// RouteStatuses cross-references the registry against the hosts present in
// the proxy's live configuration. This is best-effort observability: it can
// race with concurrent remote reloads and must not be treated as a
// consistency guarantee.
func (m *Manager) RouteStatuses(ctx context.Context) map[string]caddy.RouteState {
	statuses := make(map[string]caddy.RouteState)

	cfg, err := m.client.GetConfig(ctx)
	if err != nil {
		m.logger.Warn("Route status check: failed to fetch live config: %v", err)
		m.mu.RLock()
		for id := range m.routes {
			statuses[id] = caddy.RouteError
		}
		m.mu.RUnlock()
		return statuses
	}

	live := make(map[string]struct{})
	for _, host := range cfg.Hosts() {
		live[host] = struct{}{}
	}

	m.mu.RLock()
	for id, route := range m.routes {
		if _, present := live[route.Host]; present {
			statuses[id] = caddy.RouteActive
		} else {
			statuses[id] = caddy.RouteInactive
		}
	}
	m.mu.RUnlock()

	return statuses
}

// validateDomainFor is ValidateDomain with the uniqueness check scoped to
// routes other than selfID, so re-adding a service's own domain passes.
func (m *Manager) validateDomainFor(domain, selfID string) DomainValidation {
	v := m.ValidateDomain(domain)
	if v.Valid || selfID == "" {
		return v
	}

	m.mu.RLock()
	owner, taken := m.hosts[domain]
	m.mu.RUnlock()
	if taken && owner == selfID {
		// The only failure may have been the self-conflict; re-run the pure
		// checks without it.
		filtered := v.Errors[:0]
		for _, e := range v.Errors {
			if !strings.Contains(e, "already in use") {
				filtered = append(filtered, e)
			}
		}
		v.Errors = filtered
		v.Valid = len(filtered) == 0
	}
	return v
}
