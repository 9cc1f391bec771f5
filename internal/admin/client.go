// Package admin is the HTTP client for Caddy's administrative endpoint. It
// owns the retry, backoff and timeout policy for every remote operation the
// control plane performs.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wakedock/wakeproxy/internal/caddy"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/metrics"

	"golang.org/x/time/rate"
)

const (
	routesEndpoint = "/config/apps/http/servers/srv0/routes"

	defaultConnectTimeout = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryDelay     = time.Second
)

// Client talks to Caddy's admin API. It holds no shared mutable state beyond
// the connection pool and is safe for concurrent use without locking.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *logging.Logger
	collector  *metrics.Collector
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL        string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	RateLimit      float64 // requests per second, 0 disables
	Collector      *metrics.Collector
}

// NewClient creates an admin API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = caddy.DefaultAdminAPI
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = defaultRetryAttempts
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.RequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.ConnectTimeout,
				}).DialContext,
			},
		},
		attempts:   opts.RetryAttempts,
		retryDelay: opts.RetryDelay,
		limiter:    limiter,
		logger:     logging.GetGlobalLogger(),
		collector:  opts.Collector,
	}
}

// do sends a request with the uniform retry policy: transient transport
// failures are retried up to the attempt budget with linearly increasing
// backoff; HTTP-level rejections are never retried.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, contentType string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if c.collector != nil {
				c.collector.RecordAdminRetry()
			}
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("Admin API %s attempt %d/%d failed: %v", op, attempt, c.attempts, err)
			continue
		}

		if resp.StatusCode >= 400 {
			defer resp.Body.Close()
			respBody, _ := io.ReadAll(resp.Body)
			if c.collector != nil {
				c.collector.RecordAdminRequest(op, false)
			}
			return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if c.collector != nil {
			c.collector.RecordAdminRequest(op, true)
		}
		return resp, nil
	}

	if c.collector != nil {
		c.collector.RecordAdminRequest(op, false)
	}
	return nil, &TransientError{Op: op, Attempts: c.attempts, Err: lastErr}
}

// IsHealthy is a cheap liveness probe against the config endpoint. It does
// not retry.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/config/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// GetConfig fetches and decodes the proxy's live configuration tree.
func (c *Client) GetConfig(ctx context.Context) (*caddy.Config, error) {
	resp, err := c.do(ctx, "get_config", http.MethodGet, "/config/", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cfg caddy.Config
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// GetRawConfig fetches the live configuration as unparsed JSON text.
func (c *Client) GetRawConfig(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, "get_config", http.MethodGet, "/config/", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return string(body), nil
}

// Reload pushes a Caddyfile to the proxy via POST /load. The result is
// always populated, including duration on failure.
func (c *Client) Reload(ctx context.Context, configText string) caddy.ReloadResult {
	start := time.Now()
	resp, err := c.do(ctx, "reload", http.MethodPost, "/load", []byte(configText), "text/caddyfile")
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return caddy.ReloadResult{Success: false, DurationMs: elapsed, Error: err.Error()}
	}
	resp.Body.Close()
	c.logger.Info("Successfully reloaded Caddy configuration (%dms)", elapsed)
	return caddy.ReloadResult{Success: true, DurationMs: elapsed}
}

// ValidateSyntax asks the proxy to adapt a Caddyfile without applying it,
// which checks the syntax remotely.
func (c *Client) ValidateSyntax(ctx context.Context, configText string) error {
	resp, err := c.do(ctx, "adapt", http.MethodPost, "/adapt", []byte(configText), "text/caddyfile")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// AddRoute appends a route to the proxy's srv0 route list.
func (c *Client) AddRoute(ctx context.Context, route caddy.RouteConfig) error {
	payload, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}

	resp, err := c.do(ctx, "add_route", http.MethodPost, routesEndpoint, payload, "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	c.logger.Info("Successfully configured route %s (%s)", route.ID, firstHost(route))
	return nil
}

// RemoveRoute deletes a route by id. An already-absent route is treated as
// success so removal stays idempotent.
func (c *Client) RemoveRoute(ctx context.Context, routeID string) error {
	resp, err := c.do(ctx, "remove_route", http.MethodDelete, routesEndpoint+"/@"+routeID, nil, "")
	if err != nil {
		var remote *RemoteError
		if AsRemoteError(err, &remote) && remote.StatusCode == http.StatusNotFound {
			c.logger.Debug("Route %s already absent from proxy", routeID)
			return nil
		}
		return err
	}
	resp.Body.Close()
	c.logger.Info("Successfully removed route %s", routeID)
	return nil
}

// GetStatus summarizes the proxy's state: it walks the configuration tree to
// count active routes and best-effort extracts a version string. It never
// returns an error; failures degrade to an unhealthy or unknown status.
func (c *Client) GetStatus(ctx context.Context) caddy.HealthStatus {
	status := caddy.HealthStatus{
		Status:    caddy.Unhealthy,
		Version:   c.Version(ctx),
		CheckedAt: time.Now(),
	}

	cfg, err := c.GetConfig(ctx)
	if err != nil {
		status.Errors = append(status.Errors, err.Error())
		return status
	}

	status.Status = caddy.Healthy
	status.ActiveRoutes = cfg.RouteCount()
	return status
}

// Version extracts the proxy's version from response headers on a
// best-effort probe. It cannot fail; any problem yields "unknown".
func (c *Client) Version(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse_proxy/upstreams", nil)
	if err != nil {
		return "unknown"
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "unknown"
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	server := resp.Header.Get("Server")
	if server == "" {
		return "unknown"
	}
	// Typically "Caddy/v2.x.y" or just "Caddy".
	if idx := strings.IndexByte(server, '/'); idx >= 0 && idx+1 < len(server) {
		return server[idx+1:]
	}
	return server
}

// GetMetrics scrapes the proxy's metrics endpoint and distills the counters
// the health monitor consumes. The blob's format is opaque beyond
// line-prefix scanning; route count comes from the config tree.
func (c *Client) GetMetrics(ctx context.Context) (caddy.Metrics, error) {
	var m caddy.Metrics

	resp, err := c.do(ctx, "get_metrics", http.MethodGet, "/metrics", nil, "")
	if err != nil {
		return m, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return m, fmt.Errorf("failed to read metrics: %w", err)
	}
	m = parseMetrics(string(body))

	if cfg, err := c.GetConfig(ctx); err == nil {
		m.ActiveRoutes = cfg.RouteCount()
	}
	return m, nil
}

func firstHost(route caddy.RouteConfig) string {
	for _, match := range route.Match {
		if len(match.Host) > 0 {
			return match.Host[0]
		}
	}
	return ""
}
