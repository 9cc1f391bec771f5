package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
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

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	initTestLogger(t)
	return NewClient(Options{
		BaseURL:        baseURL,
		ConnectTimeout: 200 * time.Millisecond,
		RequestTimeout: 100 * time.Millisecond,
		RetryAttempts:  3,
		RetryDelay:     20 * time.Millisecond,
	})
}

const liveConfigJSON = `{
	"admin": {"listen": "localhost:2019"},
	"apps": {"http": {"servers": {"srv0": {
		"listen": [":80", ":443"],
		"routes": [
			{"@id": "service_1", "match": [{"host": ["a.example.com"]}]},
			{"@id": "service_2", "match": [{"host": ["b.example.com"]}]}
		]
	}}}}
}`

func TestRetryBoundOnTimeouts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		time.Sleep(500 * time.Millisecond) // beyond the client's total timeout
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	start := time.Now()
	_, err := c.GetConfig(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	require.True(t, IsTransient(err), "expected a transient failure, got %v", err)
	require.Equal(t, int32(3), atomic.LoadInt32(&hits), "exactly 3 attempts expected")

	// Linear backoff: waits of 1x and 2x the base delay between attempts.
	require.GreaterOrEqual(t, elapsed, 3*100*time.Millisecond+60*time.Millisecond)
}

func TestRemoteRejectionIsNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	err := c.AddRoute(context.Background(), caddy.RouteConfig{ID: "service_1"})
	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&hits), "remote rejections must not be retried")

	var remote *RemoteError
	require.True(t, AsRemoteError(err, &remote))
	require.Equal(t, http.StatusBadRequest, remote.StatusCode)
}

func TestAddRoutePostsToRoutesEndpoint(t *testing.T) {
	var gotPath string
	var gotRoute caddy.RouteConfig
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotRoute)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	route := caddy.BuildRouteConfig(caddy.Route{
		ID:       "service_42",
		Host:     "shop.example.com",
		Upstream: "shop:8080",
		Headers:  map[string]string{"X-Real-IP": "{http.request.remote.host}"},
	})
	require.NoError(t, c.AddRoute(context.Background(), route))

	require.Equal(t, "/config/apps/http/servers/srv0/routes", gotPath)
	require.Equal(t, "service_42", gotRoute.ID)
	require.Equal(t, []string{"shop.example.com"}, gotRoute.Match[0].Host)
	require.Equal(t, "reverse_proxy", gotRoute.Handle[0].Handler)
	require.Equal(t, "shop:8080", gotRoute.Handle[0].Upstreams[0].Dial)
	require.True(t, gotRoute.Terminal)
}

func TestRemoveRouteTreatsAbsentAsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		http.Error(w, "unknown object", http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	require.NoError(t, c.RemoveRoute(context.Background(), "service_gone"))
}

func TestGetStatusCountsRoutesAndNeverFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "Caddy/v2.8.4")
		if r.URL.Path == "/config/" {
			w.Write([]byte(liveConfigJSON))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	status := c.GetStatus(context.Background())

	require.Equal(t, caddy.Healthy, status.Status)
	require.Equal(t, 2, status.ActiveRoutes)
	require.Equal(t, "v2.8.4", status.Version)
}

func TestGetStatusUnreachableProxy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	c := newTestClient(t, server.URL)
	status := c.GetStatus(context.Background())

	require.Equal(t, caddy.Unhealthy, status.Status)
	require.Equal(t, "unknown", status.Version)
	require.NotEmpty(t, status.Errors)
}

func TestVersionDefaultsToUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Server header at all.
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	require.Equal(t, "unknown", c.Version(context.Background()))
}

func TestIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	c := newTestClient(t, server.URL)
	require.True(t, c.IsHealthy(context.Background()))

	server.Close()
	require.False(t, c.IsHealthy(context.Background()))
}

func TestReloadReportsDurationOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "adapt error", http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	res := c.Reload(context.Background(), ":80 {\n}\n")

	require.False(t, res.Success)
	require.NotEmpty(t, res.Error)
	require.GreaterOrEqual(t, res.DurationMs, int64(0))
}

func TestReloadSuccess(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/load", r.URL.Path)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	res := c.Reload(context.Background(), ":80 {\n}\n")

	require.True(t, res.Success)
	require.Equal(t, "text/caddyfile", gotContentType)
}

func TestGetMetricsParsesBlob(t *testing.T) {
	blob := `# HELP caddy metrics
caddy_http_requests_per_minute 120.5
caddy_http_response_duration_ms_avg{server="srv0"} 45.2
caddy_http_error_rate_percent 1.5
caddy_admin_uptime_seconds 3600
process_memory_usage_percent 42.0
process_cpu_usage_percent 12.5
garbage line without value x
`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			w.Write([]byte(blob))
		case "/config/":
			w.Write([]byte(liveConfigJSON))
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	m, err := c.GetMetrics(context.Background())
	require.NoError(t, err)

	require.Equal(t, 120.5, m.RequestsPerMinute)
	require.Equal(t, 45.2, m.ResponseTimeAvgMs)
	require.Equal(t, 1.5, m.ErrorRatePercent)
	require.Equal(t, 3600.0, m.UptimeSeconds)
	require.Equal(t, 42.0, m.MemoryUsagePercent)
	require.Equal(t, 12.5, m.CPUUsagePercent)
	require.Equal(t, 2, m.ActiveRoutes)
}
