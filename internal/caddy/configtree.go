package caddy

import "fmt"

// Config is the subset of Caddy's JSON configuration tree this control plane
// inspects and produces. Unknown fields are ignored on decode; the tree is
// validated at the I/O boundary instead of walking untyped maps.
type Config struct {
	Admin *AdminConfig `json:"admin,omitempty"`
	Apps  *Apps        `json:"apps,omitempty"`
}

// AdminConfig mirrors Caddy's admin endpoint settings.
type AdminConfig struct {
	Listen string `json:"listen,omitempty"`
}

// Apps holds the application modules we care about.
type Apps struct {
	HTTP *HTTPApp `json:"http,omitempty"`
}

// HTTPApp is Caddy's HTTP app: a set of named servers.
type HTTPApp struct {
	Servers map[string]*Server `json:"servers,omitempty"`
}

// Server is one HTTP server block.
type Server struct {
	Listen []string      `json:"listen,omitempty"`
	Routes []RouteConfig `json:"routes,omitempty"`
}

// RouteConfig is one route entry inside a server.
type RouteConfig struct {
	ID       string    `json:"@id,omitempty"`
	Match    []Match   `json:"match,omitempty"`
	Handle   []Handler `json:"handle,omitempty"`
	Terminal bool      `json:"terminal,omitempty"`
}

// Match selects requests by host.
type Match struct {
	Host []string `json:"host,omitempty"`
}

// Handler is a route handler. Only the reverse_proxy fields used by this
// control plane are modeled.
type Handler struct {
	Handler   string          `json:"handler"`
	Upstreams []Upstream      `json:"upstreams,omitempty"`
	Headers   *HeaderOps      `json:"headers,omitempty"`
	Transport *TransportProto `json:"transport,omitempty"`
}

// Upstream is a reverse-proxy dial target.
type Upstream struct {
	Dial string `json:"dial"`
}

// TransportProto selects the upstream transport protocol.
type TransportProto struct {
	Protocol string `json:"protocol,omitempty"`
}

// HeaderOps carries request/response header mutations.
type HeaderOps struct {
	Request  *HeaderSet `json:"request,omitempty"`
	Response *HeaderSet `json:"response,omitempty"`
}

// HeaderSet sets header fields to fixed values.
type HeaderSet struct {
	Set map[string][]string `json:"set,omitempty"`
}

// HasHTTPApp reports whether the tree contains an HTTP app.
func (c *Config) HasHTTPApp() bool {
	return c != nil && c.Apps != nil && c.Apps.HTTP != nil
}

// ServerCount returns the number of HTTP servers in the tree.
func (c *Config) ServerCount() int {
	if !c.HasHTTPApp() {
		return 0
	}
	return len(c.Apps.HTTP.Servers)
}

// RouteCount walks apps→http→servers→routes and counts every route.
func (c *Config) RouteCount() int {
	if !c.HasHTTPApp() {
		return 0
	}
	n := 0
	for _, srv := range c.Apps.HTTP.Servers {
		if srv != nil {
			n += len(srv.Routes)
		}
	}
	return n
}

// Hosts returns every host matched by any route in the tree. Used to
// cross-reference the local registry against live proxy state.
func (c *Config) Hosts() []string {
	if !c.HasHTTPApp() {
		return nil
	}
	var hosts []string
	for _, srv := range c.Apps.HTTP.Servers {
		if srv == nil {
			continue
		}
		for _, rt := range srv.Routes {
			for _, m := range rt.Match {
				hosts = append(hosts, m.Host...)
			}
		}
	}
	return hosts
}

// BuildRouteConfig renders a registry Route as the JSON route entry pushed
// to the proxy: host match, reverse_proxy handler and injected headers.
func BuildRouteConfig(r Route) RouteConfig {
	set := make(map[string][]string, len(r.Headers)+1)
	set["Host"] = []string{r.Host}
	for k, v := range r.Headers {
		set[k] = []string{v}
	}

	return RouteConfig{
		ID: r.ID,
		Match: []Match{
			{Host: []string{r.Host}},
		},
		Handle: []Handler{
			{
				Handler:   "reverse_proxy",
				Upstreams: []Upstream{{Dial: r.Upstream}},
				Transport: &TransportProto{Protocol: "http"},
				Headers: &HeaderOps{
					Request: &HeaderSet{Set: set},
				},
			},
		},
		Terminal: true,
	}
}

// FormatUpstream builds the dial address for a service backend.
func FormatUpstream(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
