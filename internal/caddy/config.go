// Package caddy holds the domain model shared by the proxy control plane:
// route and service records, health/diagnostic reports and the typed subset
// of Caddy's JSON configuration tree.
package caddy

const (
	// DefaultAdminAPI is the default base URL of Caddy's admin endpoint.
	DefaultAdminAPI = "http://localhost:2019"

	// DefaultConfigFile is the canonical Caddyfile name inside the selected
	// config directory.
	DefaultConfigFile = "Caddyfile"

	// TemplatesDir and BackupsDir are siblings of the canonical config file.
	TemplatesDir = "templates"
	BackupsDir   = "backups"
)

// DefaultConfigDirs is the ordered list of candidate config directories
// probed at startup. The first creatable and writable one wins; a temporary
// directory is the fallback when none succeed.
var DefaultConfigDirs = []string{
	"/etc/caddy",
	"/var/lib/wakeproxy/caddy",
}

// DefaultReservedDomains are hostnames that never become public routes.
// Deployments may override the set through configuration.
var DefaultReservedDomains = []string{
	"localhost",
	"wakedock",
	"caddy",
	"postgres",
	"redis",
	"admin",
	"api",
	"www",
	"mail",
	"ftp",
}
