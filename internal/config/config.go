package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the proxy control plane. Values come
// from an optional YAML file, overridden by environment variables, with
// programmatic defaults filling the rest.
type Config struct {
	// Server Configuration
	Environment string `env:"ENV" yaml:"environment"`
	LogLevel    string `env:"LOG_LEVEL" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFile     string `env:"LOG_FILE" yaml:"log_file"`

	// Caddy Configuration
	CaddyAdminAPI  string        `env:"CADDY_ADMIN_API" yaml:"caddy_admin_api" validate:"url"`
	ConnectTimeout time.Duration `env:"CADDY_CONNECT_TIMEOUT" yaml:"connect_timeout"`
	RequestTimeout time.Duration `env:"CADDY_REQUEST_TIMEOUT" yaml:"request_timeout"`
	RetryAttempts  int           `env:"CADDY_RETRY_ATTEMPTS" yaml:"retry_attempts" validate:"min=1"`
	RetryDelay     time.Duration `env:"CADDY_RETRY_DELAY" yaml:"retry_delay"`
	AdminRateLimit float64       `env:"CADDY_ADMIN_RATE_LIMIT" yaml:"admin_rate_limit"` // req/s, 0 disables

	// Config file management
	ConfigDirs      []string `env:"CADDY_CONFIG_DIRS" envSeparator:":" yaml:"config_dirs"`
	BackupSchedule  string   `env:"BACKUP_SCHEDULE" yaml:"backup_schedule"` // cron spec, empty disables
	BackupRetention int      `env:"BACKUP_RETENTION" yaml:"backup_retention" validate:"min=1"`

	// Route eligibility
	ReservedDomains  []string `env:"RESERVED_DOMAINS" envSeparator:"," yaml:"reserved_domains"`
	EligibleStatuses []string `env:"ELIGIBLE_STATUSES" envSeparator:"," yaml:"eligible_statuses"`

	// Health monitoring
	HealthInterval time.Duration `env:"HEALTH_INTERVAL" yaml:"health_interval"`
	HealthHistory  int           `env:"HEALTH_HISTORY" yaml:"health_history" validate:"min=1"`
}

// Load loads the configuration from an optional YAML file (WAKEPROXY_CONFIG),
// environment variables and an optional .env file. Environment variables win
// over the YAML overlay; unset values get defaults.
func Load() (*Config, error) {
	// Load .env file if it exists. godotenv does not overwrite variables
	// that are already set.
	envLocations := []string{".env"}
	if envName := os.Getenv("ENV"); envName != "" {
		envLocations = append([]string{fmt.Sprintf(".env.%s", envName)}, envLocations...)
	}
	for _, loc := range envLocations {
		if err := godotenv.Load(loc); err == nil {
			break
		}
	}

	cfg := &Config{}

	// YAML overlay first so env.Parse can override it below.
	if path := os.Getenv("WAKEPROXY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills anything neither source set.
func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		if c.Environment == "production" {
			c.LogFile = "/var/log/wakeproxy/wakeproxy.log"
		} else {
			c.LogFile = "./logs/wakeproxy.log"
		}
	}
	if c.CaddyAdminAPI == "" {
		c.CaddyAdminAPI = "http://localhost:2019"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.BackupRetention == 0 {
		c.BackupRetention = 50
	}
	if len(c.EligibleStatuses) == 0 {
		c.EligibleStatuses = []string{"running"}
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = 30 * time.Second
	}
	if c.HealthHistory == 0 {
		c.HealthHistory = 100
	}
}
