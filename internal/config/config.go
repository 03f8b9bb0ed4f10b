// ABOUTME: Configuration loading and parsing for convo-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete convo-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	CORS     CORSConfig     `yaml:"cors"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig holds webhook ingestion tuning
type WebhookConfig struct {
	// DedupeTTL is how long successfully processed event keys are kept to
	// short-circuit re-deliveries.
	DedupeTTL time.Duration `yaml:"-"`
	// DedupeMaxEntries bounds the dedupe cache size.
	DedupeMaxEntries int `yaml:"dedupe_max_entries"`

	// Raw string value for YAML unmarshaling
	DedupeTTLRaw string `yaml:"dedupe_ttl"`
}

// CORSConfig holds CORS settings for browser clients
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the config file omits values
const (
	defaultHTTPAddr         = "0.0.0.0:8080"
	defaultDatabasePath     = "data/convo.db"
	defaultDedupeTTL        = 10 * time.Minute
	defaultDedupeMaxEntries = 10000
)

// Default returns a configuration with sensible defaults, used when no
// config file exists.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{HTTPAddr: defaultHTTPAddr},
		Database: DatabaseConfig{Path: defaultDatabasePath},
		Webhook: WebhookConfig{
			DedupeTTL:        defaultDedupeTTL,
			DedupeMaxEntries: defaultDedupeMaxEntries,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills in zero-valued fields
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = defaultHTTPAddr
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = defaultDatabasePath
	}
	if cfg.Webhook.DedupeMaxEntries == 0 {
		cfg.Webhook.DedupeMaxEntries = defaultDedupeMaxEntries
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Webhook.DedupeTTLRaw == "" {
		cfg.Webhook.DedupeTTL = defaultDedupeTTL
		return nil
	}

	d, err := time.ParseDuration(cfg.Webhook.DedupeTTLRaw)
	if err != nil {
		return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Webhook.DedupeTTLRaw, err)
	}
	cfg.Webhook.DedupeTTL = d
	return nil
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Webhook.DedupeTTL <= 0 {
		return fmt.Errorf("webhook.dedupe_ttl must be positive")
	}
	if c.Webhook.DedupeMaxEntries <= 0 {
		return fmt.Errorf("webhook.dedupe_max_entries must be positive")
	}
	return nil
}
