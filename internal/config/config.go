// Package config loads runtime configuration: defaults, then an optional
// YAML file, then environment variables. Environment wins so deployments
// can override a checked-in file without editing it.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage backend names accepted in Config.Storage.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	// AppName labels provisioned webhooks and the install pages.
	AppName string `yaml:"app_name" env:"FRAMEIO_APP_NAME"`

	// ListenAddr is the address the HTTP server binds.
	ListenAddr string `yaml:"listen_addr" env:"FRAMEIO_LISTEN_ADDR"`

	// BaseURL is the public URL of this app, used as the webhook and
	// action target and as the OAuth redirect base.
	BaseURL string `yaml:"base_url" env:"FRAMEIO_BASE_URL"`

	// LogLevel is one of DEBUG, INFO, WARN, ERROR.
	LogLevel string `yaml:"log_level" env:"FRAMEIO_LOG_LEVEL"`

	// EncryptionKey is the base64 master key for sealed records. Leave
	// empty to fall back to FRAMEIO_AUTH_ENCRYPTION_KEY or an ephemeral key.
	EncryptionKey string `yaml:"encryption_key" env:"FRAMEIO_AUTH_ENCRYPTION_KEY"`

	OAuth   OAuthConfig   `yaml:"oauth"`
	Storage StorageConfig `yaml:"storage"`
}

// OAuthConfig holds the OAuth client registration.
type OAuthConfig struct {
	ClientID     string   `yaml:"client_id" env:"FRAMEIO_CLIENT_ID"`
	ClientSecret string   `yaml:"client_secret" env:"FRAMEIO_CLIENT_SECRET"`
	Scopes       []string `yaml:"scopes" env:"FRAMEIO_OAUTH_SCOPES"`
	AuthURL      string   `yaml:"auth_url" env:"FRAMEIO_OAUTH_AUTH_URL"`
	TokenURL     string   `yaml:"token_url" env:"FRAMEIO_OAUTH_TOKEN_URL"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend    string `yaml:"backend" env:"FRAMEIO_STORAGE_BACKEND"`
	SQLitePath string `yaml:"sqlite_path" env:"FRAMEIO_SQLITE_PATH"`
	RedisURL   string `yaml:"redis_url" env:"FRAMEIO_REDIS_URL"`
	// RedisPrefix namespaces keys when sharing a Redis database.
	RedisPrefix string `yaml:"redis_prefix" env:"FRAMEIO_REDIS_PREFIX"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		AppName:    "frameio-kit app",
		ListenAddr: ":8000",
		LogLevel:   "INFO",
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "frameio-kit.db",
		},
	}
}

// Load builds the configuration. path may be empty to skip the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot start.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage backend %q requires sqlite_path", BackendSQLite)
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage backend %q requires redis_url", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.LogLevel {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must be set")
	}
	return nil
}
