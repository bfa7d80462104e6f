// Package config loads the service configuration from an optional TOML base
// file, an environment-specific overlay, and SMARTWASTE_* variables. A .env
// file in the working directory seeds variables not already set.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/smartwaste/pkg/database"
	"github.com/JaimeStill/smartwaste/pkg/storage"
)

const (
	DotEnvFile           = ".env"
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvSmartwasteEnv             = "SMARTWASTE_ENV"
	EnvSmartwasteShutdownTimeout = "SMARTWASTE_SHUTDOWN_TIMEOUT"
	EnvSmartwasteVersion         = "SMARTWASTE_VERSION"
	EnvSmartwasteLogLevel        = "SMARTWASTE_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Host:            "SMARTWASTE_DB_HOST",
	Port:            "SMARTWASTE_DB_PORT",
	Name:            "SMARTWASTE_DB_NAME",
	User:            "SMARTWASTE_DB_USER",
	Password:        "SMARTWASTE_DB_PASSWORD",
	SSLMode:         "SMARTWASTE_DB_SSL_MODE",
	ApplicationName: "SMARTWASTE_DB_APPLICATION_NAME",
	MaxOpenConns:    "SMARTWASTE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SMARTWASTE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SMARTWASTE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SMARTWASTE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "SMARTWASTE_STORAGE_CONTAINER_NAME",
	ConnectionString: "SMARTWASTE_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	API             APIConfig        `toml:"api"`
	Classifier      ClassifierConfig `toml:"classifier"`
	Identity        IdentityConfig   `toml:"identity"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
	LogLevel        string           `toml:"log_level"`
}

// Env returns the SMARTWASTE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvSmartwasteEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads config.toml (if present), merges config.<env>.toml when
// SMARTWASTE_ENV names one, and finalizes every section.
func Load() (*Config, error) {
	if _, err := os.Stat(DotEnvFile); err == nil {
		if err := godotenv.Load(DotEnvFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
		}
	}

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Classifier.Merge(&overlay.Classifier)
	c.Identity.Merge(&overlay.Identity)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Classifier.Finalize(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Identity.Finalize(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvSmartwasteShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvSmartwasteVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvSmartwasteLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvSmartwasteEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
