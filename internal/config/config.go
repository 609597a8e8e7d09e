package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/14tweny/Gottwood-Review-sub000/internal/ingest"
	"github.com/14tweny/Gottwood-Review-sub000/internal/writer"
	"github.com/14tweny/Gottwood-Review-sub000/pkg/model"
)

// DefaultPath is where the CLI looks for the configuration file.
const DefaultPath = "gottwood.yml"

// DefaultRedisURL is used when the redis backend is selected without a URL.
const DefaultRedisURL = "redis://localhost:6379/0"

// Supported remote backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Environment variables that override file settings.
const (
	EnvRedisURL    = "GOTTWOOD_REDIS_URL"
	EnvDatabaseURL = "GOTTWOOD_DATABASE_URL"
	EnvBackend     = "GOTTWOOD_BACKEND"
	EnvPrefs       = "GOTTWOOD_PREFS"
)

// SyncConfig holds the timings of the writer and the sync channels.
// Durations use Go syntax ("800ms", "15s").
type SyncConfig struct {
	Debounce     time.Duration `yaml:"debounce,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	SavedDisplay time.Duration `yaml:"saved_display,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// Config represents the top-level gottwood.yml configuration
type Config struct {
	Version       string               `yaml:"version"`
	CurrentPeriod string               `yaml:"current_period"`
	Backend       string               `yaml:"backend,omitempty"`
	RedisURL      string               `yaml:"redis_url,omitempty"`
	DatabaseURL   string               `yaml:"database_url,omitempty"`
	PrefsPath     string               `yaml:"prefs_path,omitempty"` // empty = ~/.gottwood/prefs.db
	Sync          *SyncConfig          `yaml:"sync,omitempty"`
	Organizations []model.Organization `yaml:"organizations"`
}

// Validate performs strict validation on the configuration and fills in
// defaults for optional settings.
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.CurrentPeriod) == "" {
		return fmt.Errorf("current_period is required")
	}

	if c.Backend == "" {
		c.Backend = BackendRedis
	}
	switch c.Backend {
	case BackendRedis:
		if c.RedisURL == "" {
			c.RedisURL = DefaultRedisURL
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("backend 'postgres' requires database_url")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be '%s' or '%s')", c.Backend, BackendRedis, BackendPostgres)
	}

	if len(c.Organizations) == 0 {
		return fmt.Errorf("no organizations defined")
	}
	seen := make(map[string]struct{}, len(c.Organizations))
	for i, org := range c.Organizations {
		if err := org.Validate(); err != nil {
			return fmt.Errorf("organizations[%d]: %w", i, err)
		}
		if _, dup := seen[org.ID]; dup {
			return fmt.Errorf("duplicate organization id '%s'", org.ID)
		}
		seen[org.ID] = struct{}{}
	}

	if c.Sync == nil {
		c.Sync = &SyncConfig{}
	}
	return c.Sync.validate()
}

func (s *SyncConfig) validate() error {
	defaults := writer.DefaultConfig()
	if s.Debounce == 0 {
		s.Debounce = defaults.Debounce
	}
	if s.SavedDisplay == 0 {
		s.SavedDisplay = defaults.SavedDisplay
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = defaults.WriteTimeout
	}
	if s.PollInterval == 0 {
		s.PollInterval = ingest.DefaultPollInterval
	}

	if s.Debounce < 0 || s.SavedDisplay < 0 || s.WriteTimeout < 0 || s.PollInterval < 0 {
		return fmt.Errorf("sync durations must not be negative")
	}
	if s.PollInterval < time.Second {
		return fmt.Errorf("sync.poll_interval must be at least 1s, got %s", s.PollInterval)
	}
	return nil
}

// ApplyEnv overrides file settings with the GOTTWOOD_* environment variables.
// getenv is normally os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := getenv(EnvRedisURL); v != "" {
		c.RedisURL = v
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv(EnvPrefs); v != "" {
		c.PrefsPath = v
	}
}

// Organization returns the configured organization with id.
func (c *Config) Organization(id string) (model.Organization, error) {
	for _, org := range c.Organizations {
		if org.ID == id {
			return org, nil
		}
	}
	return model.Organization{}, fmt.Errorf("unknown organization '%s'", id)
}

// WriterConfig returns the writer timings.
func (c *Config) WriterConfig() writer.Config {
	return writer.Config{
		Debounce:     c.Sync.Debounce,
		SavedDisplay: c.Sync.SavedDisplay,
		WriteTimeout: c.Sync.WriteTimeout,
	}
}

// Load reads gottwood.yml from the specified path, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
