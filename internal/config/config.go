package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	ListenAddr   string              `koanf:"listen_addr"`
	Mock         bool                `koanf:"mock"`
	Gateway      GatewayConfig       `koanf:"gateway"`
	Backend      BackendConfig       `koanf:"backend"`
	Database     DatabaseConfig      `koanf:"database"`
	Customers    CustomersConfig     `koanf:"customers"`
	Execution    ExecutionConfig     `koanf:"execution"`
	Environments []EnvironmentConfig `koanf:"environments"`
	Refresh      RefreshConfig       `koanf:"correlation_refresh"`
	Artifacts    ArtifactsConfig     `koanf:"artifacts"`
}

type GatewayConfig struct {
	URL     string `koanf:"url"`
	Timeout string `koanf:"timeout"`
}

type BackendConfig struct {
	URL     string `koanf:"url"`
	Token   string `koanf:"token"`
	Timeout string `koanf:"timeout"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // "postgres", "mysql" or "memory"
	URL    string `koanf:"url"`
}

type CustomersConfig struct {
	File string `koanf:"file"`
}

type ExecutionConfig struct {
	Timeout             string `koanf:"timeout"`
	CorrelationDelay    string `koanf:"correlation_delay"`
	CorrelationAttempts int    `koanf:"correlation_attempts"`
}

type EnvironmentConfig struct {
	Name        string `koanf:"name"`
	Description string `koanf:"description"`
	GatewayURL  string `koanf:"gateway_url"`
	Enabled     *bool  `koanf:"enabled"`
}

type RefreshConfig struct {
	Enabled  *bool  `koanf:"enabled"`
	Interval string `koanf:"interval"`
	Window   string `koanf:"window"`
}

type ArtifactsConfig struct {
	Dir string `koanf:"dir"`
	TTL string `koanf:"ttl"`
}

var envOverrides = map[string]string{
	"LISTEN_ADDR":                "listen_addr",
	"USE_MOCK":                   "mock",
	"PUNCHOUT_GATEWAY_URL":       "gateway.url",
	"PUNCHOUT_BACKEND_URL":       "backend.url",
	"PUNCHOUT_BACKEND_TOKEN":     "backend.token",
	"DATABASE_DRIVER":            "database.driver",
	"DATABASE_URL":               "database.url",
	"PUNCHOUT_CUSTOMERS_FILE":    "customers.file",
	"PUNCHOUT_CORRELATION_DELAY": "execution.correlation_delay",
}

// Load reads the optional YAML file, applies environment overrides and
// defaults, then validates the result.
func Load(configFile string) (*Config, error) {
	return LoadWithOverrides(configFile, nil)
}

// LoadWithOverrides is Load with explicit keys (e.g. from CLI flags) applied
// on top of the environment.
func LoadWithOverrides(configFile string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	for envKey, configKey := range envOverrides {
		if val := os.Getenv(envKey); val != "" {
			if err := k.Set(configKey, val); err != nil {
				return nil, fmt.Errorf("error setting %s from env: %w", envKey, err)
			}
		}
	}
	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("error setting %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset value
func (cfg *Config) ApplyDefaults() {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Gateway.Timeout == "" {
		cfg.Gateway.Timeout = "10s"
	}
	if cfg.Backend.Timeout == "" {
		cfg.Backend.Timeout = "10s"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Execution.Timeout == "" {
		cfg.Execution.Timeout = "30s"
	}
	if cfg.Execution.CorrelationDelay == "" {
		cfg.Execution.CorrelationDelay = "1s"
	}
	if cfg.Execution.CorrelationAttempts == 0 {
		cfg.Execution.CorrelationAttempts = 1
	}
	if cfg.Refresh.Enabled == nil {
		enabled := true
		cfg.Refresh.Enabled = &enabled
	}
	if cfg.Refresh.Interval == "" {
		cfg.Refresh.Interval = "1m"
	}
	if cfg.Refresh.Window == "" {
		cfg.Refresh.Window = "15m"
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "/tmp/punchout-bundles"
	}
	if cfg.Artifacts.TTL == "" {
		cfg.Artifacts.TTL = "24h"
	}
}

func (cfg *Config) Validate() error {
	var errs []error

	if !cfg.Mock {
		if cfg.Gateway.URL == "" {
			errs = append(errs, errors.New("gateway.url is required unless mock mode is enabled"))
		}
		if cfg.Backend.URL == "" {
			errs = append(errs, errors.New("backend.url is required unless mock mode is enabled"))
		}
	}
	for key, raw := range map[string]string{"gateway.url": cfg.Gateway.URL, "backend.url": cfg.Backend.URL} {
		if raw != "" {
			if err := validateURL(raw); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	durations := map[string]string{
		"gateway.timeout":              cfg.Gateway.Timeout,
		"backend.timeout":              cfg.Backend.Timeout,
		"execution.timeout":            cfg.Execution.Timeout,
		"execution.correlation_delay":  cfg.Execution.CorrelationDelay,
		"correlation_refresh.interval": cfg.Refresh.Interval,
		"correlation_refresh.window":   cfg.Refresh.Window,
		"artifacts.ttl":                cfg.Artifacts.TTL,
	}
	for key, raw := range durations {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			continue
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s: must not be negative", key))
		}
	}

	if cfg.Execution.CorrelationAttempts < 1 {
		errs = append(errs, fmt.Errorf("execution.correlation_attempts must be at least 1, got %d", cfg.Execution.CorrelationAttempts))
	}

	switch cfg.Database.Driver {
	case "memory":
	case "postgres", "mysql":
		if cfg.Database.URL == "" {
			errs = append(errs, fmt.Errorf("database.url is required for driver %s", cfg.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be 'postgres', 'mysql' or 'memory', got %s", cfg.Database.Driver))
	}

	for i, env := range cfg.Environments {
		if env.Name == "" {
			errs = append(errs, fmt.Errorf("environments[%d].name is required", i))
		}
		if env.GatewayURL != "" {
			if err := validateURL(env.GatewayURL); err != nil {
				errs = append(errs, fmt.Errorf("environments[%d].gateway_url: %w", i, err))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// Duration parses a value that Validate already accepted
func Duration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}
