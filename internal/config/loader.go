package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"geosafe/internal/domain/entities"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "GEOSAFE_"

// Load builds the configuration from defaults, the optional YAML file at path,
// and GEOSAFE_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envBinding maps one variable (without prefix) onto a config field.
type envBinding struct {
	name  string
	apply func(c *Config, raw string) error
}

var envBindings = []envBinding{
	{"PORT", func(c *Config, v string) error { c.Server.Port = v; return nil }},
	{"ALLOWED_ORIGINS", func(c *Config, v string) error { c.Server.AllowedOrigins = strings.Split(v, ","); return nil }},
	{"TRIGGER_KEY", func(c *Config, v string) error { c.Server.TriggerKey = v; return nil }},
	{"DB_DRIVER", func(c *Config, v string) error { c.Database.Driver = v; return nil }},
	{"DB_DSN", func(c *Config, v string) error { c.Database.DSN = v; return nil }},
	{"REDIS_ADDR", func(c *Config, v string) error { c.Redis.Addr = v; return nil }},
	{"REDIS_PASSWORD", func(c *Config, v string) error { c.Redis.Password = v; return nil }},
	{"REDIS_DB", func(c *Config, v string) (err error) { c.Redis.DB, err = cast.ToIntE(v); return }},
	{"NATS_URL", func(c *Config, v string) error { c.NATS.URL = v; return nil }},
	{"JWT_SECRET", func(c *Config, v string) error { c.Auth.JWTSecret = v; return nil }},
	{"SEARCH_RADIUS_KM", func(c *Config, v string) (err error) { c.Geo.SearchRadiusKm, err = cast.ToFloat64E(v); return }},
	{"CLAIM_TTL", func(c *Config, v string) (err error) { c.Dispatch.ClaimTTL, err = cast.ToDurationE(v); return }},
	{"CYCLE_TIMEOUT", func(c *Config, v string) (err error) { c.Dispatch.CycleTimeout, err = cast.ToDurationE(v); return }},
	{"BATCH_SIZE", func(c *Config, v string) (err error) { c.Dispatch.BatchSize, err = cast.ToIntE(v); return }},
	{"MAX_CONCURRENT_BATCHES", func(c *Config, v string) (err error) { c.Dispatch.MaxConcurrentBatches, err = cast.ToIntE(v); return }},
	{"BATCH_TIMEOUT", func(c *Config, v string) (err error) { c.Dispatch.BatchTimeout, err = cast.ToDurationE(v); return }},
	{"PUSH_PROVIDER", func(c *Config, v string) error { c.Push.Provider = v; return nil }},
	{"FIREBASE_PROJECT_ID", func(c *Config, v string) error { c.Push.ProjectID = v; return nil }},
	{"FIREBASE_CREDENTIALS", func(c *Config, v string) error { c.Push.CredentialsFile = v; return nil }},
	{"PUSH_ENDPOINT", func(c *Config, v string) error { c.Push.Endpoint = v; return nil }},
	{"PUSH_API_KEY", func(c *Config, v string) error { c.Push.APIKey = v; return nil }},
	{"CLICK_URL", func(c *Config, v string) error { c.Push.ClickURL = v; return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_DEVELOPMENT", func(c *Config, v string) (err error) { c.Log.Development, err = cast.ToBoolE(v); return }},
	{"LOG_FILE", func(c *Config, v string) error { c.Log.Filename = v; return nil }},
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		raw, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.apply(c, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}

// Validate rejects values that would make the alert pipeline misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.Geo.DirectoryPrecision < 1 || c.Geo.DirectoryPrecision > 12 {
		errs = append(errs, fmt.Errorf("geo.directory_precision must be in [1,12], got %d", c.Geo.DirectoryPrecision))
	}
	if c.Geo.SearchRadiusKm < entities.MaxRadiusKm {
		errs = append(errs, fmt.Errorf("geo.search_radius_km must be at least %g (the largest subscriber radius), got %g",
			entities.MaxRadiusKm, c.Geo.SearchRadiusKm))
	}
	if c.Dispatch.BatchSize <= 0 {
		errs = append(errs, errors.New("dispatch.batch_size must be positive"))
	}
	if c.Dispatch.MaxConcurrentBatches <= 0 {
		errs = append(errs, errors.New("dispatch.max_concurrent_batches must be positive"))
	}
	// Firebase rejects multicasts above 500 tokens.
	if c.Push.Provider == "fcm" && c.Dispatch.BatchSize > 500 {
		errs = append(errs, fmt.Errorf("dispatch.batch_size must be at most 500 with the fcm provider, got %d", c.Dispatch.BatchSize))
	}
	if c.Dispatch.ScanConcurrency <= 0 {
		errs = append(errs, errors.New("dispatch.scan_concurrency must be positive"))
	}
	return errors.Join(errs...)
}
