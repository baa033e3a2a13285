// Package config centralizes all application configuration into typed structs.
//
// Go Learning Note — Layered Configuration:
// Defaults come from NewDefaultConfig, a YAML file (optional) overlays them,
// and GEOSAFE_* environment variables win last. Every layer writes into the
// same typed struct, so callers never touch raw strings or maps.
package config

import (
	"time"
)

// Config is the top-level configuration container.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Auth      AuthConfig      `yaml:"auth"`
	Geo       GeoConfig       `yaml:"geo"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Push      PushConfig      `yaml:"push"`
	Log       LogConfig       `yaml:"log"`
	Jobs      JobsConfig      `yaml:"jobs"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings.
//
// Go Learning Note — time.Duration:
// Go uses time.Duration (an int64 of nanoseconds) instead of raw integers for
// timeouts and intervals. In YAML the value is written as "10s" or "500ms".
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	TriggerKey     string        `yaml:"trigger_key"` // shared secret for POST /internal/triggers/*
}

// DatabaseConfig selects the gorm driver. Driver is one of "sqlite", "mysql"
// or "postgres"; an empty sqlite DSN means an in-memory database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the shared dispatch claim store when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NATSConfig enables the NATS trigger transport when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Queue   string `yaml:"queue"`
}

// AuthConfig holds the HMAC secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

// GeoConfig controls the geohash index.
type GeoConfig struct {
	DirectoryPrecision int     `yaml:"directory_precision"` // key length stored per subscription
	SearchRadiusKm     float64 `yaml:"search_radius_km"`    // covering radius for candidate resolution
}

// DispatchConfig bounds every stage of an alert cycle.
type DispatchConfig struct {
	ClaimTTL             time.Duration `yaml:"claim_ttl"`
	CycleTimeout         time.Duration `yaml:"cycle_timeout"`
	ScanConcurrency      int           `yaml:"scan_concurrency"`
	ScanTimeout          time.Duration `yaml:"scan_timeout"`
	BatchSize            int           `yaml:"batch_size"`
	MaxConcurrentBatches int           `yaml:"max_concurrent_batches"`
	BatchTimeout         time.Duration `yaml:"batch_timeout"`
}

// PushConfig configures the multicast push gateway. Provider is "fcm",
// "http" or "log"; when empty, a set Endpoint selects the HTTP relay and
// anything else the logging gateway.
type PushConfig struct {
	Provider        string        `yaml:"provider"`
	Endpoint        string        `yaml:"endpoint"`
	APIKey          string        `yaml:"api_key"`
	ProjectID       string        `yaml:"project_id"`       // Firebase project
	CredentialsFile string        `yaml:"credentials_file"` // service account JSON; empty uses default credentials
	Timeout         time.Duration `yaml:"timeout"`
	ClickURL        string        `yaml:"click_url"`
	TTL             time.Duration `yaml:"ttl"`
}

// LogConfig configures zap. Filename enables rotation through lumberjack.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	Filename    string `yaml:"filename"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	MaxBackups  int    `yaml:"max_backups"`
}

// JobsConfig schedules background maintenance.
type JobsConfig struct {
	GeohashRepairSpec string `yaml:"geohash_repair_spec"`
}

// RateLimitConfig uses the limiter "<limit>-<period>" format, e.g. "30-M".
type RateLimitConfig struct {
	Votes   string `yaml:"votes"`
	Reports string `yaml:"reports"`
}

// NewDefaultConfig returns a Config populated with sensible defaults.
//
// Go Learning Note — Constructor Functions:
// Go has no constructors. By convention, New<Type>() functions serve the same
// purpose. They return a pointer (*Config) so the loader can overlay file and
// environment values in place.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file::memory:?cache=shared",
		},
		NATS: NATSConfig{
			Subject: "geosafe.reports.written",
			Queue:   "alert-pipeline",
		},
		Auth: AuthConfig{
			JWTSecret: "change-me",
			Issuer:    "geosafe",
		},
		Geo: GeoConfig{
			DirectoryPrecision: 10,
			SearchRadiusKm:     50,
		},
		Dispatch: DispatchConfig{
			ClaimTTL:             10 * time.Minute,
			CycleTimeout:         60 * time.Second,
			ScanConcurrency:      9,
			ScanTimeout:          5 * time.Second,
			BatchSize:            500,
			MaxConcurrentBatches: 4,
			BatchTimeout:         10 * time.Second,
		},
		Push: PushConfig{
			Timeout:  10 * time.Second,
			ClickURL: "https://geosafe.web.app/",
			TTL:      600 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxAgeDays: 7,
			MaxBackups: 3,
		},
		Jobs: JobsConfig{
			GeohashRepairSpec: "@every 1h",
		},
		RateLimit: RateLimitConfig{
			Votes:   "30-M",
			Reports: "10-M",
		},
	}
}
