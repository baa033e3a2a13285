package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 10, cfg.Geo.DirectoryPrecision)
	assert.Equal(t, 50.0, cfg.Geo.SearchRadiusKm)
	assert.Equal(t, 500, cfg.Dispatch.BatchSize)
	assert.Equal(t, 600*time.Second, cfg.Push.TTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geosafe.yaml")
	yamlDoc := `
server:
  port: ":9090"
dispatch:
  batch_size: 100
  batch_timeout: 3s
geo:
  search_radius_km: 75
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

	t.Setenv("GEOSAFE_BATCH_SIZE", "250")
	t.Setenv("GEOSAFE_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 250, cfg.Dispatch.BatchSize, "env overrides file")
	assert.Equal(t, 3*time.Second, cfg.Dispatch.BatchTimeout)
	assert.Equal(t, 75.0, cfg.Geo.SearchRadiusKm)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10, cfg.Geo.DirectoryPrecision, "untouched defaults survive")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("GEOSAFE_BATCH_SIZE", "lots")

	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, wantErr: false},
		{name: "zero batch size", mutate: func(c *Config) { c.Dispatch.BatchSize = 0 }, wantErr: true},
		{name: "precision too high", mutate: func(c *Config) { c.Geo.DirectoryPrecision = 13 }, wantErr: true},
		{name: "negative radius", mutate: func(c *Config) { c.Geo.SearchRadiusKm = -1 }, wantErr: true},
		{name: "radius below widest subscriber", mutate: func(c *Config) { c.Geo.SearchRadiusKm = 25 }, wantErr: true},
		{name: "fcm batch over limit", mutate: func(c *Config) { c.Push.Provider = "fcm"; c.Dispatch.BatchSize = 501 }, wantErr: true},
		{name: "fcm default batch", mutate: func(c *Config) { c.Push.Provider = "fcm" }, wantErr: false},
		{name: "radius above widest subscriber", mutate: func(c *Config) { c.Geo.SearchRadiusKm = 80 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
