package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geosafe/internal/config"
)

func TestNew_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geosafe.log")

	log, err := New(config.LogConfig{Level: "debug", Filename: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Info("dispatch finished")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispatch finished")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "shouting"})
	assert.Error(t, err)
}
