package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.SampleInterval)
	assert.Equal(t, 25*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "auto", cfg.DefaultPreset)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.SignalingURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SESSIONKIT_DEFAULT_PRESET", "low")
	t.Setenv("SESSIONKIT_CONNECT_TIMEOUT", "10s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "low", cfg.DefaultPreset)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessionkit.yaml")
	body := []byte("signaling_url: wss://media.example.com/ws\nsample_interval: 5s\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://media.example.com/ws", cfg.SignalingURL)
	assert.Equal(t, 5*time.Second, cfg.SampleInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched keys keep their defaults.
	assert.Equal(t, 25*time.Second, cfg.ConnectTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"zero sample interval", func(c *Config) { c.SampleInterval = 0 }, true},
		{"negative connect timeout", func(c *Config) { c.ConnectTimeout = -time.Second }, true},
		{"unknown preset", func(c *Config) { c.DefaultPreset = "ultra" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "shout" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
