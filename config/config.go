// Package config loads sessionkit settings from an optional YAML file
// and SESSIONKIT_* environment variables, with sane defaults for every
// knob.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config carries every tunable of a sessionkit client.
type Config struct {
	// SignalingURL is the websocket endpoint sessions are joined
	// through.
	SignalingURL string `mapstructure:"signaling_url"`

	// SampleInterval is the cadence of network statistics sampling.
	SampleInterval time.Duration `mapstructure:"sample_interval"`

	// ConnectTimeout bounds a single connect attempt.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	// DefaultPreset names the capture preset used at join time
	// (auto, high, medium, low).
	DefaultPreset string `mapstructure:"default_preset"`

	// LogLevel is a logrus level name (trace..panic).
	LogLevel string `mapstructure:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		SampleInterval: 2 * time.Second,
		ConnectTimeout: 25 * time.Second,
		DefaultPreset:  "auto",
		LogLevel:       "info",
	}
}

// Load reads configuration from the given YAML file (optional; pass ""
// to skip) and from SESSIONKIT_* environment variables. Environment
// variables win over the file, the file wins over defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("sessionkit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("signaling_url", def.SignalingURL)
	v.SetDefault("sample_interval", def.SampleInterval)
	v.SetDefault("connect_timeout", def.ConnectTimeout)
	v.SetDefault("default_preset", def.DefaultPreset)
	v.SetDefault("log_level", def.LogLevel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"path":     path,
		}).Debug("Configuration file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values the rest of the system cannot work with.
func (c *Config) Validate() error {
	if c.SampleInterval <= 0 {
		return fmt.Errorf("sample_interval must be positive, got %s", c.SampleInterval)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	switch c.DefaultPreset {
	case "auto", "high", "medium", "low":
	default:
		return fmt.Errorf("unknown default_preset %q", c.DefaultPreset)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// ConfigureLogging applies the configured level to the global logrus
// logger.
func (c *Config) ConfigureLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
