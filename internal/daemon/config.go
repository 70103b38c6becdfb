// Package daemon manages the tokensage daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API        APIConfig        `toml:"api"`
	Storage    StorageConfig    `toml:"storage"`
	Prediction PredictionConfig `toml:"prediction"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Logging    LoggingConfig    `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StorageConfig controls the datastore location.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// PredictionConfig tunes the prediction engine. Defaults mirror the
// shipped constants; override only when a deployment has a reason to.
type PredictionConfig struct {
	CacheTTL string `toml:"cache_ttl"`
}

// TelemetryConfig controls the Prometheus endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := sageHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8790,
			CORSOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Dir: homeDir,
		},
		Prediction: PredictionConfig{
			CacheTTL: "5m",
		},
		Telemetry: TelemetryConfig{
			Prometheus: false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "tokensage.log"),
		},
	}
}

// LoadConfig reads config from ~/.tokensage/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(sageHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.tokensage/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(sageHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// CacheTTLOr parses the configured prediction cache TTL, falling back to
// the given default on empty or malformed values.
func (c PredictionConfig) CacheTTLOr(fallback time.Duration) time.Duration {
	if c.CacheTTL == "" {
		return fallback
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// sageHome returns the tokensage data directory.
func sageHome() string {
	if env := os.Getenv("TOKENSAGE_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tokensage")
}

// SageHome is exported for use by other packages.
func SageHome() string {
	return sageHome()
}
