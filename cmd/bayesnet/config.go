package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP API and the run history.
type ServerConfig struct {
	ApiAddr             string `json:"api_addr"`
	LogLevel            string `json:"log_level"`
	HistoryDatabasePath string `json:"history_database_path"`
	HistoryLimit        int    `json:"history_limit"`
	ShutdownTimeoutSec  int    `json:"shutdown_timeout_sec"`
}

// SamplerConfig holds the defaults used for inference.
type SamplerConfig struct {
	Steps     int     `json:"steps"`
	Seed      uint64  `json:"seed"`
	Tolerance float64 `json:"tolerance"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server  *ServerConfig  `json:"server_config"`
	Sampler *SamplerConfig `json:"sampler_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ApiAddr:             ":7290",
		LogLevel:            "info",
		HistoryDatabasePath: "./data/bayesnet_history.db",
		HistoryLimit:        20,
		ShutdownTimeoutSec:  10,
	}
}

// DefaultSamplerConfig creates a sampler configuration with default values.
// A seed of 0 means the random source is seeded from the runtime.
func DefaultSamplerConfig() *SamplerConfig {
	return &SamplerConfig{
		Steps:     1000,
		Seed:      0,
		Tolerance: 0,
	}
}

// DefaultConfig returns the full default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:  DefaultServerConfig(),
		Sampler: DefaultSamplerConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Not fatal, the defaults are still usable.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// A section left out of the file keeps its defaults.
	if config.Server == nil {
		config.Server = DefaultServerConfig()
	}
	if config.Sampler == nil {
		config.Sampler = DefaultSamplerConfig()
	}
	return config, nil
}

// parseLogLevel maps a config level name onto a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}
