// Package server exposes the trained classifier over HTTP: a prediction
// endpoint for single records, a batch endpoint, and health and info
// endpoints for probes.
package server

import (
	"os"
	"strconv"
	"time"
)

// Environment variables read by ConfigFromEnv. Timeouts are whole seconds.
const (
	EnvAddr         = "MYCOGO_ADDR"
	EnvArtifact     = "MYCOGO_ARTIFACT"
	EnvReadTimeout  = "MYCOGO_READ_TIMEOUT"
	EnvWriteTimeout = "MYCOGO_WRITE_TIMEOUT"
	EnvIdleTimeout  = "MYCOGO_IDLE_TIMEOUT"
	EnvLogLevel     = "MYCOGO_LOG_LEVEL"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	ArtifactPath string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	LogLevel     string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8000",
		ArtifactPath: "artifacts/mushroom_model.gob",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		LogLevel:     "info",
	}
}

// ConfigFromEnv layers the MYCOGO_* environment variables over the
// defaults. Command-line flags override the result in the serve command.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvArtifact); v != "" {
		cfg.ArtifactPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	cfg.ReadTimeout = envSeconds(EnvReadTimeout, cfg.ReadTimeout)
	cfg.WriteTimeout = envSeconds(EnvWriteTimeout, cfg.WriteTimeout)
	cfg.IdleTimeout = envSeconds(EnvIdleTimeout, cfg.IdleTimeout)
	return cfg
}

// envSeconds parses a whole-second timeout variable, keeping the fallback
// when the variable is unset or not a positive integer.
func envSeconds(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
