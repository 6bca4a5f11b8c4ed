// Package api serves the operator HTTP interface of the monitoring engine.
//
// Endpoints live under /api/v1 and mirror the CLI operations: status,
// history, alerts, statistics, reports and the control actions. /metrics
// exposes the Prometheus registry when enabled.
package api

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultListen          = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second // report downloads and backups
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStatsCacheTTL   = 10 * time.Second
	DefaultBodyLimit       = "1M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen string // host:port, empty host binds all interfaces

	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit     string        // maximum request body size, e.g. "1M"
	StatsCacheTTL time.Duration // lifetime of cached statistics
	Metrics       bool          // expose /metrics
	DiskPath      string        // path reported by /api/v1/system
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		AllowedOrigins:  []string{"*"},
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
		StatsCacheTTL:   DefaultStatsCacheTTL,
		DiskPath:        ".",
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()
	if settings.API.Listen != "" {
		cfg.Listen = settings.API.Listen
	}
	cfg.Metrics = settings.API.Metrics
	if settings.Database.Type == "sqlite" && settings.Database.SQLite.Path != "" {
		cfg.DiskPath = filepath.Dir(settings.Database.SQLite.Path)
	}
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("listen", c.Listen).
			Build()
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return errors.Newf("read and write timeouts must be positive").
			Component("api").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Address returns the address string for the server to listen on.
func (c *Config) Address() string {
	return c.Listen
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("Server Config: address=%s, metrics=%v", c.Address(), c.Metrics)
}
