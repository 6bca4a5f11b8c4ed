// Package config holds the per-process state shared by the CLI commands.
package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/androsik2006/radmon/internal/buildinfo"
	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/engine"
	"github.com/androsik2006/radmon/internal/errors"
	"github.com/androsik2006/radmon/internal/logger"
)

const closeTimeout = 10 * time.Second

// Context carries the loaded configuration, the central logger and the
// build information from the root command to its subcommands.
type Context struct {
	ConfigFile string // --config, empty selects the default search paths
	Debug      bool   // --debug

	Info    *buildinfo.Context
	Manager *conf.Manager

	logger *logger.CentralLogger
}

// NewContext creates a Context for the given build.
func NewContext(info *buildinfo.Context) *Context {
	return &Context{Info: info}
}

// Load reads and validates the configuration and installs the central
// logger. It is idempotent.
func (c *Context) Load() error {
	if c.Manager != nil {
		return nil
	}
	m, err := conf.Load(c.ConfigFile)
	if err != nil {
		return err
	}
	settings := m.Settings()
	if c.Debug {
		settings.Main.Debug = true
	}

	cfg := settings.Logging
	if settings.Main.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}
	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	logger.SetGlobal(cl)

	c.Manager = m
	c.logger = cl
	cl.Module("main").Debug("configuration loaded",
		logger.String("file", m.ConfigFile()),
		logger.Int("sensors", len(settings.Sensors)))
	return nil
}

// Settings returns the current settings. Load must have succeeded.
func (c *Context) Settings() *conf.Settings {
	return c.Manager.Settings()
}

// ConfigDir returns the directory of the active config file.
func (c *Context) ConfigDir() string {
	if c.Manager == nil || c.Manager.ConfigFile() == "" {
		return "."
	}
	return filepath.Dir(c.Manager.ConfigFile())
}

// OpenEngine wires the monitoring components. The caller closes the engine.
func (c *Context) OpenEngine(ctx context.Context) (*engine.Engine, error) {
	if err := c.Load(); err != nil {
		return nil, err
	}
	return engine.New(ctx, c.Manager, c.Info)
}

// WithEngine opens the engine, runs fn and closes the engine again. Pending
// alert deliveries get closeTimeout to finish.
func (c *Context) WithEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	e, err := c.OpenEngine(ctx)
	if err != nil {
		return err
	}
	runErr := fn(e)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := e.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close flushes and closes the central logger.
func (c *Context) Close() error {
	if c.logger == nil {
		return nil
	}
	return c.logger.Close()
}
