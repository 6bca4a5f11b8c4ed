// Package run provides the run command that starts continuous monitoring.
package run

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
	"github.com/androsik2006/radmon/internal/logger"
	"github.com/androsik2006/radmon/internal/telemetry"
)

// Command creates the run command.
func Command(ctx *config.Context) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start periodic collection, alerting and the HTTP API",
		Long: `Run reads every active sensor on the configured polling interval, classifies
the readings, records them and delivers alert notifications. The HTTP API and
the MQTT publisher start when enabled in the configuration. SIGINT or SIGTERM
stops the engine after the in-flight cycle finished.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd.Context(), ctx, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the configuration when the config file changes")

	return cmd
}

func runMonitor(parent context.Context, ctx *config.Context, watch bool) error {
	log := logger.Global().Module("main")

	systemID, err := telemetry.LoadOrCreateSystemID(ctx.ConfigDir())
	if err != nil {
		log.Warn("failed to load system id", logger.Error(err))
	} else {
		ctx.Info = ctx.Info.WithSystemID(systemID)
	}

	enabled, err := telemetry.Init(&ctx.Settings().Sentry, ctx.Info)
	if err != nil {
		log.Warn("telemetry disabled", logger.Error(err))
	}
	if enabled {
		defer telemetry.Flush()
	}

	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting radmon",
		logger.String("version", ctx.Info.Version()),
		logger.String("system_id", ctx.Info.SystemID()),
		logger.String("config", ctx.Manager.ConfigFile()))

	return ctx.WithEngine(sigCtx, func(e *engine.Engine) error {
		return e.Run(sigCtx, watch)
	})
}
