package cmd

import (
	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/cmd/alerts"
	"github.com/androsik2006/radmon/cmd/backup"
	"github.com/androsik2006/radmon/cmd/collect"
	configcmd "github.com/androsik2006/radmon/cmd/config"
	"github.com/androsik2006/radmon/cmd/notify"
	"github.com/androsik2006/radmon/cmd/report"
	"github.com/androsik2006/radmon/cmd/run"
	"github.com/androsik2006/radmon/cmd/sensors"
	"github.com/androsik2006/radmon/cmd/stats"
	"github.com/androsik2006/radmon/cmd/version"
	"github.com/androsik2006/radmon/internal/config"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *config.Context) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "radmon",
		Short:         "Radiation sensor monitoring and alerting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, ctx)

	versionCmd := version.Command(ctx)
	configCmd := configcmd.Command(ctx)

	rootCmd.AddCommand(
		run.Command(ctx),
		collect.Command(ctx),
		sensors.Command(ctx),
		alerts.Command(ctx),
		stats.Command(ctx),
		report.Command(ctx),
		notify.Command(ctx),
		backup.Command(ctx),
		configCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version and config report their own errors without a loaded config
		if cmd == versionCmd || cmd.Parent() == configCmd {
			return nil
		}
		return ctx.Load()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, ctx *config.Context) {
	rootCmd.PersistentFlags().StringVarP(&ctx.ConfigFile, "config", "c", "", "Path to the config file (default: search standard locations)")
	rootCmd.PersistentFlags().BoolVarP(&ctx.Debug, "debug", "d", false, "Enable debug output")
}
