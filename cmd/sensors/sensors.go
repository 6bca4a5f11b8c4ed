// Package sensors provides commands to list sensors and change their status.
package sensors

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Command creates the sensors command group.
func Command(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "List sensors or enable and disable them",
	}

	cmd.AddCommand(
		listCommand(ctx),
		statusCommand(ctx, "enable", radiation.SensorActive),
		statusCommand(ctx, "disable", radiation.SensorDisabled),
	)

	return cmd
}

func listCommand(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sensors with their effective status and thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				global := e.Manager.Snapshot().Thresholds
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tLOCATION\tSTATUS\tWARNING\tDANGER\tCALIBRATED")
				for _, d := range e.Registry.Sensors() {
					t := d.Effective(global)
					calibrated := "-"
					if !d.CalibrationDate.IsZero() {
						calibrated = d.CalibrationDate.Format("2006-01-02")
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
						d.ID, d.Name, d.Location, d.Status, t.Warning, t.Danger, calibrated)
				}
				return tw.Flush()
			})
		},
	}
}

func statusCommand(ctx *config.Context, verb string, status radiation.SensorStatus) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <sensor-id>",
		Short: fmt.Sprintf("Set a sensor %s from the next cycle on", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				if err := e.Registry.SetStatus(cmd.Context(), args[0], status); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sensor %s is now %s\n", args[0], status)
				return nil
			})
		},
	}
}
