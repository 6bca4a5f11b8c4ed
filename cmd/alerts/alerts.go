// Package alerts provides commands to inspect and clear the alert log.
package alerts

import (
	"fmt"
	"os/user"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/datastore"
	"github.com/androsik2006/radmon/internal/engine"
)

// Command creates the alerts command group.
func Command(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Inspect, acknowledge or clear stored alerts",
	}

	cmd.AddCommand(listCommand(ctx), clearCommand(ctx), resetCommand(ctx))

	return cmd
}

func listCommand(ctx *config.Context) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent stored alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				alerts, err := e.Store.GetRecentAlerts(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(alerts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No alerts recorded")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TIME\tSENSOR\tTYPE\tLEVEL\tTHRESHOLD\tNOTIFIED")
				for _, a := range alerts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.2f\t%t\n",
						a.Timestamp.Format("2006-01-02 15:04:05"), a.SensorID, a.AlertType,
						a.ActualValue, a.ThresholdValue, a.Notified)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", datastore.DefaultRecentAlerts, "Number of alerts to show")

	return cmd
}

func clearCommand(ctx *config.Context) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored alert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete alerts without --yes")
			}
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				n, err := e.Store.ClearAlerts(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d alerts\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")

	return cmd
}

func resetCommand(ctx *config.Context) *cobra.Command {
	var operator string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Acknowledge active alarms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if operator == "" {
				operator = "cli"
				if u, err := user.Current(); err == nil {
					operator = "cli:" + u.Username
				}
			}
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				e.Dispatcher.ResetAlarms(operator)
				fmt.Fprintf(cmd.OutOrStdout(), "Alarms acknowledged by %s\n", operator)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "Operator name recorded with the acknowledgment")

	return cmd
}
