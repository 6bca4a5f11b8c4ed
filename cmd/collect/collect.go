// Package collect provides the collect command that runs a single cycle.
package collect

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
	"github.com/androsik2006/radmon/internal/events"
	"github.com/androsik2006/radmon/internal/radiation"
)

// Command creates the collect command.
func Command(ctx *config.Context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Read every active sensor once and print the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				ev, err := e.Scheduler.CollectNow(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(ev)
				}
				return PrintCycle(cmd.OutOrStdout(), ev)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the cycle summary as JSON")

	return cmd
}

// PrintCycle writes a table of the cycle's readings and failures.
func PrintCycle(w io.Writer, ev events.CycleCompleted) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SENSOR\tLEVEL (µSv/h)\tSTATUS\tTIME")
	for _, r := range ev.Readings {
		fmt.Fprintf(tw, "%s\t%.3f\t%s\t%s\n",
			r.SensorID, r.Value, StatusColor(r.Status), r.Timestamp.Format("15:04:05"))
	}
	for _, f := range ev.Failures {
		fmt.Fprintf(tw, "%s\t-\t%s\t%s\n", f.SensorID, color.RedString("ERROR"), f.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\ncycle %d: %d readings, %d alerts, %d failures in %s\n",
		ev.Seq, len(ev.Readings), len(ev.Alerts), len(ev.Failures), ev.Duration().Round(time.Millisecond))
	return err
}

// StatusColor renders a reading status in its alarm color.
func StatusColor(s radiation.Status) string {
	switch s {
	case radiation.StatusDanger:
		return color.New(color.FgRed, color.Bold).Sprint(s.String())
	case radiation.StatusWarning:
		return color.YellowString(s.String())
	default:
		return color.GreenString(s.String())
	}
}
