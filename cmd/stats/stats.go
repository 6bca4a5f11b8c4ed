// Package stats provides the stats command.
package stats

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
)

// Command creates the stats command.
func Command(ctx *config.Context) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted measurement statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now()
			if day != "" {
				var err error
				if date, err = time.ParseInLocation(time.DateOnly, day, time.Local); err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", day)
				}
			}

			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				st, err := e.Store.GetStatistics(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				summary, err := e.Store.GetSummary(cmd.Context())
				if err != nil {
					return err
				}
				daily, err := e.Store.GetDailyAggregates(cmd.Context(), date)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				last := "never"
				if st.LastUpdate != nil {
					last = st.LastUpdate.Local().Format(time.DateTime)
				}
				fmt.Fprintf(out, "Measurements: %d total, %d today\n", st.TotalMeasurements, st.TodayMeasurements)
				fmt.Fprintf(out, "Exceedances:  %d\n", st.Exceedances)
				fmt.Fprintf(out, "Sensors:      %d active\n", st.ActiveSensors)
				fmt.Fprintf(out, "Alerts:       %d pending\n", st.PendingAlerts)
				fmt.Fprintf(out, "Last update:  %s\n", last)
				if summary.Total > 0 {
					fmt.Fprintf(out, "Levels:       avg %.3f, min %.3f, max %.3f µSv/h\n", summary.Avg, summary.Min, summary.Max)
				}

				fmt.Fprintf(out, "\n%s\n", date.Format(time.DateOnly))
				if len(daily) == 0 {
					fmt.Fprintln(out, "No measurements")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SENSOR\tCOUNT\tAVG\tMIN\tMAX")
				for _, a := range daily {
					fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\n", a.SensorID, a.Count, a.Avg, a.Min, a.Max)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&day, "date", "", "Day for the per-sensor breakdown, YYYY-MM-DD (default today)")

	return cmd
}
