// Package report provides the report command that writes CSV reports.
package report

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
	"github.com/androsik2006/radmon/internal/report"
)

// Command creates the report command.
func Command(ctx *config.Context) *cobra.Command {
	var dir string

	kinds := make([]string, 0, len(report.Kinds))
	for _, k := range report.Kinds {
		kinds = append(kinds, string(k))
	}

	cmd := &cobra.Command{
		Use:       "report <kind>",
		Short:     "Write a CSV report",
		Long:      "Write a CSV report of the persisted measurements. Kinds: " + strings.Join(kinds, ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := report.ParseKind(args[0])
			if err != nil {
				return err
			}
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				path, err := report.NewGenerator(e.Store).Generate(cmd.Context(), kind, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "reports", "Output directory")

	return cmd
}
