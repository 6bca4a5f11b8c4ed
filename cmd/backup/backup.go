// Package backup provides the backup command for radmon
package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
)

// Command creates and returns the backup command
func Command(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Perform an immediate backup of the database",
		Long:  `Backup copies the SQLite database into the backup directory and stores the copy on every configured target.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				res, err := e.Backups.Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("backup failed: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backup %s completed (%d bytes, %d ms)\n", res.ID, res.Size, res.DurationMS)
				fmt.Fprintf(out, "  local: %s\n", res.Path)
				for _, t := range res.Targets {
					if t.Error != "" {
						fmt.Fprintf(out, "  %s: failed: %s\n", t.Target, t.Error)
						continue
					}
					fmt.Fprintf(out, "  %s: %s\n", t.Target, t.Location)
				}
				return nil
			})
		},
	}

	return cmd
}
