// Package config provides commands that inspect the configuration file.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/conf"
	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/errors"
)

// Command creates the config command group.
func Command(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(validateCommand(ctx))

	return cmd
}

func validateCommand(ctx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file and list every problem found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := conf.Load(ctx.ConfigFile)
			if err != nil {
				var ve conf.ValidationError
				if errors.As(err, &ve) {
					out := cmd.ErrOrStderr()
					fmt.Fprintf(out, "Configuration is invalid (%d problems):\n", len(ve.Errors))
					for _, e := range ve.Errors {
						fmt.Fprintf(out, "  - %s\n", e)
					}
				}
				return err
			}
			s := m.Settings()
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d sensors, polling every %s\n",
				m.ConfigFile(), len(s.Sensors), s.Monitor.PollingInterval.Duration())
			return nil
		},
	}
}
