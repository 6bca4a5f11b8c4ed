package notify

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/androsik2006/radmon/internal/config"
	"github.com/androsik2006/radmon/internal/engine"
)

// Command returns a cobra command that sends a test message through every
// configured notification channel
func Command(ctx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification",
		Long: `Send the operator test message through the configured notification channels.

The command fails when notifications are disabled or when no channel accepted
the message.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.WithEngine(cmd.Context(), func(e *engine.Engine) error {
				if err := e.Dispatcher.SendTest(cmd.Context()); err != nil {
					return fmt.Errorf("test notification failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				return nil
			})
		},
	}

	return cmd
}
