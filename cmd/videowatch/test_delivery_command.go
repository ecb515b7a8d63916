package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"videowatch/internal/config"
	"videowatch/internal/delivery"
)

func newTestDeliveryCommand(ctx *commandContext) *cobra.Command {
	var attempts int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "test-delivery <file>",
		Short: "Send a file to the configured Telegram chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve %q: %w", args[0], err)
			}

			var opts []delivery.Option
			if attempts > 0 {
				opts = append(opts, delivery.WithRetry(attempts, cfg.RetryDelay()))
			}
			notifier := delivery.NewFromConfig(cfg, delivery.NewTelegramSender(cfg.Telegram), ctx.commandLogger(cmd, verbose), opts...)

			result := notifier.Deliver(cmd.Context(), path)
			if result.Err != nil {
				return result.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered %s to %s after %d %s\n", path, cfg.Telegram.ChatID,
				result.Attempts, pluralize(result.Attempts, "attempt", "attempts"))
			return nil
		},
	}

	cmd.Flags().IntVar(&attempts, "attempts", 0, "Override delivery.max_attempts for this send")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show each attempt")
	return cmd
}
