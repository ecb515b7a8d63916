package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"videowatch/internal/daemonrun"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the configured directory in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level for this run")
	cmd.Flags().BoolVar(&opts.WithCaller, "dev", false, "Include caller information in log lines")
	cmd.Flags().BoolVar(&opts.SkipTelegram, "skip-telegram-check", false, "Do not verify the bot token at startup")
	return cmd
}
