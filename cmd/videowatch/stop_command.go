package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"videowatch/internal/daemonctl"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cfg, grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Watcher is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Watcher (pid %d) did not exit within %s and was killed\n", result.PID, grace)
				return nil
			}
			fmt.Fprintf(out, "Watcher (pid %d) stopped\n", result.PID)
			return nil
		},
	}

	cmd.Flags().DurationVar(&grace, "grace", 30*time.Second, "How long to wait for in-flight jobs before killing the process")
	return cmd
}
