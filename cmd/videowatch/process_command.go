package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"videowatch/internal/config"
	"videowatch/internal/daemonrun"
	"videowatch/internal/dispatch"
	"videowatch/internal/history"
	"videowatch/internal/logging"
	"videowatch/internal/notifications"
	"videowatch/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var skipDelivery bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "process <file>...",
		Short: "Convert and deliver the given files once, bypassing the watcher",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := ctx.commandLogger(cmd, verbose)

			opts := []dispatch.Option{dispatch.WithAlerts(notifications.NewService(cfg))}
			if cfg.History.Enabled {
				store, err := history.Open(cfg)
				if err != nil {
					logger.Warn("history ledger unavailable", logging.Error(err))
				} else {
					defer store.Close()
					opts = append(opts, dispatch.WithHistory(store))
				}
			}

			var d *dispatch.Dispatcher
			if skipDelivery {
				converter := pipeline.New(nil, pipeline.ToolsFromConfig(cfg), logger)
				d = dispatch.NewFromConfig(cfg, converter, nil, logger, opts...)
			} else {
				d = daemonrun.NewDispatcher(cfg, logger, opts...)
			}

			out := cmd.OutOrStdout()
			failures := 0
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return fmt.Errorf("resolve %q: %w", arg, err)
				}
				report, err := d.Process(cmd.Context(), path)
				if err != nil {
					failures++
					fmt.Fprintf(out, "%s: skipped (%v)\n", filepath.Base(path), err)
					continue
				}
				if !printReport(out, report, skipDelivery) {
					failures++
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d %s failed", failures, len(args), pluralize(len(args), "file", "files"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDelivery, "no-deliver", false, "Convert only; do not send the preview to Telegram")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show progress log lines")
	return cmd
}

// printReport writes one summary line and reports whether the job succeeded.
func printReport(out io.Writer, report dispatch.Report, skipDelivery bool) bool {
	outcome := report.Outcome
	name := filepath.Base(outcome.Job.Source)
	ok := !outcome.Failed()

	status := string(outcome.State)
	if outcome.Failed() && outcome.Err != nil {
		status = fmt.Sprintf("failed: %v", outcome.Err)
	}
	if n := len(outcome.Partial); n > 0 {
		status += fmt.Sprintf(" (%d partial %s)", n, pluralize(n, "failure", "failures"))
	}

	var deliveryNote string
	switch {
	case outcome.Artifact == "":
		deliveryNote = "no preview produced"
	case skipDelivery:
		deliveryNote = "preview " + outcome.Artifact
	case report.Delivered():
		deliveryNote = fmt.Sprintf("preview %s delivered after %d %s", outcome.Artifact,
			report.Delivery.Attempts, pluralize(report.Delivery.Attempts, "attempt", "attempts"))
	default:
		ok = false
		deliveryNote = fmt.Sprintf("preview %s not delivered: %v", outcome.Artifact, report.Delivery.Err)
	}

	fmt.Fprintf(out, "%s: %s, %s\n", name, status, deliveryNote)
	return ok
}
