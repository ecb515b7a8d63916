package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"videowatch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "History is disabled (history.enabled = false)")
				return nil
			}

			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of jobs to show")
	return cmd
}

func renderHistoryTable(records []history.Record) string {
	headers := []string{"ID", "Finished", "Source", "State", "Result", "Delivered", "Attempts", "Duration", "Error"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		errText := rec.ErrorMessage
		if errText == "" && len(rec.PartialErrors) > 0 {
			errText = fmt.Sprintf("%d partial: %s", len(rec.PartialErrors), rec.PartialErrors[0])
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ID, 10),
			formatTimestamp(rec.FinishedAt),
			filepath.Base(rec.SourcePath),
			rec.State,
			rec.ErrorKind,
			yesNo(rec.Delivered),
			strconv.Itoa(rec.DeliveryAttempts),
			rec.Duration().Round(100 * time.Millisecond).String(),
			truncate(errText, 60),
		})
	}
	return renderTable(headers, rows, aligns)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
