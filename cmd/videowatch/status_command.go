package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"videowatch/internal/config"
	"videowatch/internal/daemonctl"
	"videowatch/internal/fileutil"
	"videowatch/internal/preflight"
	"videowatch/internal/staging"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var checkTelegram bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report watcher, directory, and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			report := newStatusReport(out)

			report.section("Watcher")
			addWatcherLines(report, cfg, ctx.configPath)

			report.section("Directories")
			for _, r := range preflight.RunAll(cmd.Context(), cfg, false) {
				report.line(r.Name, passKind(r.Passed, statusError), r.Detail)
			}

			report.section("Dependencies")
			for _, dep := range preflight.CheckSystemDeps(cfg) {
				addDependencyLine(report, dep)
			}

			report.section("Delivery")
			addDeliveryLines(cmd, report, cfg, checkTelegram)

			report.section("Staging")
			addStagingLines(report, cfg)

			fmt.Fprint(out, report.String())
			if report.errors > 0 {
				return fmt.Errorf("%d %s failed", report.errors, pluralize(report.errors, "check", "checks"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkTelegram, "check-telegram", false, "Verify the bot token against the Telegram API")
	return cmd
}

func addWatcherLines(report *statusReport, cfg *config.Config, configPath string) {
	running, pid, err := daemonctl.ProcessInfo(cfg)
	switch {
	case err != nil && !running:
		report.line("Watcher", statusWarn, err.Error())
	case running && pid > 0:
		report.line("Watcher", statusOK, fmt.Sprintf("running (pid %d)", pid))
	case running:
		report.line("Watcher", statusOK, "running")
	default:
		report.line("Watcher", statusInfo, "not running")
	}
	report.line("Watch directory", statusInfo, fmt.Sprintf("%s (%s)", cfg.WatchDir, cfg.Watch.Mode))
	report.line("Lanes", statusInfo, fmt.Sprintf("%d, dedup window %d", cfg.Workers.Count, cfg.Dedup.Capacity))
	if configPath != "" {
		report.line("Config", statusInfo, configPath)
	}
}

func addDependencyLine(report *statusReport, dep preflight.ToolStatus) {
	if !dep.Available {
		kind := statusError
		if dep.BestEffort() {
			kind = statusWarn
		}
		report.line(dep.Name, kind, dep.Detail)
		return
	}
	version := preflight.ReadVersion(dep.Command, dep.VersionFlag)
	report.line(dep.Name, statusOK, fmt.Sprintf("%s (%s)", version.VersionDetail(), dep.StageList()))
}

func addDeliveryLines(cmd *cobra.Command, report *statusReport, cfg *config.Config, checkTelegram bool) {
	chat := strings.TrimSpace(cfg.Telegram.ChatID)
	report.line("Telegram chat", passKind(chat != "", statusError), chat)
	report.line("Bot token", passKind(strings.TrimSpace(cfg.Telegram.BotToken) != "", statusError),
		"present: "+yesNo(strings.TrimSpace(cfg.Telegram.BotToken) != ""))
	if checkTelegram {
		r := preflight.CheckTelegram(cmd.Context(), cfg.Telegram)
		report.line("Bot API", passKind(r.Passed, statusError), r.Detail)
	}
	report.line("Retry budget", statusInfo, fmt.Sprintf("%d attempts, %s apart", cfg.Delivery.MaxAttempts, cfg.RetryDelay()))

	ntfy := preflight.CheckNtfyFromConfig(cfg)
	report.line(ntfy.Name, passKind(ntfy.Passed, statusWarn), ntfy.Detail)
}

func addStagingLines(report *statusReport, cfg *config.Config) {
	temps, err := staging.ListTemps(cfg.TempDir)
	if err != nil {
		report.line("Temp previews", statusWarn, err.Error())
		return
	}
	maxAge := time.Duration(cfg.Staging.StaleTempHours) * time.Hour
	stale := 0
	for _, f := range temps {
		if maxAge > 0 && time.Since(f.ModTime) > maxAge {
			stale++
		}
	}
	switch {
	case stale > 0:
		report.line("Temp previews", statusWarn, fmt.Sprintf("%d on disk, %d stale (removed at next watcher start)", len(temps), stale))
	default:
		report.line("Temp previews", statusInfo, fmt.Sprintf("%d on disk", len(temps)))
	}

	if cfg.History.Enabled {
		detail := cfg.History.Path
		if !fileutil.Exists(cfg.History.Path) {
			detail += " (not created yet)"
		}
		report.line("History", statusInfo, detail)
	} else {
		report.line("History", statusInfo, "disabled")
	}
}

func passKind(passed bool, failKind statusKind) statusKind {
	if passed {
		return statusOK
	}
	return failKind
}
