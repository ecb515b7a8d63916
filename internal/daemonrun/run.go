package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"videowatch/internal/config"
	"videowatch/internal/daemon"
	"videowatch/internal/daemonctl"
	"videowatch/internal/delivery"
	"videowatch/internal/dispatch"
	"videowatch/internal/history"
	"videowatch/internal/logging"
	"videowatch/internal/notifications"
	"videowatch/internal/pipeline"
	"videowatch/internal/preflight"
	"videowatch/internal/services"
	"videowatch/internal/staging"
	"videowatch/internal/watch"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel      string
	WithCaller    bool
	SkipTelegram  bool
	SkipPreflight bool
}

// Run starts the videowatch daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "ensure directories", "", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("videowatch-%s.log", runID))

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:      level,
		Format:     cfg.Logging.Format,
		Outputs:    []string{"stdout", logPath},
		WithCaller: opts.WithCaller,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update videowatch.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "videowatch-*.log", Exclude: []string{logPath}},
	)
	pidPath := daemonctl.PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	if !opts.SkipPreflight {
		if err := runPreflight(signalCtx, cfg, logger, !opts.SkipTelegram); err != nil {
			return err
		}
	}

	if cfg.Staging.StaleTempHours > 0 {
		staging.CleanStale(signalCtx, cfg.TempDir, time.Duration(cfg.Staging.StaleTempHours)*time.Hour, logger)
	}

	alerts := notifications.NewService(cfg)
	dispatchOpts := []dispatch.Option{dispatch.WithAlerts(alerts)}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path permissions or set history.enabled = false"),
				logging.String(logging.FieldImpact, "jobs will not be recorded"),
			)
		} else {
			defer store.Close()
			dispatchOpts = append(dispatchOpts, dispatch.WithHistory(store))
		}
	}

	dispatcher := NewDispatcher(cfg, logger, dispatchOpts...)
	d, err := daemon.New(cfg, watch.New(cfg, logger), dispatcher, alerts, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check video_watch_dir and that no other videowatch instance is running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("videowatch daemon shutting down")
	return nil
}

// NewDispatcher wires the conversion pipeline and Telegram delivery behind a
// dispatcher configured from cfg.
func NewDispatcher(cfg *config.Config, logger *slog.Logger, opts ...dispatch.Option) *dispatch.Dispatcher {
	converter := pipeline.New(nil, pipeline.ToolsFromConfig(cfg), logger)
	notifier := delivery.NewFromConfig(cfg, delivery.NewTelegramSender(cfg.Telegram), logger)
	return dispatch.NewFromConfig(cfg, converter, notifier, logger, opts...)
}

func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger, checkTelegram bool) error {
	results := preflight.RunAll(ctx, cfg, checkTelegram)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
		}
	}
	failed := preflight.Failed(results)
	for _, tool := range preflight.CheckSystemDeps(cfg) {
		switch {
		case tool.Available:
		case tool.BestEffort():
			logging.WarnWithContext(logger, "optional tool missing", "tool_missing",
				logging.String("tool", tool.Name),
				logging.String("stage", tool.StageList()),
				logging.String("detail", tool.Detail),
				logging.String(logging.FieldImpact, "stage is skipped and recorded as a partial failure"),
			)
		default:
			failed = append(failed, preflight.Result{Name: tool.Name, Detail: tool.Detail})
		}
	}
	if len(failed) == 0 {
		return nil
	}
	details := make([]string, 0, len(failed))
	for _, r := range failed {
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the configuration and restart; run videowatch status for details"),
		)
		details = append(details, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "daemon", "preflight", strings.Join(details, "; "), nil)
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "videowatch.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("telegram_token_present", strings.TrimSpace(cfg.Telegram.BotToken) != ""),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.String("watch_mode", cfg.Watch.Mode),
		logging.Int("workers", cfg.Workers.Count),
	}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
			logging.Bool(key+"_best_effort", status.BestEffort()),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
