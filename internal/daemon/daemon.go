package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"videowatch/internal/config"
	"videowatch/internal/logging"
	"videowatch/internal/notifications"
	"videowatch/internal/watch"
)

// Runner consumes watch events until ctx ends or the channel closes.
type Runner interface {
	Run(ctx context.Context, events <-chan watch.Event) error
}

// Daemon coordinates the watcher and dispatcher and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	source     watch.Source
	dispatcher Runner
	alerts     notifications.Service

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	WatchDir     string
	WatchMode    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, source watch.Source, dispatcher Runner, alerts notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || source == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config, watch source, and dispatcher")
	}
	if alerts == nil {
		alerts = notifications.NewService(&config.Config{})
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		source:     source,
		dispatcher: dispatcher,
		alerts:     alerts,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, begins watching, and hands events to the
// dispatcher in the background.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another videowatch instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := d.source.Watch(runCtx, d.cfg.WatchDir)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start watcher: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- d.dispatcher.Run(runCtx, events)
	}()

	d.cancel = cancel
	d.done = done
	d.running.Store(true)

	d.logger.Info("videowatch daemon started",
		logging.String("watch_dir", d.cfg.WatchDir),
		logging.String("mode", d.cfg.Watch.Mode),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	if err := d.alerts.Publish(ctx, notifications.EventDaemonStarted, notifications.Payload{
		"watchDir": d.cfg.WatchDir,
		"mode":     d.cfg.Watch.Mode,
	}); err != nil {
		d.logger.Debug("start notification failed", logging.Error(err))
	}
	return nil
}

// Stop stops watching, waits for queued jobs to settle, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.done != nil {
		if err := <-d.done; err != nil {
			d.logger.Warn("dispatcher exited with error", logging.Error(err))
		}
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("videowatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Status returns runtime information for the daemon.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		WatchDir:     d.cfg.WatchDir,
		WatchMode:    d.cfg.Watch.Mode,
		LockFilePath: d.lockPath,
	}
}
