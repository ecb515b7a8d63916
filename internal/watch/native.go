package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"videowatch/internal/logging"
)

// NativeSource watches a tree recursively with fsnotify.
type NativeSource struct {
	logger *slog.Logger
}

// NewNativeSource constructs a NativeSource.
func NewNativeSource(logger *slog.Logger) *NativeSource {
	return &NativeSource{logger: logging.NewComponentLogger(logger, "watch")}
}

// Watch registers root and every directory beneath it. Directories created
// later are registered as they appear; files already inside them when they
// are picked up are reported as creates so nothing moved in as a tree is lost.
func (s *NativeSource) Watch(ctx context.Context, root string) (<-chan Event, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %q is not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if _, err := s.addTree(watcher, root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan Event, eventBuffer)
	go s.loop(ctx, watcher, out)

	s.logger.Info("native watcher started",
		logging.String("root", root),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	return out, nil
}

func (s *NativeSource) loop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- Event) {
	defer close(out)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.handle(ctx, watcher, ev, out) {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.WarnWithContext(s.logger, "filesystem watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_user_watches or switch watch.mode to poll"),
				logging.String(logging.FieldImpact, "some file events may have been missed"),
			)
		}
	}
}

func (s *NativeSource) handle(ctx context.Context, watcher *fsnotify.Watcher, ev fsnotify.Event, out chan<- Event) bool {
	kind, ok := kindOf(ev.Op)
	if !ok {
		return true
	}
	event := Event{Path: ev.Name, Kind: kind}
	if kind == KindCreate {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			event.IsDir = true
		}
	}
	if !send(ctx, out, event) {
		return false
	}
	if !event.IsDir {
		return true
	}

	files, err := s.addTree(watcher, ev.Name)
	if err != nil {
		logging.WarnWithContext(s.logger, "failed to watch new directory", "watch_add_failed",
			logging.String("path", ev.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "files created in this directory will be missed"),
		)
	}
	for _, file := range files {
		if !send(ctx, out, Event{Path: file, Kind: KindCreate}) {
			return false
		}
	}
	return true
}

// addTree registers dir and its subdirectories and returns the regular
// files found along the way.
func (s *NativeSource) addTree(watcher *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			s.logger.Debug("skipping unreadable path", logging.String("path", path), logging.Error(err))
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if path != dir && d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func kindOf(op fsnotify.Op) (Kind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return KindCreate, true
	case op.Has(fsnotify.Write):
		return KindWrite, true
	case op.Has(fsnotify.Remove):
		return KindRemove, true
	case op.Has(fsnotify.Rename):
		return KindRename, true
	default:
		return "", false
	}
}
