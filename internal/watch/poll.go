package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"videowatch/internal/logging"
)

const defaultPollInterval = 5 * time.Second

// PollSource rescans the tree every interval.
//
// The first scan is a silent baseline. A file that appears afterwards is
// reported once its size has held still across two consecutive scans, so a
// slow copy onto a network share is not picked up half written.
type PollSource struct {
	interval time.Duration
	logger   *slog.Logger
}

// NewPollSource constructs a PollSource.
func NewPollSource(interval time.Duration, logger *slog.Logger) *PollSource {
	return &PollSource{
		interval: durationOr(interval, defaultPollInterval),
		logger:   logging.NewComponentLogger(logger, "watch"),
	}
}

type entry struct {
	isDir bool
	size  int64
}

// Watch starts polling root.
func (s *PollSource) Watch(ctx context.Context, root string) (<-chan Event, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %q is not a directory", root)
	}

	baseline := scan(root, s.logger)
	out := make(chan Event, eventBuffer)
	go s.loop(ctx, root, baseline, out)

	s.logger.Info("polling watcher started",
		logging.String("root", root),
		logging.Duration("interval", s.interval),
		logging.Int("baseline_entries", len(baseline)),
		logging.String(logging.FieldEventType, "watch_started"),
	)
	return out, nil
}

func (s *PollSource) loop(ctx context.Context, root string, known map[string]entry, out chan<- Event) {
	defer close(out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	pending := make(map[string]int64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		current := scan(root, s.logger)
		for _, ev := range diff(known, current, pending) {
			if !send(ctx, out, ev) {
				return
			}
		}
	}
}

// diff compares a fresh scan to the known set, updating both known and
// pending in place, and returns the events to emit in path order.
func diff(known, current map[string]entry, pending map[string]int64) []Event {
	var events []Event

	for path, cur := range current {
		if _, ok := known[path]; ok {
			continue
		}
		if cur.isDir {
			known[path] = cur
			events = append(events, Event{Path: path, Kind: KindCreate, IsDir: true})
			continue
		}
		last, seen := pending[path]
		if !seen || last != cur.size {
			pending[path] = cur.size
			continue
		}
		delete(pending, path)
		known[path] = cur
		events = append(events, Event{Path: path, Kind: KindCreate})
	}

	for path, prev := range known {
		if _, ok := current[path]; !ok {
			delete(known, path)
			events = append(events, Event{Path: path, Kind: KindRemove, IsDir: prev.isDir})
		}
	}
	for path := range pending {
		if _, ok := current[path]; !ok {
			delete(pending, path)
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}

func scan(root string, logger *slog.Logger) map[string]entry {
	entries := make(map[string]entry)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skipping unreadable path", logging.String("path", path), logging.Error(err))
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			entries[path] = entry{isDir: true}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries[path] = entry{size: info.Size()}
		return nil
	})
	return entries
}
