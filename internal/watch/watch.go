// Package watch turns filesystem activity under a root directory into a
// stream of Events.
//
// Two sources are provided. NativeSource uses kernel notifications through
// fsnotify and follows newly created subdirectories. PollSource rescans the
// tree on an interval, for network mounts where notifications never arrive.
package watch

import (
	"context"
	"log/slog"
	"time"

	"videowatch/internal/config"
)

// Kind classifies a filesystem event.
type Kind string

const (
	KindCreate Kind = "create"
	KindWrite  Kind = "write"
	KindRemove Kind = "remove"
	KindRename Kind = "rename"
)

// Event is one observed change.
type Event struct {
	Path  string
	Kind  Kind
	IsDir bool
}

// Source produces events for everything under root until ctx is done, then
// closes the channel.
type Source interface {
	Watch(ctx context.Context, root string) (<-chan Event, error)
}

const eventBuffer = 64

// New returns the source selected by watch.mode.
func New(cfg *config.Config, logger *slog.Logger) Source {
	if cfg.Watch.Mode == config.WatchModePoll {
		return NewPollSource(cfg.PollInterval(), logger)
	}
	return NewNativeSource(logger)
}

// send delivers ev unless ctx ends first.
func send(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
