package delivery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"videowatch/internal/config"
	"videowatch/internal/logging"
	"videowatch/internal/services"
)

type stubSender struct {
	mu        sync.Mutex
	failUntil int
	calls     int
	videos    []Video
}

func (s *stubSender) SendVideo(_ context.Context, video Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.videos = append(s.videos, video)
	if s.failUntil < 0 || s.calls <= s.failUntil {
		return errors.New("connection reset")
	}
	return nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.gif")
	if err := os.WriteFile(path, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDeliverSucceedsFirstAttempt(t *testing.T) {
	sender := &stubSender{}
	sleeps := &sleepRecorder{}
	n := New(sender, logging.NewNop(), WithSleeper(sleeps.sleep))
	artifact := writeArtifact(t)

	result := n.Deliver(context.Background(), artifact)

	if !result.Delivered || result.Err != nil {
		t.Fatalf("expected delivery, got %+v", result)
	}
	if result.Attempts != 1 || len(sleeps.delays) != 0 {
		t.Fatalf("attempts=%d sleeps=%d", result.Attempts, len(sleeps.delays))
	}
	video := sender.videos[0]
	if video.Path != artifact || video.Caption != "Motion detected" || !video.Streaming {
		t.Fatalf("unexpected upload request %+v", video)
	}
}

func TestDeliverRetriesWithFixedDelay(t *testing.T) {
	sender := &stubSender{failUntil: -1}
	sleeps := &sleepRecorder{}
	n := New(sender, logging.NewNop(), WithSleeper(sleeps.sleep))

	result := n.Deliver(context.Background(), writeArtifact(t))

	if result.Delivered {
		t.Fatal("expected delivery to fail")
	}
	if !errors.Is(result.Err, services.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", result.Err)
	}
	if result.Attempts != 10 || sender.calls != 10 {
		t.Fatalf("expected exactly 10 attempts, got %d (calls %d)", result.Attempts, sender.calls)
	}
	if len(sleeps.delays) != 9 {
		t.Fatalf("expected 9 waits between 10 attempts, got %d", len(sleeps.delays))
	}
	for _, d := range sleeps.delays {
		if d != 5*time.Second {
			t.Fatalf("expected fixed 5s delay, got %s", d)
		}
	}
}

func TestDeliverSucceedsOnThirdAttempt(t *testing.T) {
	sender := &stubSender{failUntil: 2}
	sleeps := &sleepRecorder{}
	n := New(sender, logging.NewNop(), WithSleeper(sleeps.sleep))

	result := n.Deliver(context.Background(), writeArtifact(t))

	if !result.Delivered || result.Attempts != 3 {
		t.Fatalf("expected success on attempt 3, got %+v", result)
	}
	if len(sleeps.delays) != 2 {
		t.Fatalf("expected 2 waits, got %d", len(sleeps.delays))
	}
}

func TestDeliverLeavesArtifactInPlace(t *testing.T) {
	artifact := writeArtifact(t)
	n := New(&stubSender{failUntil: -1}, logging.NewNop(), WithRetry(2, 0))

	result := n.Deliver(context.Background(), artifact)

	if result.Delivered || result.Attempts != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact must survive failed delivery: %v", err)
	}
}

func TestDeliverMissingArtifact(t *testing.T) {
	sender := &stubSender{}
	n := New(sender, logging.NewNop())

	result := n.Deliver(context.Background(), filepath.Join(t.TempDir(), "missing.gif"))

	if !errors.Is(result.Err, services.ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", result.Err)
	}
	if sender.calls != 0 || result.Attempts != 0 {
		t.Fatal("sender must not be called for a missing artifact")
	}
}

func TestDeliverStopsWhenContextCancelled(t *testing.T) {
	sender := &stubSender{failUntil: -1}
	ctx, cancel := context.WithCancel(context.Background())
	n := New(sender, logging.NewNop(), WithSleeper(func(time.Duration) { cancel() }))

	result := n.Deliver(ctx, writeArtifact(t))

	if result.Delivered {
		t.Fatal("expected failure after cancellation")
	}
	if result.Attempts != 1 {
		t.Fatalf("expected retries to stop after cancellation, got %d attempts", result.Attempts)
	}
	if !errors.Is(result.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled in error chain, got %v", result.Err)
	}
}

func TestNewFromConfigAppliesSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Delivery.MaxAttempts = 3
	cfg.Delivery.RetryDelaySeconds = 1
	cfg.Telegram.Caption = "Front door"
	sender := &stubSender{failUntil: -1}
	sleeps := &sleepRecorder{}

	n := NewFromConfig(&cfg, sender, logging.NewNop(), WithSleeper(sleeps.sleep))
	result := n.Deliver(context.Background(), writeArtifact(t))

	if n.MaxAttempts() != 3 || result.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", result.Attempts)
	}
	if len(sleeps.delays) != 2 || sleeps.delays[0] != time.Second {
		t.Fatalf("unexpected waits %v", sleeps.delays)
	}
	if sender.videos[0].Caption != "Front door" {
		t.Fatalf("unexpected caption %q", sender.videos[0].Caption)
	}
}
