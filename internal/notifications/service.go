package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"videowatch/internal/config"
)

const userAgent = "videowatch/0.1.0"

// Event names an operator alert.
type Event string

const (
	EventJobFailed      Event = "job_failed"
	EventDeliveryFailed Event = "delivery_failed"
	EventPartialFailure Event = "partial_failure"
	EventDaemonStarted  Event = "daemon_started"
	EventTest           Event = "test"
)

// Payload carries event fields. Known keys: source, stage, error, attempts,
// watchDir, mode.
type Payload map[string]any

// Service publishes operator alerts.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventJobFailed:      cfg.Notifications.JobFailures,
			EventPartialFailure: cfg.Notifications.JobFailures,
			EventDeliveryFailed: cfg.Notifications.DeliveryFailures,
			EventDaemonStarted:  true,
			EventTest:           true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	source := filepath.Base(stringValue(data, "source"))
	switch event {
	case EventJobFailed:
		return payload{
			title:    "videowatch - Conversion Failed",
			message:  fmt.Sprintf("❌ %s failed at %s: %s", source, orUnknown(stringValue(data, "stage")), orUnknown(stringValue(data, "error"))),
			tags:     []string{"videowatch", "job", "failed"},
			priority: "high",
		}, true
	case EventPartialFailure:
		return payload{
			title:   "videowatch - Partial Failure",
			message: fmt.Sprintf("⚠️ %s converted with errors: %s", source, orUnknown(stringValue(data, "error"))),
			tags:    []string{"videowatch", "job", "partial"},
		}, true
	case EventDeliveryFailed:
		return payload{
			title:    "videowatch - Delivery Failed",
			message:  fmt.Sprintf("📭 Could not deliver %s after %s attempts: %s", source, orUnknown(stringValue(data, "attempts")), orUnknown(stringValue(data, "error"))),
			tags:     []string{"videowatch", "delivery", "failed"},
			priority: "high",
		}, true
	case EventDaemonStarted:
		return payload{
			title:    "videowatch - Started",
			message:  fmt.Sprintf("👀 Watching %s (%s)", orUnknown(stringValue(data, "watchDir")), orUnknown(stringValue(data, "mode"))),
			tags:     []string{"videowatch", "daemon", "started"},
			priority: "low",
		}, true
	case EventTest:
		return payload{
			title:    "videowatch - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"videowatch", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func stringValue(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func orUnknown(value string) string {
	if value == "" || value == "." {
		return "unknown"
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
