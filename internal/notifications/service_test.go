package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"videowatch/internal/config"
	"videowatch/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventJobFailed, notifications.Payload{"source": "/w/a.mp4"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "job failed",
			event: notifications.EventJobFailed,
			payload: notifications.Payload{
				"source": "/videos/cam1/clip.mp4",
				"stage":  "transcode",
				"error":  errors.New("ffmpeg exited with status 1"),
			},
			expectTitle:    "videowatch - Conversion Failed",
			expectMessage:  "❌ clip.mp4 failed at transcode: ffmpeg exited with status 1",
			expectTags:     "videowatch,job,failed",
			expectPriority: "high",
		},
		{
			name:  "partial failure",
			event: notifications.EventPartialFailure,
			payload: notifications.Payload{
				"source": "/videos/clip.mp4",
				"error":  "snapshot: exit 1",
			},
			expectTitle:   "videowatch - Partial Failure",
			expectMessage: "⚠️ clip.mp4 converted with errors: snapshot: exit 1",
			expectTags:    "videowatch,job,partial",
		},
		{
			name:  "delivery failed",
			event: notifications.EventDeliveryFailed,
			payload: notifications.Payload{
				"source":   "/videos/gif/clip.gif",
				"attempts": 10,
				"error":    "connection reset",
			},
			expectTitle:    "videowatch - Delivery Failed",
			expectMessage:  "📭 Could not deliver clip.gif after 10 attempts: connection reset",
			expectTags:     "videowatch,delivery,failed",
			expectPriority: "high",
		},
		{
			name:  "daemon started",
			event: notifications.EventDaemonStarted,
			payload: notifications.Payload{
				"watchDir": "/videos/incoming",
				"mode":     "native",
			},
			expectTitle:    "videowatch - Started",
			expectMessage:  "👀 Watching /videos/incoming (native)",
			expectTags:     "videowatch,daemon,started",
			expectPriority: "low",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "videowatch - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "videowatch,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobFailures = false
	cfg.Notifications.DeliveryFailures = false

	svc := notifications.NewService(&cfg)
	suppressed := []notifications.Event{
		notifications.EventJobFailed,
		notifications.EventPartialFailure,
		notifications.EventDeliveryFailed,
		notifications.Event("unknown_event"),
	}

	for _, event := range suppressed {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"value": "ignored"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "topic forbidden") {
		t.Fatalf("unexpected error %v", err)
	}
}
