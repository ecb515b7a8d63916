package delivery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"videowatch/internal/config"
)

type upload struct {
	chatID    string
	caption   string
	streaming string
	filename  string
	body      string
}

type fakeBotAPI struct {
	token string

	mu       sync.Mutex
	getMe    int
	uploads  []upload
	failSend bool
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	prefix := "/bot" + f.token + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch strings.TrimPrefix(r.URL.Path, prefix) {
	case "getMe":
		f.getMe++
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Cam","username":"cam_bot"}}`))
	case "sendVideo":
		if f.failSend {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":500,"description":"Internal Server Error"}`))
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		up := upload{
			chatID:    r.FormValue("chat_id"),
			caption:   r.FormValue("caption"),
			streaming: r.FormValue("supports_streaming"),
		}
		if file, header, err := r.FormFile("video"); err == nil {
			data, _ := io.ReadAll(file)
			_ = file.Close()
			up.filename = header.Filename
			up.body = string(data)
		}
		f.uploads = append(f.uploads, up)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func newTestSender(t *testing.T, api *fakeBotAPI, chatID string) *TelegramSender {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewTelegramSender(config.Telegram{
		BotToken:       api.token,
		ChatID:         chatID,
		APIEndpoint:    srv.URL + "/bot%s/%s",
		RequestTimeout: 5,
	})
}

func TestTelegramSenderUploadsVideo(t *testing.T) {
	api := &fakeBotAPI{token: "123:abc"}
	sender := newTestSender(t, api, "42")
	path := filepath.Join(t.TempDir(), "clip.gif")
	if err := os.WriteFile(path, []byte("GIF89a-data"), 0o644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := sender.SendVideo(context.Background(), Video{Path: path, Caption: "Motion detected", Streaming: true}); err != nil {
			t.Fatalf("SendVideo returned error: %v", err)
		}
	}

	if api.getMe != 1 {
		t.Fatalf("expected bot to be created once, got %d getMe calls", api.getMe)
	}
	if len(api.uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(api.uploads))
	}
	up := api.uploads[0]
	if up.chatID != "42" || up.caption != "Motion detected" || up.streaming != "true" {
		t.Fatalf("unexpected upload fields %+v", up)
	}
	if up.filename != "clip.gif" || up.body != "GIF89a-data" {
		t.Fatalf("unexpected uploaded file %q (%q)", up.filename, up.body)
	}
}

func TestTelegramSenderChannelUsername(t *testing.T) {
	api := &fakeBotAPI{token: "123:abc"}
	sender := newTestSender(t, api, "@cameras")
	path := filepath.Join(t.TempDir(), "clip.gif")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := sender.SendVideo(context.Background(), Video{Path: path}); err != nil {
		t.Fatalf("SendVideo returned error: %v", err)
	}
	if api.uploads[0].chatID != "@cameras" {
		t.Fatalf("expected channel username, got %q", api.uploads[0].chatID)
	}
}

func TestTelegramSenderErrors(t *testing.T) {
	api := &fakeBotAPI{token: "123:abc", failSend: true}
	sender := newTestSender(t, api, "42")
	path := filepath.Join(t.TempDir(), "clip.gif")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := sender.SendVideo(context.Background(), Video{Path: path}); err == nil {
		t.Fatal("expected error from failing sendVideo")
	}

	badToken := newTestSender(t, &fakeBotAPI{token: "other"}, "42")
	badToken.token = "123:abc"
	if _, err := badToken.Verify(context.Background()); err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected unauthorized getMe error, got %v", err)
	}

	badChat := newTestSender(t, &fakeBotAPI{token: "123:abc"}, "not-a-number")
	if err := badChat.SendVideo(context.Background(), Video{Path: path}); err == nil {
		t.Fatal("expected error for malformed chat id")
	}
}

func TestTelegramSenderVerify(t *testing.T) {
	sender := newTestSender(t, &fakeBotAPI{token: "123:abc"}, "42")
	name, err := sender.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if name != "cam_bot" {
		t.Fatalf("unexpected bot username %q", name)
	}
}
