package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"videowatch/internal/config"
	"videowatch/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

type envOption func(*envSettings)

type envSettings struct {
	endpoint string
}

func withTelegramEndpoint(endpoint string) envOption {
	return func(s *envSettings) { s.endpoint = endpoint }
}

func setupCLITestEnv(t *testing.T, opts ...envOption) *cliTestEnv {
	t.Helper()

	settings := envSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	if settings.endpoint != "" {
		cfg.Telegram.APIEndpoint = settings.endpoint
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	lines := []string{
		fmt.Sprintf("video_watch_dir = %q", cfg.WatchDir),
		fmt.Sprintf("video_temp_dir = %q", cfg.TempDir),
		fmt.Sprintf("video_gif_dir = %q", cfg.GIFDir),
		fmt.Sprintf("video_processed_dir = %q", cfg.ProcessedDir),
		"",
		"[paths]",
		fmt.Sprintf("state_dir = %q", cfg.Paths.StateDir),
		fmt.Sprintf("log_dir = %q", cfg.Paths.LogDir),
		"",
		"[history]",
		fmt.Sprintf("path = %q", cfg.History.Path),
		"",
		"[delivery]",
		"max_attempts = 2",
		"retry_delay_seconds = 0",
		"",
		"[telegram]",
		fmt.Sprintf("bot_token = %q", cfg.Telegram.BotToken),
		fmt.Sprintf("chat_id = %q", cfg.Telegram.ChatID),
		fmt.Sprintf("api_endpoint = %q", cfg.Telegram.APIEndpoint),
		"request_timeout = 5",
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeBotAPI answers the two Bot API methods videowatch calls.
type fakeBotAPI struct {
	token string

	mu    sync.Mutex
	sends int
}

func newFakeBotAPI(t *testing.T, token string) (*fakeBotAPI, string) {
	t.Helper()
	api := &fakeBotAPI{token: token}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return api, srv.URL + "/bot%s/%s"
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	prefix := "/bot" + f.token + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		return
	}
	switch strings.TrimPrefix(r.URL.Path, prefix) {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"Cam","username":"cam_bot"}}`))
	case "sendVideo":
		f.mu.Lock()
		f.sends++
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":12345,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func (f *fakeBotAPI) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}
