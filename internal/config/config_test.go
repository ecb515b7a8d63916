package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"videowatch/internal/config"
)

func writeDirsConfig(t *testing.T, dir string, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "videowatch.toml")
	body := strings.Join([]string{
		`video_watch_dir = "` + filepath.Join(dir, "watch") + `"`,
		`video_temp_dir = "` + filepath.Join(dir, "tmp") + `"`,
		`video_gif_dir = "` + filepath.Join(dir, "gif") + `"`,
		`video_processed_dir = "` + filepath.Join(dir, "processed") + `"`,
		extra,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadUsesEnvTelegramCredentialsAndDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := writeDirsConfig(t, tempHome, "")
	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Fatalf("expected bot token from env, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.ChatID != "-100123" {
		t.Fatalf("expected chat id from env, got %q", cfg.Telegram.ChatID)
	}
	if cfg.Dedup.Capacity != 20 {
		t.Fatalf("expected dedup capacity 20, got %d", cfg.Dedup.Capacity)
	}
	if cfg.Delivery.MaxAttempts != 10 {
		t.Fatalf("expected 10 delivery attempts, got %d", cfg.Delivery.MaxAttempts)
	}
	if cfg.RetryDelay().Seconds() != 5 {
		t.Fatalf("expected 5s retry delay, got %s", cfg.RetryDelay())
	}
	if len(cfg.Video.Extensions) != 1 || cfg.Video.Extensions[0] != ".mp4" {
		t.Fatalf("unexpected default extensions: %v", cfg.Video.Extensions)
	}
	if cfg.Watch.Mode != config.WatchModeNative {
		t.Fatalf("unexpected watch mode: %q", cfg.Watch.Mode)
	}

	wantState := filepath.Join(tempHome, ".local", "share", "videowatch")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.LogDir != filepath.Join(wantState, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.History.Path != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.TempDir, cfg.GIFDir, cfg.ProcessedDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "custom.toml")

	type payload struct {
		WatchDir     string `toml:"video_watch_dir"`
		TempDir      string `toml:"video_temp_dir"`
		GIFDir       string `toml:"video_gif_dir"`
		ProcessedDir string `toml:"video_processed_dir"`
		Video        struct {
			Extensions []string `toml:"extensions"`
		} `toml:"video"`
		Dedup struct {
			Capacity int `toml:"capacity"`
		} `toml:"dedup"`
		Telegram struct {
			BotToken string `toml:"bot_token"`
			ChatID   string `toml:"chat_id"`
			Caption  string `toml:"caption"`
		} `toml:"telegram"`
	}
	custom := payload{
		WatchDir:     filepath.Join(tempDir, "watch"),
		TempDir:      filepath.Join(tempDir, "t"),
		GIFDir:       filepath.Join(tempDir, "g"),
		ProcessedDir: filepath.Join(tempDir, "p"),
	}
	custom.Video.Extensions = []string{"MP4", ".mov", ".mp4"}
	custom.Dedup.Capacity = 50
	custom.Telegram.BotToken = "file-token"
	custom.Telegram.ChatID = "@cameras"
	custom.Telegram.Caption = "Front door"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Dedup.Capacity != 50 {
		t.Fatalf("expected dedup capacity 50, got %d", cfg.Dedup.Capacity)
	}
	if cfg.Telegram.Caption != "Front door" {
		t.Fatalf("expected caption override, got %q", cfg.Telegram.Caption)
	}
	if cfg.Telegram.ChatID != "@cameras" {
		t.Fatalf("expected chat id from file, got %q", cfg.Telegram.ChatID)
	}
	want := []string{".mp4", ".mov"}
	if strings.Join(cfg.Video.Extensions, ",") != strings.Join(want, ",") {
		t.Fatalf("expected normalized extensions %v, got %v", want, cfg.Video.Extensions)
	}
	if cfg.GIFDir != filepath.Join(tempDir, "g") {
		t.Fatalf("unexpected gif dir: %q", cfg.GIFDir)
	}
}

func TestLoadLegacyJSONConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")
	body := `{
  "video_watch_dir": "` + filepath.Join(tempDir, "watch") + `",
  "video_temp_dir": "` + filepath.Join(tempDir, "tmp") + `",
  "video_gif_dir": "` + filepath.Join(tempDir, "gif") + `",
  "video_processed_dir": "` + filepath.Join(tempDir, "processed") + `",
  "telegram": {"bot_token": "json-token", "chat_id": "42"}
}`
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write json config: %v", err)
	}

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected json config to exist")
	}
	if cfg.WatchDir != filepath.Join(tempDir, "watch") {
		t.Fatalf("unexpected watch dir: %q", cfg.WatchDir)
	}
	if cfg.Telegram.BotToken != "json-token" || cfg.Telegram.ChatID != "42" {
		t.Fatalf("unexpected telegram settings: %+v", cfg.Telegram)
	}
	if cfg.Delivery.MaxAttempts != 10 {
		t.Fatalf("expected defaults preserved, got %d attempts", cfg.Delivery.MaxAttempts)
	}
}

func TestLoadRejectsMissingDirectories(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "1")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "videowatch.toml")
	if err := os.WriteFile(configPath, []byte(`video_temp_dir = "/tmp/x"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for missing video_watch_dir")
	}
	if !strings.Contains(err.Error(), "video_watch_dir") {
		t.Fatalf("expected error to name video_watch_dir, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "video_watch_dir") {
		t.Fatalf("sample config missing watch dir: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Dedup.Capacity != 20 {
		t.Fatalf("expected sample dedup capacity 20, got %d", cfg.Dedup.Capacity)
	}
	if cfg.Tools.Gifsicle != "gifsicle" {
		t.Fatalf("expected sample gifsicle binary, got %q", cfg.Tools.Gifsicle)
	}
}

func validConfig() config.Config {
	cfg := config.Default()
	cfg.WatchDir = "/watch"
	cfg.TempDir = "/t"
	cfg.GIFDir = "/g"
	cfg.ProcessedDir = "/p"
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "1"
	return cfg
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg = validConfig()
	cfg.Dedup.Capacity = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive dedup capacity")
	}

	cfg = validConfig()
	cfg.Delivery.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive attempts")
	}

	cfg = validConfig()
	cfg.Watch.Mode = "inotify"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown watch mode")
	}

	cfg = validConfig()
	cfg.Watch.Mode = config.WatchModePoll
	cfg.Watch.PollIntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero poll interval")
	}

	cfg = validConfig()
	cfg.Telegram.ChatID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when chat id missing")
	}

	cfg = validConfig()
	cfg.GIFDir = cfg.TempDir
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when temp and gif dirs collide")
	}

	cfg = validConfig()
	cfg.Logging.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported log format")
	}

	cfg = validConfig()
	cfg.WatchDir = "/videos"
	cfg.GIFDir = "/videos-gif"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sibling directory with a shared prefix should be allowed, got %v", err)
	}
}

func TestValidateRejectsOutputDirsInsideWatchDir(t *testing.T) {
	cases := map[string]func(*config.Config){
		"processed nested": func(c *config.Config) { c.ProcessedDir = "/watch/processed" },
		"gif nested":       func(c *config.Config) { c.GIFDir = "/watch/cam1/gif" },
		"temp is root":     func(c *config.Config) { c.TempDir = "/watch" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error for output directory under the watch root")
			}
			if !strings.Contains(err.Error(), "video_watch_dir") {
				t.Fatalf("expected error to name video_watch_dir, got %v", err)
			}
		})
	}
}

