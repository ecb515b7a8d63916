package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"videowatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The watch, temp, gif, and processed directories are created so pipeline
// stages can write into them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.WatchDir = filepath.Join(base, "watch")
	cfgVal.TempDir = filepath.Join(base, "tmp")
	cfgVal.GIFDir = filepath.Join(base, "gif")
	cfgVal.ProcessedDir = filepath.Join(base, "processed")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.History.Path = filepath.Join(base, "state", "history.db")
	cfgVal.Telegram.BotToken = "test-token"
	cfgVal.Telegram.ChatID = "12345"
	cfgVal.Delivery.RetryDelaySeconds = 0

	for _, dir := range []string{cfgVal.WatchDir, cfgVal.TempDir, cfgVal.GIFDir, cfgVal.ProcessedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTelegram overrides the bot credentials and API endpoint.
func WithTelegram(token, chatID, endpoint string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Telegram.BotToken = token
		b.cfg.Telegram.ChatID = chatID
		if endpoint != "" {
			b.cfg.Telegram.APIEndpoint = endpoint
		}
	}
}

// WithWorkers sets the lane count.
func WithWorkers(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Count = count
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default videowatch external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "gifsicle", "MP4Box"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.WatchDir)
}
