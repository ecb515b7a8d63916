package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Video controls which source files are accepted.
type Video struct {
	Extensions []string `toml:"extensions" json:"extensions"`
}

// Watch selects the filesystem observer implementation.
type Watch struct {
	Mode                string `toml:"mode" json:"mode"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds" json:"poll_interval_seconds"`
}

// Dedup sizes the recently-processed window.
type Dedup struct {
	Capacity int `toml:"capacity" json:"capacity"`
}

// Workers controls the per-path worker lanes.
type Workers struct {
	Count     int `toml:"count" json:"count"`
	QueueSize int `toml:"queue_size" json:"queue_size"`
}

// Tools names the external executables used by the conversion pipeline.
type Tools struct {
	FFmpeg                string `toml:"ffmpeg" json:"ffmpeg"`
	Gifsicle              string `toml:"gifsicle" json:"gifsicle"`
	MP4Box                string `toml:"mp4box" json:"mp4box"`
	SnapshotOffsetSeconds int    `toml:"snapshot_offset_seconds" json:"snapshot_offset_seconds"`
}

// Telegram contains the delivery channel credentials.
type Telegram struct {
	BotToken       string `toml:"bot_token" json:"bot_token"`
	ChatID         string `toml:"chat_id" json:"chat_id"`
	Caption        string `toml:"caption" json:"caption"`
	APIEndpoint    string `toml:"api_endpoint" json:"api_endpoint"`
	RequestTimeout int    `toml:"request_timeout" json:"request_timeout"`
}

// Delivery controls the retry budget for preview delivery.
type Delivery struct {
	MaxAttempts       int `toml:"max_attempts" json:"max_attempts"`
	RetryDelaySeconds int `toml:"retry_delay_seconds" json:"retry_delay_seconds"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic        string `toml:"ntfy_topic" json:"ntfy_topic"`
	RequestTimeout   int    `toml:"request_timeout" json:"request_timeout"`
	JobFailures      bool   `toml:"job_failures" json:"job_failures"`
	DeliveryFailures bool   `toml:"delivery_failures" json:"delivery_failures"`
}

// History configures the job history ledger.
type History struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path" json:"path"`
}

// Paths contains state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir" json:"state_dir"`
	LogDir   string `toml:"log_dir" json:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" json:"format"`
	Level         string `toml:"level" json:"level"`
	RetentionDays int    `toml:"retention_days" json:"retention_days"`
}

// Staging controls cleanup of temp previews orphaned by an interrupted run.
type Staging struct {
	StaleTempHours int `toml:"stale_temp_hours" json:"stale_temp_hours"`
}

// Config encapsulates all configuration values for videowatch.
//
// The four video_* directories sit at the top level so configuration files
// in the legacy JSON layout keep working. Everything else is
// grouped by subsystem:
//   - Video: accepted source extensions
//   - Watch: native vs polling observer
//   - Dedup: recently-processed window size
//   - Workers: per-path worker lanes
//   - Tools: ffmpeg/gifsicle/MP4Box binaries
//   - Telegram: delivery channel
//   - Delivery: retry budget
//   - Notifications: ntfy operator alerts
//   - History: SQLite job ledger
//   - Paths: state and log directories
//   - Logging: log format, level, and retention
//   - Staging: stale temp preview cleanup
type Config struct {
	WatchDir     string `toml:"video_watch_dir" json:"video_watch_dir"`
	TempDir      string `toml:"video_temp_dir" json:"video_temp_dir"`
	GIFDir       string `toml:"video_gif_dir" json:"video_gif_dir"`
	ProcessedDir string `toml:"video_processed_dir" json:"video_processed_dir"`

	Video         Video         `toml:"video" json:"video"`
	Watch         Watch         `toml:"watch" json:"watch"`
	Dedup         Dedup         `toml:"dedup" json:"dedup"`
	Workers       Workers       `toml:"workers" json:"workers"`
	Tools         Tools         `toml:"tools" json:"tools"`
	Telegram      Telegram      `toml:"telegram" json:"telegram"`
	Delivery      Delivery      `toml:"delivery" json:"delivery"`
	Notifications Notifications `toml:"notifications" json:"notifications"`
	History       History       `toml:"history" json:"history"`
	Paths         Paths         `toml:"paths" json:"paths"`
	Logging       Logging       `toml:"logging" json:"logging"`
	Staging       Staging       `toml:"staging" json:"staging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := decode(file, resolvedPath, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// decode picks the decoder from the file extension. JSON is accepted for
// legacy configuration files.
func decode(r io.Reader, path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		decoder := json.NewDecoder(r)
		return decoder.Decode(cfg)
	}
	decoder := toml.NewDecoder(r)
	return decoder.Decode(cfg)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("videowatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories the watcher writes to.
// The watch root itself is left alone; it usually lives on a mount owned by
// the camera or NVR.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.TempDir, c.GIFDir, c.ProcessedDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		if err := os.MkdirAll(filepath.Dir(c.History.Path), 0o755); err != nil {
			return fmt.Errorf("create history directory: %w", err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "videowatch.lock")
}

// PollInterval returns the polling watcher interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watch.PollIntervalSeconds) * time.Second
}

// RetryDelay returns the fixed delay between delivery attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Delivery.RetryDelaySeconds) * time.Second
}

// SnapshotOffset returns the thumbnail seek position.
func (c *Config) SnapshotOffset() time.Duration {
	return time.Duration(c.Tools.SnapshotOffsetSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
