package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVideoDirs(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"dedup.capacity":                c.Dedup.Capacity,
		"workers.count":                 c.Workers.Count,
		"workers.queue_size":            c.Workers.QueueSize,
		"delivery.max_attempts":         c.Delivery.MaxAttempts,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Delivery.RetryDelaySeconds < 0 {
		return errors.New("delivery.retry_delay_seconds must be >= 0")
	}
	if c.Tools.SnapshotOffsetSeconds < 0 {
		return errors.New("tools.snapshot_offset_seconds must be >= 0")
	}
	if c.Staging.StaleTempHours < 0 {
		return errors.New("staging.stale_temp_hours must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validateVideoDirs() error {
	required := []struct {
		key   string
		value string
	}{
		{"video_watch_dir", c.WatchDir},
		{"video_temp_dir", c.TempDir},
		{"video_gif_dir", c.GIFDir},
		{"video_processed_dir", c.ProcessedDir},
	}
	for _, entry := range required {
		if strings.TrimSpace(entry.value) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("%s is required. Edit %s (create with 'videowatch config init')", entry.key, defaultPath)
		}
	}
	if c.TempDir == c.GIFDir {
		return errors.New("video_temp_dir and video_gif_dir must differ; the temp preview would overwrite the final preview")
	}
	outputs := []struct {
		key   string
		value string
	}{
		{"video_temp_dir", c.TempDir},
		{"video_gif_dir", c.GIFDir},
		{"video_processed_dir", c.ProcessedDir},
	}
	for _, entry := range outputs {
		if isWithin(c.WatchDir, entry.value) {
			return fmt.Errorf("%s %q must not be inside video_watch_dir; files written there are picked up as new videos", entry.key, entry.value)
		}
	}
	return nil
}

// isWithin reports whether child is parent or lies beneath it.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Config) validateWatch() error {
	switch c.Watch.Mode {
	case WatchModeNative:
	case WatchModePoll:
		if c.Watch.PollIntervalSeconds <= 0 {
			return errors.New("watch.poll_interval_seconds must be positive when watch.mode is poll")
		}
	default:
		return fmt.Errorf("watch.mode: unsupported value %q (want %q or %q)", c.Watch.Mode, WatchModeNative, WatchModePoll)
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required. Set TELEGRAM_BOT_TOKEN env var or edit the config file")
	}
	if c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id is required. Set TELEGRAM_CHAT_ID env var or edit the config file")
	}
	if strings.Count(c.Telegram.APIEndpoint, "%s") != 2 {
		return errors.New("telegram.api_endpoint must contain two %s placeholders (token, method)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
