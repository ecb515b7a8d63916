package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeVideoDirs(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeVideo()
	c.normalizeWatch()
	c.normalizeTools()
	c.normalizeTelegram()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeVideoDirs() error {
	var err error
	if c.WatchDir, err = expandPath(strings.TrimSpace(c.WatchDir)); err != nil {
		return fmt.Errorf("video_watch_dir: %w", err)
	}
	if c.TempDir, err = expandPath(strings.TrimSpace(c.TempDir)); err != nil {
		return fmt.Errorf("video_temp_dir: %w", err)
	}
	if c.GIFDir, err = expandPath(strings.TrimSpace(c.GIFDir)); err != nil {
		return fmt.Errorf("video_gif_dir: %w", err)
	}
	if c.ProcessedDir, err = expandPath(strings.TrimSpace(c.ProcessedDir)); err != nil {
		return fmt.Errorf("video_processed_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, defaultLogDirName)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = filepath.Join(c.Paths.StateDir, defaultHistoryFile)
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeVideo() {
	exts := make([]string, 0, len(c.Video.Extensions))
	seen := make(map[string]struct{}, len(c.Video.Extensions))
	for _, ext := range c.Video.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = []string{defaultAcceptedVideoExtension}
	}
	c.Video.Extensions = exts
}

func (c *Config) normalizeWatch() {
	c.Watch.Mode = strings.ToLower(strings.TrimSpace(c.Watch.Mode))
	if c.Watch.Mode == "" {
		c.Watch.Mode = defaultWatchMode
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.Gifsicle = strings.TrimSpace(c.Tools.Gifsicle)
	if c.Tools.Gifsicle == "" {
		c.Tools.Gifsicle = defaultGifsicleBinary
	}
	c.Tools.MP4Box = strings.TrimSpace(c.Tools.MP4Box)
	if c.Tools.MP4Box == "" {
		c.Tools.MP4Box = defaultMP4BoxBinary
	}
}

func (c *Config) normalizeTelegram() {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("TELEGRAM_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}
	c.Telegram.ChatID = strings.TrimSpace(c.Telegram.ChatID)
	if c.Telegram.ChatID == "" {
		if value, ok := os.LookupEnv("TELEGRAM_CHAT_ID"); ok {
			c.Telegram.ChatID = strings.TrimSpace(value)
		}
	}
	c.Telegram.APIEndpoint = strings.TrimSpace(c.Telegram.APIEndpoint)
	if c.Telegram.APIEndpoint == "" {
		c.Telegram.APIEndpoint = defaultTelegramAPIEndpoint
	}
	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultTelegramRequestTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
