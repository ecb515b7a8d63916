package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"videowatch/internal/config"
	"videowatch/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// commandLogger builds a logger for one-shot commands. Log lines go to the
// command's error stream so stdout stays readable.
func (c *commandContext) commandLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	cfg := c.configValue()
	level := "warn"
	format := "console"
	if cfg != nil {
		format = cfg.Logging.Format
		if verbose {
			level = cfg.Logging.Level
		}
	}
	if verbose && level == "warn" {
		level = "info"
	}
	return logging.NewWriterLogger(cmd.ErrOrStderr(), level, format)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}
