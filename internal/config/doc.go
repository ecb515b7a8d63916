// Package config loads, normalizes, and validates videowatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files (or JSON files left over from the original
// watcher script), and honours environment fallbacks such as
// TELEGRAM_BOT_TOKEN. The Config type centralizes every knob the daemon and
// CLI need so the watch, temp, preview and processed directories plus the
// delivery credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
