// Package notifications publishes operator alerts via ntfy.
//
// Alerts are separate from preview delivery: they tell whoever runs the
// watcher that a conversion or delivery failed. The service posts to the
// ntfy topic URL configured in config.toml and degrades to a no-op when no
// topic is set. Per-event toggles under [notifications] suppress classes of
// alerts without code changes.
package notifications
