// Package logging assembles structured slog loggers and formatting helpers used
// across videowatch.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can
// automatically tag log lines with job IDs, stages, and correlation IDs. Log
// retention pruning for the daemon's per-run log files lives here too, as does
// a no-op logger for tests and wiring code that cannot fail.
package logging
