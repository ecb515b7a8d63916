// Package main hosts the videowatch CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the watcher in the foreground, converts
// individual files on demand, inspects the job history ledger, reports
// dependency and directory health, and scaffolds configuration. It
// centralizes configuration resolution and logger setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
