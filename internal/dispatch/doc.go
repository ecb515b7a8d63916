// Package dispatch turns watch events into conversion jobs.
//
// The Dispatcher filters events (directories, non-create kinds, rejected
// extensions), drops paths still inside the dedup window, and hands each
// accepted job to a worker lane chosen by hashing the source path. A lane
// runs the pipeline, delivers the preview when one was produced, appends a
// history row, and raises operator alerts for failures.
//
// Filtering and dedup happen on the goroutine calling Run, so the dedup
// record needs no lock. A path always hashes to the same lane, which keeps
// per-path ordering; with the default single lane jobs run strictly one at a
// time.
package dispatch
