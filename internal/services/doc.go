// Package services defines shared utilities consumed by the conversion
// pipeline, the delivery notifier and the dispatcher.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that encode the failure
//     taxonomy (not-a-video, fatal vs partial stage failures, exhausted
//     delivery) so callers classify with errors.Is instead of string matching.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
