// Package exttool runs the external media tools (MP4Box, ffmpeg, gifsicle)
// the conversion pipeline is built from.
//
// Tools are spawned directly with an argument vector, never through a shell,
// so source paths containing spaces or shell metacharacters are passed through
// verbatim. Standard input is closed, standard output is discarded, and the
// tail of standard error is kept for diagnostics.
package exttool
