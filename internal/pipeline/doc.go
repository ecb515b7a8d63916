// Package pipeline converts one source video into its preview, thumbnail,
// and preserved copy by sequencing external tools.
//
// Stages run in a fixed order:
//
//	remux       MP4Box -inter 500, in place       best-effort
//	transcode   ffmpeg palettegen/paletteuse      fatal
//	optimize    gifsicle -O3                      fatal
//	snapshot    ffmpeg single frame + source copy best-effort
//
// A fatal failure stops the run with State Failed; a best-effort failure is
// collected in Outcome.Partial and the run continues. The temp preview is
// removed on every exit path. The final preview, snapshot and processed copy
// are never removed here.
package pipeline
