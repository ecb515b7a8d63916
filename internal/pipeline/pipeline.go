package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"videowatch/internal/config"
	"videowatch/internal/exttool"
	"videowatch/internal/fileutil"
	"videowatch/internal/logging"
	"videowatch/internal/mediajob"
	"videowatch/internal/services"
)

// paletteFilter builds a per-frame palette and dithers against it.
const paletteFilter = "[0:v] fps=12,scale=w=640:h=-1,split [a][b];[a] palettegen=stats_mode=single [p];[b][p] paletteuse=new=1"

// Tools names the binaries each stage runs.
type Tools struct {
	FFmpeg         string
	Gifsicle       string
	MP4Box         string
	SnapshotOffset time.Duration
}

// ToolsFromConfig extracts stage binaries from cfg.
func ToolsFromConfig(cfg *config.Config) Tools {
	return Tools{
		FFmpeg:         cfg.Tools.FFmpeg,
		Gifsicle:       cfg.Tools.Gifsicle,
		MP4Box:         cfg.Tools.MP4Box,
		SnapshotOffset: cfg.SnapshotOffset(),
	}
}

// StageResult records how one tool invocation ended.
type StageResult struct {
	Stage    Stage
	ExitCode int
	Stderr   string
	Duration time.Duration
	Err      error
}

// Outcome is the terminal result of a run.
type Outcome struct {
	Job   mediajob.MediaJob
	State State
	// Artifact is the final preview when this run left one on disk, else "".
	Artifact string
	Stages   []StageResult
	// Err is the fatal failure, nil when State is Done.
	Err     error
	Partial []error
}

// Failed reports whether a fatal stage failed.
func (o Outcome) Failed() bool {
	return o.State == StateFailed
}

// Pipeline runs the conversion stages for one job at a time. It holds no
// per-job state and may be shared across worker lanes.
type Pipeline struct {
	runner exttool.Runner
	tools  Tools
	logger *slog.Logger
}

// New constructs a Pipeline.
func New(runner exttool.Runner, tools Tools, logger *slog.Logger) *Pipeline {
	if runner == nil {
		runner = exttool.NewRunner()
	}
	return &Pipeline{
		runner: runner,
		tools:  tools,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes every stage for job and returns its outcome. It never panics
// on tool failure; errors are reported through the Outcome.
func (p *Pipeline) Run(ctx context.Context, job mediajob.MediaJob) (outcome Outcome) {
	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSource, job.Source))

	outcome = Outcome{Job: job, State: StateIdle}
	before := stampOf(job.Preview)
	optimized := false

	logger.Info("processing file",
		logging.SizeMB("size_mb", fileutil.FileSize(job.Source)),
		logging.String(logging.FieldEventType, "job_start"),
	)

	defer func() {
		p.removeTemp(logger, job.TempPreview)
		// Size and mtime can match the previous preview when a run is quick.
		if after := stampOf(job.Preview); after.exists && (optimized || after != before) {
			outcome.Artifact = job.Preview
		}
	}()

	outcome.State = StateRemuxing
	res := p.runStage(ctx, logger, StageRemux, p.tools.MP4Box, remuxArgs(job))
	outcome.Stages = append(outcome.Stages, res)
	if res.Err != nil {
		outcome.Partial = append(outcome.Partial, p.partial(logger, res, "source left without fast-start interleave"))
	}

	outcome.State = StateTranscoding
	res = p.runStage(ctx, logger, StageTranscode, p.tools.FFmpeg, transcodeArgs(job))
	outcome.Stages = append(outcome.Stages, res)
	if res.Err != nil {
		return p.fail(logger, outcome, res)
	}
	logger.Info("created file",
		logging.String("path", job.TempPreview),
		logging.SizeMB("size_mb", fileutil.FileSize(job.TempPreview)),
	)

	outcome.State = StateOptimizing
	res = p.runStage(ctx, logger, StageOptimize, p.tools.Gifsicle, optimizeArgs(job))
	outcome.Stages = append(outcome.Stages, res)
	if res.Err != nil {
		return p.fail(logger, outcome, res)
	}
	optimized = true
	logger.Info("created optimized file",
		logging.String("path", job.Preview),
		logging.SizeMB("size_mb", fileutil.FileSize(job.Preview)),
	)

	outcome.State = StateSnapshotting
	res = p.runStage(ctx, logger, StageSnapshot, p.tools.FFmpeg, snapshotArgs(job, p.tools.SnapshotOffset))
	outcome.Stages = append(outcome.Stages, res)
	if res.Err != nil {
		outcome.Partial = append(outcome.Partial, p.partial(logger, res, "thumbnail missing"))
	}

	res = p.copySource(ctx, job)
	outcome.Stages = append(outcome.Stages, res)
	if res.Err != nil {
		outcome.Partial = append(outcome.Partial, p.partial(logger, res, "source not preserved in processed directory"))
	}

	outcome.State = StateDone
	logger.Info("job completed",
		logging.Int("partial_failures", len(outcome.Partial)),
		logging.String(logging.FieldEventType, "job_complete"),
	)
	return outcome
}

func (p *Pipeline) runStage(ctx context.Context, logger *slog.Logger, stage Stage, binary string, args []string) StageResult {
	stageCtx := services.WithStage(ctx, string(stage))
	stageLogger := logger.With(logging.String(logging.FieldStage, string(stage)))
	stageLogger.Debug("stage started",
		logging.String("binary", binary),
		logging.Any("args", args),
		logging.String(logging.FieldEventType, "stage_start"),
	)

	result, err := p.runner.Run(stageCtx, binary, args)
	out := StageResult{
		Stage:    stage,
		ExitCode: result.ExitCode,
		Stderr:   result.Stderr,
		Duration: result.Duration,
	}
	if err != nil {
		out.Err = err
		return out
	}
	stageLogger.Info(stage.Label()+" stage completed",
		logging.Duration("duration", result.Duration.Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	return out
}

func (p *Pipeline) copySource(ctx context.Context, job mediajob.MediaJob) StageResult {
	start := time.Now()
	out := StageResult{Stage: StageCopy}
	if err := ctx.Err(); err != nil {
		out.ExitCode = -1
		out.Err = services.Wrap(services.ErrStageFailed, string(StageCopy), "copy source", "cancelled", err)
		return out
	}
	if err := fileutil.CopyFile(job.Source, job.ProcessedCopy()); err != nil {
		out.ExitCode = -1
		out.Err = services.Wrap(services.ErrStageFailed, string(StageCopy), "copy source", job.ProcessedCopy(), err)
	}
	out.Duration = time.Since(start)
	return out
}

func (p *Pipeline) fail(logger *slog.Logger, outcome Outcome, res StageResult) Outcome {
	outcome.State = StateFailed
	outcome.Err = services.Wrap(services.ErrFatalStage, string(res.Stage), "run", fmt.Sprintf("exit %d", res.ExitCode), res.Err)
	logging.ErrorWithContext(logger, res.Stage.Label()+" stage failed", "stage_failure",
		logging.String(logging.FieldStage, string(res.Stage)),
		logging.Int("exit_code", res.ExitCode),
		logging.String("stderr", res.Stderr),
		logging.Error(res.Err),
		logging.String(logging.FieldErrorHint, "run the logged command by hand against the source to reproduce"),
	)
	return outcome
}

func (p *Pipeline) partial(logger *slog.Logger, res StageResult, impact string) error {
	err := services.Wrap(services.ErrPartialStage, string(res.Stage), "run", fmt.Sprintf("exit %d", res.ExitCode), res.Err)
	logging.WarnWithContext(logger, res.Stage.Label()+" stage failed; continuing", "partial_stage_failure",
		logging.String(logging.FieldStage, string(res.Stage)),
		logging.Int("exit_code", res.ExitCode),
		logging.String("stderr", res.Stderr),
		logging.Error(res.Err),
		logging.String(logging.FieldErrorHint, "check tool installation and source readability"),
		logging.String(logging.FieldImpact, impact),
	)
	return err
}

func (p *Pipeline) removeTemp(logger *slog.Logger, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		logger.Debug("deleted temp preview", logging.String("path", path))
	case errors.Is(err, os.ErrNotExist):
	default:
		logging.WarnWithContext(logger, "failed to delete temp preview", "temp_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check video_temp_dir permissions"),
			logging.String(logging.FieldImpact, "stale temp file remains until staging cleanup"),
		)
	}
}

func remuxArgs(job mediajob.MediaJob) []string {
	return []string{"-inter", "500", job.Source}
}

func transcodeArgs(job mediajob.MediaJob) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", job.Source,
		"-filter_complex", paletteFilter,
		job.TempPreview,
	}
}

func optimizeArgs(job mediajob.MediaJob) []string {
	return []string{"-O3", job.TempPreview, "-o", job.Preview}
}

func snapshotArgs(job mediajob.MediaJob, offset time.Duration) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-ss", strconv.FormatFloat(offset.Seconds(), 'f', -1, 64),
		"-i", job.Source,
		"-frames:v", "1",
		job.Snapshot(),
	}
}

// fileStamp identifies one version of a file on disk.
type fileStamp struct {
	exists  bool
	size    int64
	modTime time.Time
}

func stampOf(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fileStamp{}
	}
	return fileStamp{exists: true, size: info.Size(), modTime: info.ModTime()}
}
