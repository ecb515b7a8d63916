package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"videowatch/internal/config"
	"videowatch/internal/pipeline"
)

// Tool is one conversion binary and the pipeline stages that run it.
type Tool struct {
	Name        string
	Command     string
	VersionFlag string
	Stages      []pipeline.Stage
}

// BestEffort reports whether every stage the tool serves only records a
// partial failure when it fails. A missing best-effort tool degrades output;
// a missing required one means no preview is ever produced.
func (t Tool) BestEffort() bool {
	for _, stage := range t.Stages {
		if stage.Fatal() {
			return false
		}
	}
	return true
}

// StageList renders the served stages, e.g. "transcode, snapshot".
func (t Tool) StageList() string {
	names := make([]string, 0, len(t.Stages))
	for _, stage := range t.Stages {
		names = append(names, string(stage))
	}
	return strings.Join(names, ", ")
}

// ToolStatus reports whether a Tool's binary resolves on PATH.
type ToolStatus struct {
	Tool
	Available bool
	Detail    string
}

// ConversionTools lists the binaries the pipeline runs for cfg.
func ConversionTools(cfg *config.Config) []Tool {
	return []Tool{
		{
			Name:        "FFmpeg",
			Command:     strings.TrimSpace(cfg.Tools.FFmpeg),
			VersionFlag: "-version",
			Stages:      []pipeline.Stage{pipeline.StageTranscode, pipeline.StageSnapshot},
		},
		{
			Name:        "gifsicle",
			Command:     strings.TrimSpace(cfg.Tools.Gifsicle),
			VersionFlag: "--version",
			Stages:      []pipeline.Stage{pipeline.StageOptimize},
		},
		{
			Name:        "MP4Box",
			Command:     strings.TrimSpace(cfg.Tools.MP4Box),
			VersionFlag: "-version",
			Stages:      []pipeline.Stage{pipeline.StageRemux},
		},
	}
}

// CheckSystemDeps resolves every conversion tool for cfg. Both the daemon
// and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []ToolStatus {
	tools := ConversionTools(cfg)
	statuses := make([]ToolStatus, 0, len(tools))
	for _, tool := range tools {
		status := ToolStatus{Tool: tool}
		switch {
		case tool.Command == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(tool.Command); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found (%s stage)", tool.Command, tool.StageList())
			} else {
				status.Available = true
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
