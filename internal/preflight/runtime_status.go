package preflight

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"videowatch/internal/config"
)

// CheckNtfyFromConfig reports whether operator alerts are configured.
func CheckNtfyFromConfig(cfg *config.Config) Result {
	const name = "ntfy alerts"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Notifications.NtfyTopic}
}

// ToolVersion reports the first line a tool prints for its version flag.
type ToolVersion struct {
	Command string
	Version string
	Found   bool
}

// ReadVersion runs command with flag and keeps the first non-empty output line.
// Tools differ on where they print (MP4Box writes to stderr) so both streams are read.
func ReadVersion(command, flag string) ToolVersion {
	command = strings.TrimSpace(command)
	if command == "" {
		return ToolVersion{}
	}
	if _, err := exec.LookPath(command); err != nil {
		return ToolVersion{Command: command}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, flag)
	output, _ := cmd.CombinedOutput()
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return ToolVersion{Command: command, Version: line, Found: true}
		}
	}
	return ToolVersion{Command: command, Found: true}
}

// VersionDetail renders a display-friendly summary for status UIs.
func (v ToolVersion) VersionDetail() string {
	switch {
	case !v.Found:
		return "not installed"
	case v.Version == "":
		return "version unknown"
	default:
		return v.Version
	}
}
