package exttool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"videowatch/internal/services"
)

// StderrLimit bounds how much trailing stderr output is retained per run.
const StderrLimit = 4 << 10

var commandContext = exec.CommandContext

// Result reports how a tool invocation ended.
type Result struct {
	// ExitCode is the process exit status, or -1 when it never started.
	ExitCode int
	Stderr   string
	Duration time.Duration
}

// Runner runs one external tool to completion.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) (Result, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct{}

// NewRunner returns the default process runner.
func NewRunner() ExecRunner {
	return ExecRunner{}
}

// Run spawns binary with args and blocks until it exits. A nonzero exit or a
// failure to start returns an error marked services.ErrStageFailed alongside
// the populated Result. Cancelling ctx kills the child.
func (ExecRunner) Run(ctx context.Context, binary string, args []string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{ExitCode: -1}, services.Wrap(services.ErrStageFailed, "", "exec", "binary not configured", nil)
	}

	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = nil
	stderr := &tailBuffer{limit: StderrLimit}
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	result := Result{
		ExitCode: 0,
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		msg := fmt.Sprintf("%s exited with status %d", binary, result.ExitCode)
		if result.Stderr != "" {
			msg += ": " + lastLine(result.Stderr)
		}
		return result, services.Wrap(services.ErrStageFailed, "", "exec", msg, err)
	}

	result.ExitCode = -1
	return result, services.Wrap(services.ErrStageFailed, "", "exec", fmt.Sprintf("start %s", binary), err)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.limit {
		t.buf.Reset()
		t.buf.Write(p[len(p)-t.limit:])
		t.truncated = true
		return n, nil
	}
	if over := t.buf.Len() + len(p) - t.limit; over > 0 {
		t.buf.Next(over)
		t.truncated = true
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	if t.truncated {
		return "…" + t.buf.String()
	}
	return t.buf.String()
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
