package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// statusReport accumulates the sections printed by `videowatch status`.
type statusReport struct {
	colorize bool
	lines    []string
	errors   int
}

func newStatusReport(out io.Writer) *statusReport {
	return &statusReport{colorize: shouldColorize(out)}
}

func (r *statusReport) section(title string) {
	if len(r.lines) > 0 {
		r.lines = append(r.lines, "")
	}
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	r.lines = append(r.lines, r.paint(ansiBlue, header), r.paint(ansiBlue, rule))
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	if kind == statusError {
		r.errors++
	}
	text := "[" + kind.label() + "]"
	if message != "" {
		text += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", text)
	r.lines = append(r.lines, r.paint(kind.color(), base))
}

func (r *statusReport) paint(color, value string) string {
	if !r.colorize || color == "" {
		return value
	}
	return color + value + ansiReset
}

func (r *statusReport) String() string {
	return strings.Join(r.lines, "\n") + "\n"
}

func (k statusKind) label() string {
	switch k {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (k statusKind) color() string {
	switch k {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
