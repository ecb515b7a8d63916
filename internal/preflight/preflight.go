package preflight

import (
	"context"

	"videowatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory checks and, when requested, the Telegram
// token check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, checkTelegram bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Watch directory", cfg.WatchDir),
		CheckDirectoryAccess("Temp directory", cfg.TempDir),
		CheckDirectoryAccess("GIF directory", cfg.GIFDir),
		CheckDirectoryAccess("Processed directory", cfg.ProcessedDir),
	}

	if checkTelegram {
		results = append(results, CheckTelegram(ctx, cfg.Telegram))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
