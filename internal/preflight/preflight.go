package preflight

import (
	"context"

	"slipclip/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckReplayDirectory("Replay directory", cfg.Paths.ReplayDir),
		CheckDirectoryAccess("Clip directory", cfg.Paths.ClipDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckStore(ctx, cfg),
	}
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}
