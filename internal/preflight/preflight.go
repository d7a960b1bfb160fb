package preflight

import (
	"context"

	"reel/internal/config"
)

// Result reports the outcome of a single preflight check. Optional checks
// (service reachability) produce warnings; required checks (directories,
// binaries) block daemon startup when they fail.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Transcode.WorkDir))
	results = append(results, CheckDatabaseDirectory(cfg))
	results = append(results, CheckBinaries(cfg)...)
	results = append(results, CheckStorage(ctx, cfg))
	results = append(results, CheckSpeech(ctx, cfg))
	results = append(results, CheckAnalysisLLM(ctx, cfg))
	return results
}

// FailedRequired filters results down to the required checks that failed.
func FailedRequired(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}
