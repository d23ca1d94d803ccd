package preflight

import (
	"context"

	"jukebox/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Targets carries the live components RunAll checks. Nil fields are skipped.
type Targets struct {
	Database HealthChecker
	Storage  Pinger
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, targets Targets) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.UsesS3() {
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	} else {
		results = append(results, CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir))
	}
	results = append(results, CheckPlayer(cfg))

	if targets.Database != nil {
		results = append(results, CheckDatabase(ctx, targets.Database))
	}
	if targets.Storage != nil {
		results = append(results, CheckStorage(ctx, cfg.Storage.Backend, targets.Storage))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
