package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"jukebox/internal/config"
	"jukebox/internal/deps"
	"jukebox/internal/queue"
)

// HealthChecker reports database diagnostics. *queue.Store satisfies it.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (queue.DatabaseHealth, error)
}

// Pinger reaches a storage backend. *storage.Library satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckPlayer verifies the configured player binary is on PATH.
func CheckPlayer(cfg *config.Config) Result {
	const name = "Audio player"
	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if len(statuses) == 0 {
		return Result{Name: name, Detail: "not configured"}
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return Result{Name: name, Detail: missing[0].Detail}
	}
	return Result{Name: name, Passed: true, Detail: statuses[0].Detail}
}

// CheckDatabase verifies the queue database is readable and complete.
func CheckDatabase(ctx context.Context, checker HealthChecker) Result {
	const name = "Database"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := checker.CheckHealth(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	switch {
	case !health.DatabaseExists:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", health.DBPath)}
	case len(health.MissingTables) > 0:
		return Result{Name: name, Detail: fmt.Sprintf("missing tables: %s", strings.Join(health.MissingTables, ", "))}
	case !health.IntegrityCheck:
		return Result{Name: name, Detail: "integrity check failed"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s schema v%d", health.Dialect, health.SchemaVersion)}
}

// CheckStorage verifies the audio backend is reachable.
func CheckStorage(ctx context.Context, backend string, pinger Pinger) Result {
	name := "Storage (" + backend + ")"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pinger.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckSystemDeps evaluates all binary dependencies for the given config.
// Both the daemon and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}
