package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"jukebox/internal/api"
	"jukebox/internal/apiclient"
	"jukebox/internal/config"
	"jukebox/internal/daemon"
	"jukebox/internal/daemonrun"
	"jukebox/internal/preflight"
	"jukebox/internal/queue"
	"jukebox/internal/storage"
)

// ErrDaemonNotRunning indicates no live daemon process was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	ForcedKill bool
	PID        int
}

// Launch starts a detached `jukebox run` process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// ProcessInfo reads the daemon pid file and reports whether that process is
// alive. A stale pid file is reported as not running.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	pid, err := daemonrun.ReadPID(cfg)
	if err != nil || pid <= 0 {
		return false, 0, err
	}
	return processAlive(pid), pid, nil
}

func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// EnsureStarted launches the daemon unless one is running and waits until it
// has written its pid file.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if running, pid, _ := ProcessInfo(cfg); running {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}

	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if running, pid, _ := ProcessInfo(cfg); running {
			return StartResult{State: StartStateStarted, PID: pid}, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return StartResult{}, fmt.Errorf("daemon failed to start within %s; see %s", waitTimeout, filepath.Join(cfg.Paths.LogDir, "jukeboxd.log"))
}

// StopAndTerminate sends SIGTERM and escalates to SIGKILL if the process is
// still alive after gracePeriod.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	running, pid, err := ProcessInfo(cfg)
	if err != nil {
		return StopResult{}, err
	}
	if !running {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return result, nil
		}
		time.Sleep(200 * time.Millisecond)
	}

	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	_ = os.Remove(filepath.Join(cfg.Paths.LogDir, daemonrun.PIDFileName))
	_ = os.Remove(filepath.Join(cfg.Paths.DataDir, daemon.LockFileName))
	result.ForcedKill = true
	return result, nil
}

// StatusSnapshot combines live daemon status with offline checks.
type StatusSnapshot struct {
	Running      bool
	PID          int
	Daemon       *api.DaemonStatus
	Stats        api.QueueStats
	Dependencies []api.DependencyStatus
	Summary      DependencySummary
	Checks       []preflight.Result
}

// DependencySummary aggregates dependency readiness.
type DependencySummary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// BuildStatusSnapshot asks the daemon API for status and falls back to the
// store and local checks when no daemon answers.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config, client *apiclient.Client) (*StatusSnapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snapshot := &StatusSnapshot{}
	snapshot.Running, snapshot.PID, _ = ProcessInfo(cfg)

	if client != nil {
		queryCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		status, err := client.Status(queryCtx)
		cancel()
		if err == nil {
			snapshot.Daemon = &status
			snapshot.Running = status.Running
			snapshot.PID = status.PID
			snapshot.Stats = status.Playback.Stats
			snapshot.Dependencies = status.Dependencies
		}
	}

	var store *queue.Store
	if snapshot.Daemon == nil {
		if opened, err := queue.Open(cfg); err == nil {
			store = opened
			defer store.Close()
			queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if stats, err := store.Stats(queryCtx); err == nil {
				snapshot.Stats = api.FromStats(stats)
			}
			cancel()
		}
	}
	if len(snapshot.Dependencies) == 0 {
		snapshot.Dependencies = ResolveDependencies(cfg)
	}

	targets := preflight.Targets{}
	if store != nil {
		targets.Database = store
	}
	if library, err := storage.New(cfg, nil); err == nil {
		targets.Storage = library
	}
	snapshot.Checks = preflight.RunAll(ctx, cfg, targets)
	snapshot.Summary = BuildDependencySummary(snapshot.Dependencies)
	return snapshot, nil
}

// ResolveDependencies returns current dependency availability for status output.
func ResolveDependencies(cfg *config.Config) []api.DependencyStatus {
	checks := preflight.CheckSystemDeps(cfg)
	statuses := make([]api.DependencyStatus, 0, len(checks))
	for _, check := range checks {
		statuses = append(statuses, api.DependencyStatus{
			Name:        check.Name,
			Command:     check.Command,
			Description: check.Description,
			Optional:    check.Optional,
			Available:   check.Available,
			Detail:      check.Detail,
		})
	}
	return statuses
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []api.DependencyStatus) DependencySummary {
	if len(deps) == 0 {
		return DependencySummary{Severity: "info", Detail: "No dependency checks configured"}
	}

	summary := DependencySummary{Total: len(deps)}
	for _, dep := range deps {
		switch {
		case dep.Available:
			summary.Available++
		case dep.Optional:
			summary.MissingOptional++
		default:
			summary.MissingRequired++
		}
	}

	summary.Severity = "ok"
	summary.Detail = fmt.Sprintf("%d/%d available", summary.Available, summary.Total)
	if missing := summary.MissingRequired + summary.MissingOptional; missing > 0 {
		summary.Severity = "warn"
		if summary.MissingRequired > 0 {
			summary.Severity = "error"
		}
		summary.Detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)",
			summary.Available, summary.Total, summary.MissingRequired, summary.MissingOptional)
	}
	return summary
}
