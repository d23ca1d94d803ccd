package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"jukebox/internal/api"
	"jukebox/internal/daemonctl"
	"jukebox/internal/daemonrun"
	"jukebox/internal/testsupport"
)

func writePID(t *testing.T, dir string, pid int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, daemonrun.PIDFileName)
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
}

func TestProcessInfo(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil || running || pid != 0 {
		t.Fatalf("expected no daemon without pid file, got running=%v pid=%d err=%v", running, pid, err)
	}

	writePID(t, cfg.Paths.LogDir, os.Getpid())
	running, pid, err = daemonctl.ProcessInfo(cfg)
	if err != nil || !running || pid != os.Getpid() {
		t.Fatalf("expected current process to be reported alive, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestStopAndTerminate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.StopAndTerminate(cfg, time.Second); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}

	writePID(t, cfg.Paths.LogDir, os.Getpid())
	_, err := daemonctl.StopAndTerminate(cfg, time.Second)
	if err == nil || !strings.Contains(err.Error(), "refusing") {
		t.Fatalf("expected refusal to signal own process, got %v", err)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedPlayer("exit 0"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.AddSongs(t, store, "A", "B")

	snapshot, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snapshot.Running || snapshot.Daemon != nil {
		t.Fatalf("expected offline snapshot, got %#v", snapshot)
	}
	if snapshot.Stats.Songs != 2 {
		t.Fatalf("expected store stats fallback, got %#v", snapshot.Stats)
	}
	if snapshot.Summary.Severity != "ok" || snapshot.Summary.Total != 1 {
		t.Fatalf("unexpected dependency summary %#v", snapshot.Summary)
	}
	names := make([]string, 0, len(snapshot.Checks))
	for _, check := range snapshot.Checks {
		names = append(names, check.Name)
		if !check.Passed {
			t.Fatalf("unexpected failed check %#v", check)
		}
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "Database") || !strings.Contains(joined, "Storage (local)") {
		t.Fatalf("expected database and storage checks, got %s", joined)
	}
}

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name     string
		deps     []api.DependencyStatus
		severity string
		detail   string
	}{
		{name: "none", severity: "info", detail: "No dependency checks configured"},
		{name: "ready", deps: []api.DependencyStatus{{Available: true}}, severity: "ok", detail: "1/1 available"},
		{
			name:     "optional missing",
			deps:     []api.DependencyStatus{{Available: true}, {Optional: true}},
			severity: "warn",
			detail:   "1/2 available (missing: 0 required, 1 optional)",
		},
		{
			name:     "required missing",
			deps:     []api.DependencyStatus{{}, {Optional: true}},
			severity: "error",
			detail:   "0/2 available (missing: 1 required, 1 optional)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := daemonctl.BuildDependencySummary(tt.deps)
			if summary.Severity != tt.severity || summary.Detail != tt.detail {
				t.Fatalf("got %q %q, want %q %q", summary.Severity, summary.Detail, tt.severity, tt.detail)
			}
		})
	}
}
