package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jukebox/internal/queue"
	"jukebox/internal/storage"
	"jukebox/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckPlayer(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedPlayer("exit 0"))
	if result := CheckPlayer(cfg); !result.Passed {
		t.Fatalf("expected stub player to pass, got %s", result.Detail)
	}

	cfg.Player.Command = "clearly-not-a-player"
	result := CheckPlayer(cfg)
	if result.Passed || !strings.Contains(result.Detail, "not found") {
		t.Fatalf("expected missing player failure, got %#v", result)
	}
}

type healthStub struct {
	health queue.DatabaseHealth
	err    error
}

func (h healthStub) CheckHealth(context.Context) (queue.DatabaseHealth, error) {
	return h.health, h.err
}

func TestCheckDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if result := CheckDatabase(ctx, store); !result.Passed {
		t.Fatalf("expected real store to pass, got %s", result.Detail)
	}

	tests := []struct {
		name string
		stub healthStub
	}{
		{"error", healthStub{err: errors.New("locked")}},
		{"missing", healthStub{health: queue.DatabaseHealth{DBPath: "/tmp/x.db"}}},
		{"tables", healthStub{health: queue.DatabaseHealth{DatabaseExists: true, MissingTables: []string{"songs"}}}},
		{"integrity", healthStub{health: queue.DatabaseHealth{DatabaseExists: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := CheckDatabase(ctx, tt.stub); result.Passed {
				t.Fatalf("expected failure, got %#v", result)
			}
		})
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedPlayer("exit 0"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	lib := storage.NewLibrary(storage.NewLocalProvider(cfg.Paths.MediaDir), nil)

	results := RunAll(context.Background(), cfg, Targets{Database: store, Storage: lib})
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d: %#v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %#v", failed)
	}

	if err := os.RemoveAll(cfg.Paths.MediaDir); err != nil {
		t.Fatal(err)
	}
	failed := Failed(RunAll(context.Background(), cfg, Targets{Storage: lib}))
	if len(failed) != 2 {
		t.Fatalf("expected media dir and storage failures, got %#v", failed)
	}
}
