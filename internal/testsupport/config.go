package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"jukebox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Daemon.RandomSeed = 42

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithUpcoming overrides the minimum upcoming queue length.
func WithUpcoming(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jukebox.UpcomingSongsDisplay = n
	}
}

// WithPrevious overrides the number of recently played songs shown.
func WithPrevious(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jukebox.PreviousSongsDisplay = n
	}
}

// WithStubbedPlayer writes a stub player executable that runs script and
// points the player config at it. An empty script exits successfully.
func WithStubbedPlayer(script string) ConfigOption {
	return func(b *configBuilder) {
		if script == "" {
			script = "exit 0"
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "stub-player")
		body := []byte("#!/bin/sh\n" + script + "\n")
		if err := os.WriteFile(target, body, 0o755); err != nil {
			b.t.Fatalf("write stub player: %v", err)
		}
		b.cfg.Player.Command = target
		b.cfg.Player.Args = nil
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
