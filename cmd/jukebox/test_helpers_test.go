package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jukebox/internal/config"
	"jukebox/internal/daemon"
	"jukebox/internal/daemonrun"
	"jukebox/internal/logging"
	"jukebox/internal/queue"
	"jukebox/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	songs      []*queue.Song
	daemon     *daemon.Daemon
}

// setupCLITestEnv writes a config with the API disabled so every command
// falls back to the store. titles seed the catalog.
func setupCLITestEnv(t *testing.T, titles ...string) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedPlayer("exec sleep 30"))
	cfg.API.Bind = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	env := &cliTestEnv{
		cfg:        cfg,
		baseDir:    testsupport.BaseDir(cfg),
		configPath: filepath.Join(testsupport.BaseDir(cfg), "config.toml"),
	}
	if len(titles) > 0 {
		store, err := queue.Open(cfg)
		if err != nil {
			t.Fatalf("queue.Open: %v", err)
		}
		env.songs = testsupport.AddSongs(t, store, titles...)
		store.Close()
		refs := make([]string, 0, len(env.songs))
		for _, song := range env.songs {
			refs = append(refs, song.FileRef)
		}
		testsupport.WriteMediaFiles(t, cfg.Paths.MediaDir, refs...)
	}
	writeTestConfig(t, env.configPath, cfg)
	return env
}

// startDaemon runs a daemon for env and points the config at its API.
func (env *cliTestEnv) startDaemon(t *testing.T) {
	t.Helper()

	env.cfg.API.Bind = "127.0.0.1:0"
	env.cfg.API.RequestsPerMinute = 0
	d, err := daemonrun.Build(env.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemonrun.Build: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		d.Close()
		t.Fatalf("daemon start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Close()
	})
	env.daemon = d
	env.cfg.API.Bind = d.APIAddress()
	writeTestConfig(t, env.configPath, env.cfg)
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[jukebox]
program_name = %q
upcoming_songs_display = %d
previous_songs_display = %d

[paths]
data_dir = %q
log_dir = %q
media_dir = %q
cache_dir = %q

[player]
command = %q

[daemon]
random_seed = %d

[api]
bind = %q
requests_per_minute = 0
`,
		cfg.Jukebox.ProgramName,
		cfg.Jukebox.UpcomingSongsDisplay,
		cfg.Jukebox.PreviousSongsDisplay,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.MediaDir,
		cfg.Paths.CacheDir,
		cfg.Player.Command,
		cfg.Daemon.RandomSeed,
		cfg.API.Bind,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
