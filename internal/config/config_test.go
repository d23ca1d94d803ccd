package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"jukebox/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("JUKEBOX_CONFIG", "")
	t.Setenv("JUKEBOX_DATABASE_URL", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "jukebox")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.MediaDir != filepath.Join(tempHome, "Music") {
		t.Fatalf("unexpected media dir: %q", cfg.Paths.MediaDir)
	}
	if cfg.Jukebox.PreviousSongsDisplay != 5 {
		t.Fatalf("unexpected previous songs display: %d", cfg.Jukebox.PreviousSongsDisplay)
	}
	if cfg.Jukebox.UpcomingSongsDisplay != 10 {
		t.Fatalf("unexpected upcoming songs display: %d", cfg.Jukebox.UpcomingSongsDisplay)
	}
	if cfg.API.Bind != "127.0.0.1:8741" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	driver, dsn := cfg.DatabaseDriver()
	if driver != "sqlite" || dsn != filepath.Join(wantData, "jukebox.db") {
		t.Fatalf("unexpected database driver: %s %s", driver, dsn)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[jukebox]
program_name = "  Office Radio "
previous_songs_display = 3
upcoming_songs_display = 4

[paths]
data_dir = "~/jb"
media_dir = "~/tunes"

[player]
command = "ffplay"
args = ["-nodisp", " ", "-autoexit"]

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config %q to exist, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Jukebox.ProgramName != "Office Radio" {
		t.Fatalf("unexpected program name %q", cfg.Jukebox.ProgramName)
	}
	if cfg.Jukebox.PreviousSongsDisplay != 3 || cfg.Jukebox.UpcomingSongsDisplay != 4 {
		t.Fatalf("unexpected display limits: %+v", cfg.Jukebox)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "jb") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.PlayerBinary() != "ffplay" {
		t.Fatalf("unexpected player %q", cfg.PlayerBinary())
	}
	if strings.Join(cfg.Player.Args, ",") != "-nodisp,-autoexit" {
		t.Fatalf("unexpected player args %v", cfg.Player.Args)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadUsesConfigEnvVar(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "env.toml")
	if err := os.WriteFile(configPath, []byte("[jukebox]\nprogram_name = \"Env Radio\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("JUKEBOX_CONFIG", configPath)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected env config path, got %q exists=%v", resolved, exists)
	}
	if cfg.Jukebox.ProgramName != "Env Radio" {
		t.Fatalf("unexpected program name %q", cfg.Jukebox.ProgramName)
	}
}

func TestDatabaseDriverSelection(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = "/var/lib/jukebox"

	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
	}{
		{"", "sqlite", "/var/lib/jukebox/jukebox.db"},
		{"postgres://u:p@db:5432/jukebox?sslmode=disable", "postgres", "postgres://u:p@db:5432/jukebox?sslmode=disable"},
		{"postgresql://db/jukebox", "postgres", "postgresql://db/jukebox"},
		{"sqlite:///tmp/jb.db", "sqlite", "/tmp/jb.db"},
		{"/tmp/plain.db", "sqlite", "/tmp/plain.db"},
	}
	for _, tc := range tests {
		cfg.Database.URL = tc.url
		driver, dsn := cfg.DatabaseDriver()
		if driver != tc.wantDriver || dsn != tc.wantDSN {
			t.Errorf("DatabaseDriver(%q) = %q, %q; want %q, %q", tc.url, driver, dsn, tc.wantDriver, tc.wantDSN)
		}
	}
}

func TestDatabaseURLFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("JUKEBOX_CONFIG", "")
	t.Setenv("JUKEBOX_DATABASE_URL", "postgres://env/jukebox")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if driver, _ := cfg.DatabaseDriver(); driver != "postgres" {
		t.Fatalf("expected postgres driver from env, got %q", driver)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative previous", func(c *config.Config) { c.Jukebox.PreviousSongsDisplay = -1 }, "previous_songs_display"},
		{"negative upcoming", func(c *config.Config) { c.Jukebox.UpcomingSongsDisplay = -1 }, "upcoming_songs_display"},
		{"s3 without bucket", func(c *config.Config) { c.Storage.Backend = config.StorageS3 }, "storage.bucket"},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "ftp" }, "storage.backend"},
		{"zero poll", func(c *config.Config) { c.Daemon.PollInterval = 0 }, "poll_interval"},
		{"ntfy topic without scheme", func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/jukebox" }, "ntfy_topic"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.MediaDir = "/music"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestStorageCredentialsFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[storage]\nbackend = \"S3\"\nbucket = \"songs\"\nprefix = \"/library/\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.UsesS3() {
		t.Fatal("expected s3 backend")
	}
	if cfg.Storage.Prefix != "library" {
		t.Fatalf("unexpected prefix %q", cfg.Storage.Prefix)
	}
	if cfg.Storage.AccessKeyID != "AKIDEXAMPLE" || cfg.Storage.SecretAccessKey != "secret" {
		t.Fatalf("expected credentials from env, got %+v", cfg.Storage)
	}
}

func TestSampleConfigParses(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if decoded.Jukebox.UpcomingSongsDisplay != config.Default().Jukebox.UpcomingSongsDisplay {
		t.Fatalf("sample upcoming display %d differs from default", decoded.Jukebox.UpcomingSongsDisplay)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.MediaDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if _, err := os.Stat(cfg.Paths.CacheDir); !os.IsNotExist(err) {
		t.Fatalf("cache dir should only be created for s3 storage, stat err=%v", err)
	}
}
