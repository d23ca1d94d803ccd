package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Jukebox contains the display settings shared by the queue views.
type Jukebox struct {
	ProgramName          string `toml:"program_name"`
	PreviousSongsDisplay int    `toml:"previous_songs_display"`
	UpcomingSongsDisplay int    `toml:"upcoming_songs_display"`
	SearchLimit          int    `toml:"search_limit"`
	RandomResults        int    `toml:"random_results"`
}

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	MediaDir string `toml:"media_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Database selects the request store backend. An empty URL means the
// embedded SQLite database under data_dir.
type Database struct {
	URL string `toml:"url"`
}

// Storage configures where song audio is read from.
type Storage struct {
	Backend         string `toml:"backend"`
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Player configures the external audio player.
type Player struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`

	// DurationCommand reads track durations during catalog import.
	DurationCommand string `toml:"duration_command"`
}

// Daemon contains playback loop timing.
type Daemon struct {
	PollInterval       int    `toml:"poll_interval"`
	ErrorRetryInterval int    `toml:"error_retry_interval"`
	RandomSeed         uint64 `toml:"random_seed"`
}

// API configures the HTTP API served by the daemon.
type API struct {
	Bind              string   `toml:"bind"`
	Token             string   `toml:"token"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	CORSOrigins       []string `toml:"cors_origins"`
}

// Notifications configures ntfy push messages. An empty topic disables them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	NotifyFillers  bool   `toml:"notify_fillers"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the jukebox.
//
// Configuration sections by subsystem:
//   - Jukebox: program name and queue display limits
//   - Paths: data, log, media, and cache directories
//   - Database: request store backend
//   - Storage: local media directory or S3 bucket
//   - Player: external player command
//   - Daemon: playback loop intervals and random seed
//   - API: HTTP bind address, token, and rate limit
//   - Notifications: ntfy topic for now playing and failure messages
//   - Logging: log format, level, and retention
type Config struct {
	Jukebox       Jukebox       `toml:"jukebox"`
	Paths         Paths         `toml:"paths"`
	Database      Database      `toml:"database"`
	Storage       Storage       `toml:"storage"`
	Player        Player        `toml:"player"`
	Daemon        Daemon        `toml:"daemon"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("JUKEBOX_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("jukebox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The media directory is created on a best-effort basis so the daemon can
// start while external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.UsesS3() {
		dirs = append(dirs, c.Paths.CacheDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if !c.UsesS3() && strings.TrimSpace(c.Paths.MediaDir) != "" {
		_ = os.MkdirAll(c.Paths.MediaDir, 0o755)
	}
	return nil
}

// DatabaseDriver returns the database/sql driver name and data source for the
// configured request store.
func (c *Config) DatabaseDriver() (string, string) {
	raw := strings.TrimSpace(c.Database.URL)
	if raw == "" {
		return "sqlite", c.SQLitePath()
	}
	if u, err := url.Parse(raw); err == nil {
		switch strings.ToLower(u.Scheme) {
		case "postgres", "postgresql":
			return "postgres", raw
		case "sqlite", "file":
			return "sqlite", strings.TrimPrefix(strings.TrimPrefix(raw, u.Scheme+"://"), u.Scheme+":")
		}
	}
	return "sqlite", raw
}

// SQLitePath returns the default embedded database path.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Paths.DataDir, "jukebox.db")
}

// UsesS3 reports whether song audio is fetched from an S3 bucket.
func (c *Config) UsesS3() bool {
	return c.Storage.Backend == StorageS3
}

// PlayerBinary returns the audio player executable name.
func (c *Config) PlayerBinary() string {
	return c.Player.Command
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
