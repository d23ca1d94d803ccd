package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeJukebox()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	c.normalizeStorage()
	c.normalizePlayer()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeJukebox() {
	c.Jukebox.ProgramName = strings.TrimSpace(c.Jukebox.ProgramName)
	if c.Jukebox.ProgramName == "" {
		c.Jukebox.ProgramName = defaultProgramName
	}
	if c.Jukebox.SearchLimit <= 0 {
		c.Jukebox.SearchLimit = defaultSearchLimit
	}
	if c.Jukebox.RandomResults <= 0 {
		c.Jukebox.RandomResults = defaultRandomResults
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	c.Database.URL = strings.TrimSpace(c.Database.URL)
	if c.Database.URL == "" {
		if value, ok := os.LookupEnv("JUKEBOX_DATABASE_URL"); ok {
			c.Database.URL = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" {
			c.Storage.Region = strings.TrimSpace(value)
		} else {
			c.Storage.Region = defaultS3Region
		}
	}
	if c.Storage.AccessKeyID == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.Storage.AccessKeyID = value
		}
	}
	if c.Storage.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.Storage.SecretAccessKey = value
		}
	}
}

func (c *Config) normalizePlayer() {
	c.Player.Command = strings.TrimSpace(c.Player.Command)
	if c.Player.Command == "" {
		c.Player.Command = defaultPlayerCommand
	}
	args := c.Player.Args[:0]
	for _, arg := range c.Player.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Player.Args = args
	c.Player.DurationCommand = strings.TrimSpace(c.Player.DurationCommand)
	if c.Player.DurationCommand == "" {
		c.Player.DurationCommand = defaultDurationCommand
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("JUKEBOX_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	origins := c.API.CORSOrigins[:0]
	for _, origin := range c.API.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.CORSOrigins = origins
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("JUKEBOX_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
