package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateJukebox(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validatePlayer(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateJukebox() error {
	if c.Jukebox.PreviousSongsDisplay < 0 {
		return errors.New("jukebox.previous_songs_display must be >= 0")
	}
	if c.Jukebox.UpcomingSongsDisplay < 0 {
		return errors.New("jukebox.upcoming_songs_display must be >= 0")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Paths.MediaDir) == "" {
			return errors.New("paths.media_dir must be set when storage.backend is local")
		}
	case StorageS3:
		if c.Storage.Bucket == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("storage.bucket is required when storage.backend is s3. Edit %s (create with 'jukebox config init')", defaultPath)
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want local or s3)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validatePlayer() error {
	if c.Player.TimeoutSeconds < 0 {
		return errors.New("player.timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.PollInterval <= 0 {
		return errors.New("daemon.poll_interval must be positive")
	}
	if c.Daemon.ErrorRetryInterval <= 0 {
		return errors.New("daemon.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.RequestsPerMinute < 0 {
		return errors.New("api.requests_per_minute must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic: expected a full topic URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
