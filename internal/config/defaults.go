package config

const (
	defaultConfigPath           = "~/.config/jukebox/config.toml"
	defaultProgramName          = "Jukebox"
	defaultPreviousSongsDisplay = 5
	defaultUpcomingSongsDisplay = 10
	defaultSearchLimit          = 100
	defaultRandomResults        = 10
	defaultDataDir              = "~/.local/share/jukebox"
	defaultLogDir               = "~/.local/share/jukebox/logs"
	defaultMediaDir             = "~/Music"
	defaultCacheDir             = "~/.cache/jukebox/audio"
	defaultPlayerCommand        = "mpg123"
	defaultDurationCommand      = "ffprobe"
	defaultPollInterval         = 5
	defaultErrorRetryInterval   = 10
	defaultAPIBind              = "127.0.0.1:8741"
	defaultRequestsPerMinute    = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultS3Region             = "us-east-1"
	defaultNtfyRequestTimeout   = 10

	// StorageLocal reads song files from paths.media_dir.
	StorageLocal = "local"
	// StorageS3 downloads song files from an S3 bucket into paths.cache_dir.
	StorageS3 = "s3"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Jukebox: Jukebox{
			ProgramName:          defaultProgramName,
			PreviousSongsDisplay: defaultPreviousSongsDisplay,
			UpcomingSongsDisplay: defaultUpcomingSongsDisplay,
			SearchLimit:          defaultSearchLimit,
			RandomResults:        defaultRandomResults,
		},
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			CacheDir: defaultCacheDir,
		},
		Storage: Storage{
			Backend: StorageLocal,
			Region:  defaultS3Region,
		},
		Player: Player{
			Command:         defaultPlayerCommand,
			Args:            []string{"-q"},
			DurationCommand: defaultDurationCommand,
		},
		Daemon: Daemon{
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		API: API{
			Bind:              defaultAPIBind,
			RequestsPerMinute: defaultRequestsPerMinute,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
