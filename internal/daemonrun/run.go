package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"jukebox/internal/api"
	"jukebox/internal/config"
	"jukebox/internal/daemon"
	"jukebox/internal/logging"
	"jukebox/internal/metrics"
	"jukebox/internal/notifications"
	"jukebox/internal/playback"
	"jukebox/internal/player"
	"jukebox/internal/policy"
	"jukebox/internal/preflight"
	"jukebox/internal/queue"
	"jukebox/internal/storage"
)

// PIDFileName is written to the log directory while the daemon runs.
const PIDFileName = "jukeboxd.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// Ready, when set, is called once the daemon has started.
	Ready func(*daemon.Daemon)
}

// Run starts the jukebox daemon and blocks until cmdCtx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("jukeboxd-%s.log", runID))
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	d, err := Build(cfg, logger)
	if err != nil {
		logger.Error("daemon setup failed", logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_setup_failed"))
		return err
	}
	defer d.Close()

	// Everything below touches files shared with a running instance.
	if err := d.AcquireLock(); err != nil {
		logging.ErrorWithContext(logger, "daemon lock unavailable", "daemon_lock_failed",
			logging.String("lock", d.LockPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stop the running daemon with `jukebox stop`"),
		)
		return fmt.Errorf("start daemon: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update jukeboxd.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "jukeboxd-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	logger.Info("Starting jukebox daemon...",
		logging.String(logging.FieldEventType, "daemon_starting"),
		logging.String("program_name", cfg.Jukebox.ProgramName),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.String("player", cfg.PlayerBinary()),
	)

	if failed := preflight.Failed(d.Preflight(signalCtx)); len(failed) > 0 {
		for _, result := range failed {
			logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "run `jukebox status` for details"),
			)
		}
		return fmt.Errorf("preflight: %d check(s) failed, first: %s: %s", len(failed), failed[0].Name, failed[0].Detail)
	}

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if opts.Ready != nil {
		opts.Ready(d)
	}
	notifier := notifications.NewService(cfg)
	announce(signalCtx, notifier, logger, notifications.EventDaemonStarted)

	<-signalCtx.Done()
	d.Stop()
	announce(context.WithoutCancel(signalCtx), notifier, logger, notifications.EventDaemonStopped)
	logger.Info("jukebox daemon shutdown.", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func announce(ctx context.Context, notifier notifications.Service, logger *slog.Logger, event notifications.Event) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := notifier.Publish(ctx, event, nil); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

// Build opens the store and assembles the daemon components described by
// cfg. The returned daemon owns the store; Close releases it.
func Build(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	library, err := storage.New(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	sink := metrics.New()
	pol := policy.New(store, policy.Limits{
		PreviousSongs: cfg.Jukebox.PreviousSongsDisplay,
		UpcomingSongs: cfg.Jukebox.UpcomingSongsDisplay,
	}, policy.NewPicker(cfg.Daemon.RandomSeed), policy.WithLogger(logger))

	manager := playback.NewManager(cfg, store, pol, library, player.New(cfg.Player, logger),
		playback.WithLogger(logger),
		playback.WithMetrics(sink),
		playback.WithNotifier(notifications.NewService(cfg)),
	)
	svc := api.NewQueueService(cfg, store, pol,
		api.WithLogger(logger),
		api.WithMetrics(sink),
	)

	d, err := daemon.New(cfg, daemon.Components{
		Store:    store,
		Playback: manager,
		Queue:    svc,
		Library:  library,
		Metrics:  sink,
	}, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create daemon: %w", err)
	}
	return d, nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "jukeboxd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

// ReadPID returns the pid recorded in the log directory, or 0 when absent.
func ReadPID(cfg *config.Config) (int, error) {
	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, PIDFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file: %w", err)
	}
	return pid, nil
}
