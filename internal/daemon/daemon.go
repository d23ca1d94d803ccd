package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"jukebox/internal/api"
	"jukebox/internal/config"
	"jukebox/internal/deps"
	"jukebox/internal/logging"
	"jukebox/internal/metrics"
	"jukebox/internal/playback"
	"jukebox/internal/preflight"
	"jukebox/internal/queue"
	"jukebox/internal/storage"
)

// LockFileName is created in the data directory while a daemon runs.
const LockFileName = "jukeboxd.lock"

// Components are the collaborators a Daemon coordinates.
type Components struct {
	Store    *queue.Store
	Playback *playback.Manager
	Queue    *api.QueueService
	Library  *storage.Library
	Metrics  *metrics.Metrics
}

// Daemon coordinates the play loop and the HTTP API and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	playback *playback.Manager
	queueSvc *api.QueueService
	library  *storage.Library
	metrics  *metrics.Metrics

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	ProgramName    string
	StorageBackend string
	Playback       playback.StatusSummary
	DatabasePath   string
	LockFilePath   string
	Dependencies   []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, components Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || components.Store == nil || components.Playback == nil || components.Queue == nil {
		return nil, errors.New("daemon requires config, store, playback manager, and queue service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, LockFileName)
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    components.Store,
		playback: components.Playback,
		queueSvc: components.Queue,
		library:  components.Library,
		metrics:  components.Metrics,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// ErrAlreadyRunning reports that another process holds the daemon lock.
var ErrAlreadyRunning = errors.New("another jukebox daemon instance is already running")

// AcquireLock takes the single-instance lock without starting anything.
// Process-wide side effects such as the pid file belong after it succeeds.
func (d *Daemon) AcquireLock() error {
	if d.lock.Locked() {
		return nil
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	return nil
}

// Start acquires the daemon lock unless already held, then launches the play
// loop and the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.AcquireLock(); err != nil {
		return err
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.playback.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start playback: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.playback.Stop()
		d.abortStart()
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("jukebox daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.APIAddress()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops playback and the API and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.playback.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("jukebox daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.lock.Locked() {
		_ = d.lock.Unlock()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LockPath returns the path of the single-instance lock file.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// APIAddress returns the address the API listens on, or "" when disabled
// or not started.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// Preflight runs readiness checks against the live store and storage backend.
func (d *Daemon) Preflight(ctx context.Context) []preflight.Result {
	targets := preflight.Targets{Database: d.store}
	if d.library != nil {
		targets.Storage = d.library
	}
	return preflight.RunAll(ctx, d.cfg, targets)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		ProgramName:  d.cfg.Jukebox.ProgramName,
		Playback:     d.playback.Status(ctx),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(d.cfg),
	}
	if d.library != nil {
		status.StorageBackend = d.library.Backend()
	}
	return status
}
