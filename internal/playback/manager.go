package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/metrics"
	"jukebox/internal/notifications"
	"jukebox/internal/player"
	"jukebox/internal/queue"
)

// Store is the subset of the request store the play loop writes to.
type Store interface {
	MarkPlayed(ctx context.Context, id int64, at time.Time) (bool, error)
	RecordFailure(ctx context.Context, requestID int64, kind, reason string, at time.Time) (*queue.PlayFailure, error)
	CountActiveRequested(ctx context.Context) (int, error)
	CountActiveFillers(ctx context.Context) (int, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// Queue selects what plays next. *policy.Policy satisfies it.
type Queue interface {
	Backfill(ctx context.Context) (int, error)
	Next(ctx context.Context) (*queue.Request, error)
}

// Resolver turns a song file reference into a playable local path.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
	Prefetch(ctx context.Context, refs ...string)
	Retain(refs ...string)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logging.NewComponentLogger(logger, "playback")
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(sink *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = sink }
}

// WithNotifier publishes track start and failure events.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithClock overrides the time source used for played_at and failure stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIntervals overrides the idle poll and store error back-off durations.
func WithIntervals(poll, retry time.Duration) Option {
	return func(m *Manager) {
		if poll > 0 {
			m.pollInterval = poll
		}
		if retry > 0 {
			m.errorRetryInterval = retry
		}
	}
}

// Manager owns the play loop.
type Manager struct {
	store    Store
	queue    Queue
	resolver Resolver
	player   player.Player
	metrics  *metrics.Metrics
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time

	pollInterval       time.Duration
	errorRetryInterval time.Duration

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	current     *queue.Request
	lastPlayed  *queue.Request
	lastError   error
	playedCount int
	failedCount int
}

// NewManager wires the play loop. Intervals default to the daemon section
// of cfg.
func NewManager(cfg *config.Config, store Store, q Queue, resolver Resolver, p player.Player, opts ...Option) *Manager {
	m := &Manager{
		store:              store,
		queue:              q,
		resolver:           resolver,
		player:             p,
		notifier:           notifications.NewService(nil),
		logger:             logging.NewNop(),
		now:                time.Now,
		pollInterval:       time.Second,
		errorRetryInterval: 10 * time.Second,
	}
	if cfg != nil {
		if cfg.Daemon.PollInterval > 0 {
			m.pollInterval = time.Duration(cfg.Daemon.PollInterval) * time.Second
		}
		if cfg.Daemon.ErrorRetryInterval > 0 {
			m.errorRetryInterval = time.Duration(cfg.Daemon.ErrorRetryInterval) * time.Second
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
