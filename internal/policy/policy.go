package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jukebox/internal/logging"
	"jukebox/internal/queue"
)

// Store is the subset of the request store the policy reads and writes.
type Store interface {
	PlayedHistory(ctx context.Context, limit int) ([]*queue.Request, error)
	UpcomingRequested(ctx context.Context) ([]*queue.Request, error)
	UpcomingFillers(ctx context.Context, limit int) ([]*queue.Request, error)
	SongIDs(ctx context.Context) ([]int64, error)
	GetSongs(ctx context.Context, ids []int64) (map[int64]queue.Song, error)
	Backfill(ctx context.Context, minimum int, pick queue.FillerPicker, at time.Time) (queue.BackfillResult, error)
	NextRequest(ctx context.Context) (*queue.Request, error)
}

// Limits bounds the lists a State carries.
type Limits struct {
	// PreviousSongs caps RecentlyPlayed.
	PreviousSongs int
	// UpcomingSongs is the minimum length of the combined upcoming list.
	UpcomingSongs int
}

// State is a point-in-time view of the queue.
type State struct {
	NowPlaying        *queue.Request
	RecentlyPlayed    []*queue.Request
	UpcomingRequested []*queue.Request
	UpcomingRandom    []*queue.Request
}

// Upcoming returns requested tracks followed by random fillers.
func (s State) Upcoming() []*queue.Request {
	out := make([]*queue.Request, 0, len(s.UpcomingRequested)+len(s.UpcomingRandom))
	out = append(out, s.UpcomingRequested...)
	return append(out, s.UpcomingRandom...)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithClock overrides the time source used to stamp filler requests.
func WithClock(now func() time.Time) Option {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger used for backfill diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Policy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Policy applies ordering and backfill rules to a Store.
type Policy struct {
	// fillMu serializes backfills from this process; the store serializes
	// them across processes.
	fillMu sync.Mutex
	store  Store
	limits Limits
	picker *Picker
	now    func() time.Time
	logger *slog.Logger
}

// New constructs a Policy. A nil picker is replaced with a clock-seeded one.
func New(store Store, limits Limits, picker *Picker, opts ...Option) *Policy {
	if picker == nil {
		picker = NewPicker(0)
	}
	p := &Policy{
		store:  store,
		limits: sanitizeLimits(limits),
		picker: picker,
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sanitizeLimits(l Limits) Limits {
	l.PreviousSongs = max(l.PreviousSongs, 0)
	l.UpcomingSongs = max(l.UpcomingSongs, 0)
	return l
}

// Limits returns the configured display limits.
func (p *Policy) Limits() Limits {
	return p.limits
}

// fillCount is how many fillers are needed to pad requested up to the minimum.
func (p *Policy) fillCount(requested int) int {
	return max(0, p.limits.UpcomingSongs-requested)
}

// Snapshot reads the current State without modifying the store.
func (p *Policy) Snapshot(ctx context.Context) (State, error) {
	var state State

	history, err := p.store.PlayedHistory(ctx, p.limits.PreviousSongs+1)
	if err != nil {
		return State{}, fmt.Errorf("read history: %w", err)
	}
	if len(history) > 0 {
		state.NowPlaying = history[0]
		history = history[1:]
	}
	if len(history) > p.limits.PreviousSongs {
		history = history[:p.limits.PreviousSongs]
	}
	state.RecentlyPlayed = history

	requested, err := p.store.UpcomingRequested(ctx)
	if err != nil {
		return State{}, fmt.Errorf("read requested: %w", err)
	}
	state.UpcomingRequested = requested

	if fill := p.fillCount(len(requested)); fill > 0 {
		fillers, err := p.store.UpcomingFillers(ctx, fill)
		if err != nil {
			return State{}, fmt.Errorf("read fillers: %w", err)
		}
		state.UpcomingRandom = fillers
	} else {
		state.UpcomingRandom = []*queue.Request{}
	}
	return state, nil
}

// Backfill inserts filler requests for random idle songs until the active
// fillers cover the gap between user requests and the upcoming minimum. It
// returns the number of fillers created.
func (p *Policy) Backfill(ctx context.Context) (int, error) {
	p.fillMu.Lock()
	defer p.fillMu.Unlock()

	result, err := p.store.Backfill(ctx, p.limits.UpcomingSongs, p.picker.Sample, p.now())
	if err != nil {
		return 0, fmt.Errorf("backfill: %w", err)
	}
	created := len(result.Created)
	if created > 0 {
		p.logger.Debug("queue backfilled",
			logging.String(logging.FieldEventType, "queue_backfilled"),
			logging.Int("created", created),
			logging.Int("requested", result.Requested),
			logging.Int("idle_songs", result.Idle),
		)
	}
	return created, nil
}

// Next returns the request that should play next, or nil when the queue is empty.
func (p *Policy) Next(ctx context.Context) (*queue.Request, error) {
	return p.store.NextRequest(ctx)
}

// Refresh backfills and then returns a Snapshot.
func (p *Policy) Refresh(ctx context.Context) (State, error) {
	if _, err := p.Backfill(ctx); err != nil {
		return State{}, err
	}
	return p.Snapshot(ctx)
}

// RandomSongs returns up to n distinct random catalog songs.
func (p *Policy) RandomSongs(ctx context.Context, n int) ([]queue.Song, error) {
	if n <= 0 {
		return []queue.Song{}, nil
	}
	ids, err := p.store.SongIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	picked := p.picker.Sample(ids, n)
	byID, err := p.store.GetSongs(ctx, picked)
	if err != nil {
		return nil, fmt.Errorf("load songs: %w", err)
	}
	out := make([]queue.Song, 0, len(picked))
	for _, id := range picked {
		if song, ok := byID[id]; ok {
			out = append(out, song)
		}
	}
	return out, nil
}
