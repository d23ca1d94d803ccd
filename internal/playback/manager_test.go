package playback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/metrics"
	"jukebox/internal/policy"
	"jukebox/internal/queue"
	"jukebox/internal/services"
	"jukebox/internal/storage"
	"jukebox/internal/testsupport"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePlayer struct {
	mu      sync.Mutex
	paths   []string
	err     error
	block   bool
	started chan struct{}
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{started: make(chan struct{}, 8)}
}

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	block, err := f.block, f.err
	f.mu.Unlock()

	f.started <- struct{}{}
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (f *fakePlayer) played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	policy  *policy.Policy
	player  *fakePlayer
	metrics *metrics.Metrics
	manager *Manager
	songs   []*queue.Song
}

func newHarness(t *testing.T, upcoming int, titles ...string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithUpcoming(upcoming))
	store := testsupport.MustOpenStore(t, cfg)
	songs := testsupport.AddSongs(t, store, titles...)

	clock := baseTime
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	pol := policy.New(store, policy.Limits{PreviousSongs: 2, UpcomingSongs: upcoming}, policy.NewPicker(7), policy.WithClock(now))
	lib := storage.NewLibrary(storage.NewLocalProvider(cfg.Paths.MediaDir), nil)
	fp := newFakePlayer()
	sink := metrics.New()
	mgr := NewManager(cfg, store, pol, lib, fp,
		WithMetrics(sink),
		WithClock(now),
		WithIntervals(10*time.Millisecond, 10*time.Millisecond),
	)
	return &harness{cfg: cfg, store: store, policy: pol, player: fp, metrics: sink, manager: mgr, songs: songs}
}

func metricValue(t *testing.T, sink *metrics.Metrics, name, label, value string) float64 {
	t.Helper()
	families, err := sink.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := label == ""
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					matched = true
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func (h *harness) writeMedia(t *testing.T, songs ...*queue.Song) []string {
	t.Helper()
	refs := make([]string, 0, len(songs))
	for _, song := range songs {
		refs = append(refs, song.FileRef)
	}
	return testsupport.WriteMediaFiles(t, h.cfg.Paths.MediaDir, refs...)
}

func TestStepPlaysRequestedSongFirst(t *testing.T) {
	h := newHarness(t, 2, "Artist - A", "Artist - B", "Artist - C")
	paths := h.writeMedia(t, h.songs...)
	req := testsupport.MustSubmit(t, h.store, h.songs[1].ID, "alice", baseTime)

	ctx := context.Background()
	wait, err := h.manager.step(ctx)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if wait {
		t.Fatal("expected a track to play")
	}

	played := h.player.played()
	if len(played) != 1 || played[0] != paths[1] {
		t.Fatalf("expected %s to play, got %v", paths[1], played)
	}

	stored, err := h.store.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.PlayedAt == nil {
		t.Fatal("expected request to be marked played")
	}

	state, err := h.policy.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if state.NowPlaying == nil || state.NowPlaying.ID != req.ID {
		t.Fatalf("expected request %d now playing, got %#v", req.ID, state.NowPlaying)
	}
	for _, upcoming := range state.Upcoming() {
		if upcoming.SongID == h.songs[1].ID {
			t.Fatal("played song still listed as upcoming")
		}
	}

	if got := metricValue(t, h.metrics, "jukebox_tracks_played_total", "source", "requested"); got != 1 {
		t.Fatalf("expected 1 requested play, got %v", got)
	}
	status := h.manager.Status(ctx)
	if status.Played != 1 || status.LastPlayed == nil || status.LastPlayed.ID != req.ID {
		t.Fatalf("unexpected status %#v", status)
	}
	if status.NowPlaying != nil {
		t.Fatalf("expected no current track after playback, got %#v", status.NowPlaying)
	}
}

func TestStepBackfillsAndPlaysFiller(t *testing.T) {
	h := newHarness(t, 3, "Artist - A", "Artist - B", "Artist - C")
	h.writeMedia(t, h.songs...)

	ctx := context.Background()
	if _, err := h.manager.step(ctx); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if len(h.player.played()) != 1 {
		t.Fatalf("expected filler playback, got %v", h.player.played())
	}
	if got := metricValue(t, h.metrics, "jukebox_fillers_added_total", "", ""); got != 3 {
		t.Fatalf("expected 3 fillers added, got %v", got)
	}
	if got := metricValue(t, h.metrics, "jukebox_tracks_played_total", "source", "filler"); got != 1 {
		t.Fatalf("expected 1 filler play, got %v", got)
	}
}

func TestStepEmptyCatalogWaits(t *testing.T) {
	h := newHarness(t, 3)

	wait, err := h.manager.step(context.Background())
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !wait {
		t.Fatal("expected idle wait with empty catalog")
	}
	if len(h.player.played()) != 0 {
		t.Fatalf("expected no playback, got %v", h.player.played())
	}
}

func TestStepMissingAudioConsumesRequest(t *testing.T) {
	h := newHarness(t, 0, "Artist - A", "Artist - B")
	h.writeMedia(t, h.songs[1])
	missing := testsupport.MustSubmit(t, h.store, h.songs[0].ID, "alice", baseTime)
	next := testsupport.MustSubmit(t, h.store, h.songs[1].ID, "bob", baseTime.Add(time.Second))

	ctx := context.Background()
	if _, err := h.manager.step(ctx); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if len(h.player.played()) != 0 {
		t.Fatalf("player should not run for missing audio, got %v", h.player.played())
	}

	failures, err := h.store.FailuresFor(ctx, []int64{missing.ID})
	if err != nil {
		t.Fatalf("FailuresFor failed: %v", err)
	}
	failure, ok := failures[missing.ID]
	if !ok || failure.Kind != "missing_audio" {
		t.Fatalf("expected missing_audio failure, got %#v", failures)
	}
	active, err := h.store.ActiveRequestFor(ctx, h.songs[0].ID)
	if err != nil {
		t.Fatalf("ActiveRequestFor failed: %v", err)
	}
	if active != nil {
		t.Fatalf("failed request must not be retried, still active: %#v", active)
	}

	// The loop moves on to the next request.
	if _, err := h.manager.step(ctx); err != nil {
		t.Fatalf("second step failed: %v", err)
	}
	stored, err := h.store.GetRequest(ctx, next.ID)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.PlayedAt == nil || len(h.player.played()) != 1 {
		t.Fatalf("expected second request to play, played=%v", h.player.played())
	}
	if got := metricValue(t, h.metrics, "jukebox_playback_failures_total", "kind", "missing_audio"); got != 1 {
		t.Fatalf("expected 1 missing_audio failure metric, got %v", got)
	}
}

func TestStepPlayerFailureRecorded(t *testing.T) {
	h := newHarness(t, 0, "Artist - A")
	h.writeMedia(t, h.songs...)
	h.player.err = services.Wrap(services.ErrExternalTool, "player", "play", "exit status 1", nil)
	req := testsupport.MustSubmit(t, h.store, h.songs[0].ID, "alice", baseTime)

	ctx := context.Background()
	if _, err := h.manager.step(ctx); err != nil {
		t.Fatalf("step failed: %v", err)
	}
	failures, err := h.store.FailuresFor(ctx, []int64{req.ID})
	if err != nil {
		t.Fatalf("FailuresFor failed: %v", err)
	}
	if failures[req.ID].Kind != "player_failed" {
		t.Fatalf("expected player_failed, got %#v", failures[req.ID])
	}
	status := h.manager.Status(ctx)
	if status.Failed != 1 || status.Played != 0 || status.LastError == "" {
		t.Fatalf("unexpected status %#v", status)
	}
	if status.Stats.Failures != 1 {
		t.Fatalf("expected 1 stored failure, got %d", status.Stats.Failures)
	}
}

type failingQueue struct{ err error }

func (q failingQueue) Backfill(context.Context) (int, error)        { return 0, q.err }
func (q failingQueue) Next(context.Context) (*queue.Request, error) { return nil, q.err }

func TestStepReturnsStoreErrors(t *testing.T) {
	h := newHarness(t, 0)
	boom := errors.New("database is locked")
	mgr := NewManager(h.cfg, h.store, failingQueue{err: boom}, storage.NewLibrary(storage.NewLocalProvider(h.cfg.Paths.MediaDir), nil), h.player)

	_, err := mgr.step(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestStartStopInterruptsTrack(t *testing.T) {
	h := newHarness(t, 0, "Artist - A")
	h.writeMedia(t, h.songs...)
	h.player.block = true
	req := testsupport.MustSubmit(t, h.store, h.songs[0].ID, "alice", baseTime)

	ctx := context.Background()
	if err := h.manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := h.manager.Start(ctx); !errors.Is(err, errAlreadyRunning) {
		t.Fatalf("expected already running error, got %v", err)
	}

	select {
	case <-h.player.started:
	case <-time.After(5 * time.Second):
		t.Fatal("player never started")
	}
	status := h.manager.Status(ctx)
	if !status.Running || status.NowPlaying == nil || status.NowPlaying.ID != req.ID {
		t.Fatalf("expected request %d now playing, got %#v", req.ID, status)
	}

	h.manager.Stop()
	if h.manager.Status(ctx).Running {
		t.Fatal("expected manager to be stopped")
	}

	failures, err := h.store.FailuresFor(ctx, []int64{req.ID})
	if err != nil {
		t.Fatalf("FailuresFor failed: %v", err)
	}
	failure, ok := failures[req.ID]
	if !ok || !strings.Contains(failure.Reason, "interrupted") {
		t.Fatalf("expected interruption recorded, got %#v", failures)
	}
}
