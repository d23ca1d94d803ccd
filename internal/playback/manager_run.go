package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"jukebox/internal/logging"
	"jukebox/internal/notifications"
	"jukebox/internal/queue"
	"jukebox/internal/services"
)

// errAlreadyRunning is returned by Start when the loop is active.
var errAlreadyRunning = errors.New("playback manager already running")

// Start launches the play loop in the background.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.lastError = nil

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(runCtx)
	}()

	m.logger.Info("playback loop started",
		logging.String(logging.FieldEventType, "playback_started"),
		logging.Duration("poll_interval", m.pollInterval),
	)
	return nil
}

// Stop cancels the loop, interrupting the current track, and waits for it
// to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.current = nil
	m.mu.Unlock()

	m.logger.Info("playback loop stopped", logging.String(logging.FieldEventType, "playback_stopped"))
}

// Run executes the loop in the calling goroutine until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.run(ctx)
}

func (m *Manager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wait, err := m.step(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			m.handleStoreError(ctx, err)
		case wait:
			m.waitOrShutdown(ctx, m.pollInterval)
		}
	}
}

// step performs one pass of the loop. It reports wait=true when the queue
// was empty. A non-nil error always comes from the store.
func (m *Manager) step(ctx context.Context) (bool, error) {
	if created, err := m.queue.Backfill(ctx); err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		logging.WarnWithContext(m.logger, "queue backfill failed", "backfill_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the song catalog and database access"),
		)
	} else if created > 0 {
		m.metrics.AddFillers(created)
	}
	m.refreshDepth(ctx)

	req, err := m.queue.Next(ctx)
	if err != nil {
		return false, fmt.Errorf("select next request: %w", err)
	}
	if req == nil {
		return true, nil
	}
	return false, m.play(ctx, req)
}

func (m *Manager) play(ctx context.Context, req *queue.Request) error {
	ctx = services.WithSongRequestID(ctx, req.ID)
	ctx = services.WithSongID(ctx, req.SongID)
	if !req.IsFiller() {
		ctx = services.WithRequester(ctx, req.Requester)
	}
	ctx = services.WithCorrelationID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	startedAt := m.now()
	marked, err := m.store.MarkPlayed(ctx, req.ID, startedAt)
	if err != nil {
		return err
	}
	if !marked {
		logger.Debug("request already consumed", logging.String(logging.FieldEventType, "request_skipped"))
		return nil
	}
	played := *req
	played.PlayedAt = &startedAt
	m.setCurrent(&played)
	defer m.setCurrent(nil)

	m.prepareNext(ctx, req)

	logger.Info("track started",
		logging.String(logging.FieldEventType, "track_started"),
		logging.String("song", req.Song.DisplayName()),
		logging.Bool("filler", req.IsFiller()),
	)
	m.notify(ctx, notifications.EventTrackStarted, trackPayload(req))

	path, err := m.resolver.Resolve(ctx, req.Song.FileRef)
	if err == nil {
		begin := time.Now()
		err = m.player.Play(ctx, path)
		if err == nil {
			elapsed := time.Since(begin)
			m.metrics.ObservePlay(req.IsFiller(), elapsed)
			m.recordPlayed(&played)
			logger.Info("track finished",
				logging.String(logging.FieldEventType, "track_finished"),
				logging.Duration("elapsed", elapsed),
			)
			return nil
		}
	}

	if ctx.Err() != nil {
		// The request was consumed; record the interruption with a context
		// that outlives shutdown.
		err = services.Wrap(services.ErrTransient, "playback", "play", "interrupted by shutdown", ctx.Err())
		return m.recordFailure(context.WithoutCancel(ctx), &played, err)
	}
	if err := m.recordFailure(ctx, &played, err); err != nil {
		return err
	}
	payload := trackPayload(req)
	payload["kind"] = services.FailureKind(err)
	payload["reason"] = err.Error()
	m.notify(ctx, notifications.EventTrackFailed, payload)
	return nil
}

// notify publishes in the background so a slow ntfy server never delays
// the next track. Stop waits for pending sends.
func (m *Manager) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	logger := logging.WithContext(ctx, m.logger)
	sendCtx := context.WithoutCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.notifier.Publish(sendCtx, event, payload); err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}

func trackPayload(req *queue.Request) notifications.Payload {
	payload := notifications.Payload{"song": req.Song.DisplayName()}
	if req.IsFiller() {
		payload["filler"] = "true"
	} else {
		payload["requester"] = req.Requester
	}
	return payload
}

func (m *Manager) recordFailure(ctx context.Context, req *queue.Request, cause error) error {
	kind := services.FailureKind(cause)
	logger := logging.WithContext(ctx, m.logger)
	m.metrics.ObserveFailure(kind)
	m.recordFailed(req, cause)

	logging.WarnWithContext(logger, "track playback failed", "track_failed",
		logging.String("song", req.Song.DisplayName()),
		logging.String("file_ref", req.Song.FileRef),
		logging.String("failure_kind", kind),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, failureHint(kind)),
	)

	if _, err := m.store.RecordFailure(ctx, req.ID, kind, cause.Error(), m.now()); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

func failureHint(kind string) string {
	switch kind {
	case "missing_audio":
		return "re-import the catalog or restore the audio file"
	case "timeout":
		return "raise player.timeout_seconds or check the audio device"
	case "player_failed":
		return "run the player command by hand against the file"
	case "configuration":
		return "check player.command in the config"
	default:
		return "see the daemon log for details"
	}
}

// prepareNext evicts cached audio other than the current and next track,
// then starts downloading the next one.
func (m *Manager) prepareNext(ctx context.Context, current *queue.Request) {
	next, err := m.queue.Next(ctx)
	if err != nil {
		return
	}
	if next == nil {
		m.resolver.Retain(current.Song.FileRef)
		return
	}
	m.resolver.Retain(current.Song.FileRef, next.Song.FileRef)
	m.resolver.Prefetch(ctx, next.Song.FileRef)
}

func (m *Manager) refreshDepth(ctx context.Context) {
	if m.metrics == nil {
		return
	}
	requested, err := m.store.CountActiveRequested(ctx)
	if err != nil {
		return
	}
	fillers, err := m.store.CountActiveFillers(ctx)
	if err != nil {
		return
	}
	m.metrics.SetQueueDepth(requested, fillers)
}

func (m *Manager) handleStoreError(ctx context.Context, err error) {
	m.setLastError(err)
	logging.ErrorWithContext(m.logger, "queue access failed", "queue_fetch_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check queue database access"),
		logging.Duration("retry_in", m.errorRetryInterval),
	)
	m.waitOrShutdown(ctx, m.errorRetryInterval)
}

func (m *Manager) waitOrShutdown(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
