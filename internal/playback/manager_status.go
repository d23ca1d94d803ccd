package playback

import (
	"context"

	"jukebox/internal/queue"
)

// StatusSummary is a snapshot of the play loop.
type StatusSummary struct {
	Running    bool
	NowPlaying *queue.Request
	LastPlayed *queue.Request
	LastError  string
	Played     int
	Failed     int
	Stats      queue.Stats
}

// Status reports loop state together with store counters. Store errors
// leave Stats zeroed.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		NowPlaying: copyRequest(m.current),
		LastPlayed: copyRequest(m.lastPlayed),
		Played:     m.playedCount,
		Failed:     m.failedCount,
	}
	if m.lastError != nil {
		summary.LastError = m.lastError.Error()
	}
	m.mu.RUnlock()

	if stats, err := m.store.Stats(ctx); err == nil {
		summary.Stats = stats
	}
	return summary
}

func (m *Manager) setCurrent(req *queue.Request) {
	m.mu.Lock()
	m.current = req
	m.mu.Unlock()
}

func (m *Manager) recordPlayed(req *queue.Request) {
	m.mu.Lock()
	m.lastPlayed = req
	m.playedCount++
	m.mu.Unlock()
}

func (m *Manager) recordFailed(req *queue.Request, err error) {
	m.mu.Lock()
	m.lastPlayed = req
	m.failedCount++
	m.lastError = err
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastError = err
	m.mu.Unlock()
}

func copyRequest(req *queue.Request) *queue.Request {
	if req == nil {
		return nil
	}
	clone := *req
	if req.PlayedAt != nil {
		at := *req.PlayedAt
		clone.PlayedAt = &at
	}
	return &clone
}
