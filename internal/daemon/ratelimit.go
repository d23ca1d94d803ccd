package daemon

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL   = 10 * time.Minute
	limiterPruneSize = 1024
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// requesterLimiter throttles song submissions per requester.
type requesterLimiter struct {
	mu       sync.Mutex
	every    rate.Limit
	limiters map[string]*limiterEntry
	now      func() time.Time
}

// newRequesterLimiter allows perMinute submissions per requester. It returns
// nil, which allows everything, when perMinute is not positive.
func newRequesterLimiter(perMinute int) *requesterLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &requesterLimiter{
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

// Allow reports whether key may submit now.
func (l *requesterLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.ToLower(strings.TrimSpace(key))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) >= limiterPruneSize {
		l.pruneLocked(now)
	}
	entry, ok := l.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.every, 1)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *requesterLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
}
