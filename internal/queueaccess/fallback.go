package queueaccess

import (
	"fmt"

	"jukebox/internal/apiclient"
	"jukebox/internal/config"
	"jukebox/internal/queue"
)

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries the daemon API first, then falls back to direct
// store access. dial should fail when no daemon answers.
func OpenWithFallback(
	cfg *config.Config,
	dial func() (*apiclient.Client, error),
	openStore func() (*queue.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil && client != nil {
			return Session{Access: NewAPIAccess(client)}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(cfg, store),
		close:  store.Close,
	}, nil
}
