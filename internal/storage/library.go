package storage

import (
	"context"
	"fmt"
	"log/slog"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/services"
)

// Library resolves song file references to playable local paths.
type Library struct {
	provider Provider
	local    *LocalProvider
	cache    *Cache
}

// New builds the Library for the configured storage backend.
func New(cfg *config.Config, logger *slog.Logger) (*Library, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init", "config is required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.UsesS3() {
		provider, err := NewS3Provider(cfg.Storage)
		if err != nil {
			return nil, err
		}
		return NewLibrary(provider, NewCache(provider, cfg.Paths.CacheDir, logger)), nil
	}
	return NewLibrary(NewLocalProvider(cfg.Paths.MediaDir), nil), nil
}

// NewLibrary pairs a provider with an optional download cache. Local
// providers resolve directly to their files and never use the cache.
func NewLibrary(provider Provider, cache *Cache) *Library {
	lib := &Library{provider: provider, cache: cache}
	if local, ok := provider.(*LocalProvider); ok {
		lib.local = local
	}
	return lib
}

// Provider returns the backing provider.
func (l *Library) Provider() Provider { return l.provider }

// Backend names the active backend.
func (l *Library) Backend() string { return l.provider.Name() }

// Keys lists every audio key in the backend.
func (l *Library) Keys(ctx context.Context) ([]string, error) {
	return l.provider.List(ctx, "")
}

// Resolve returns a local path holding the audio for ref. Missing audio is
// reported with services.ErrNotFound.
func (l *Library) Resolve(ctx context.Context, ref string) (string, error) {
	if l.local != nil {
		path, err := l.local.Path(ref)
		if err != nil {
			return "", err
		}
		ok, err := l.local.Exists(ctx, ref)
		if err != nil {
			return "", services.Wrap(services.ErrTransient, "storage", "resolve", ref, err)
		}
		if !ok {
			return "", services.Wrap(services.ErrNotFound, "storage", "resolve", fmt.Sprintf("audio file %s not found", path), nil)
		}
		return path, nil
	}
	if l.cache == nil {
		return "", services.Wrap(services.ErrConfiguration, "storage", "resolve", "remote backend has no cache", nil)
	}
	return l.cache.Path(ctx, ref)
}

// Prefetch warms the cache for upcoming refs. It is a no-op for local storage.
func (l *Library) Prefetch(ctx context.Context, refs ...string) {
	if l.cache == nil || len(refs) == 0 {
		return
	}
	l.cache.Prefetch(ctx, refs...)
}

// Fetch returns a local path for ref that is only needed briefly, such as
// for reading tags. Remote objects are not kept in the cache; call release
// when done with the path.
func (l *Library) Fetch(ctx context.Context, ref string) (string, func(), error) {
	if l.local != nil || l.cache == nil {
		path, err := l.Resolve(ctx, ref)
		if err != nil {
			return "", nil, err
		}
		return path, func() {}, nil
	}
	return l.cache.Fetch(ctx, ref)
}

// Retain drops cached audio for every ref not listed. It is a no-op for
// local storage.
func (l *Library) Retain(refs ...string) {
	if l.cache == nil {
		return
	}
	l.cache.Cleanup(refs...)
}

// Pinger is implemented by providers that can check their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the backend when the provider supports it.
func (l *Library) Ping(ctx context.Context) error {
	if pinger, ok := l.provider.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
