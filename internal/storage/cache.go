package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"jukebox/internal/fileutil"
	"jukebox/internal/logging"
	"jukebox/internal/textutil"
)

type pendingFetch struct {
	done chan struct{}
	err  error
}

// Cache downloads objects from a remote provider into a local directory.
// Concurrent requests for the same key share one download. Files stay until
// Cleanup drops them; names starting with a dot are in-flight downloads.
type Cache struct {
	provider Provider
	dir      string
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingFetch
}

// NewCache returns a cache storing files under dir.
func NewCache(provider Provider, dir string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		provider: provider,
		dir:      dir,
		logger:   logger,
		pending:  make(map[string]*pendingFetch),
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// filePath maps a key to a stable, filesystem-safe cache file name.
func (c *Cache) filePath(key string) string {
	sum := sha256.Sum256([]byte(key))
	name := textutil.SanitizeFileName(path.Base(key))
	if name == "" {
		name = "track"
	}
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])+"-"+name)
}

// Path returns the local path of key, downloading it on a cache miss.
func (c *Cache) Path(ctx context.Context, key string) (string, error) {
	localPath := c.filePath(key)

	if info, err := os.Stat(localPath); err == nil && info.Mode().IsRegular() {
		now := time.Now()
		_ = os.Chtimes(localPath, now, now)
		return localPath, nil
	}

	c.mu.Lock()
	if fetch, ok := c.pending[key]; ok {
		c.mu.Unlock()
		select {
		case <-fetch.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		if fetch.err != nil {
			return "", fetch.err
		}
		return localPath, nil
	}
	fetch := &pendingFetch{done: make(chan struct{})}
	c.pending[key] = fetch
	c.mu.Unlock()

	fetch.err = c.download(ctx, key, localPath)

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
	close(fetch.done)

	if fetch.err != nil {
		return "", fetch.err
	}
	return localPath, nil
}

func (c *Cache) download(ctx context.Context, key, localPath string) error {
	c.logger.Debug("audio cache miss",
		logging.String(logging.FieldEventType, "cache_miss"),
		logging.String("key", key),
		logging.String("provider", c.provider.Name()),
	)
	start := time.Now()
	obj, err := c.provider.Open(ctx, key)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	written, err := fileutil.WriteFileAtomic(localPath, obj.Body, obj.Size)
	if err != nil {
		return fmt.Errorf("cache %s: %w", key, err)
	}
	c.logger.Debug("audio cached",
		logging.String(logging.FieldEventType, "cache_stored"),
		logging.String("key", key),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Prefetch downloads keys in the background so they are ready when played.
func (c *Cache) Prefetch(ctx context.Context, keys ...string) {
	for _, key := range keys {
		go func(k string) {
			if _, err := c.Path(ctx, k); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(c.logger, "audio prefetch failed", "cache_prefetch_failed",
					logging.String("key", k),
					logging.Error(err),
					logging.String(logging.FieldImpact, "track will be downloaded when it plays"),
				)
			}
		}(key)
	}
}

// Fetch returns a local copy of key without adding it to the cache. A cached
// file is returned in place; otherwise key is downloaded into a temporary
// directory that release removes.
func (c *Cache) Fetch(ctx context.Context, key string) (string, func(), error) {
	localPath := c.filePath(key)
	if info, err := os.Stat(localPath); err == nil && info.Mode().IsRegular() {
		return localPath, func() {}, nil
	}

	obj, err := c.provider.Open(ctx, key)
	if err != nil {
		return "", nil, err
	}
	defer obj.Body.Close()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create cache dir: %w", err)
	}
	tmpDir, err := os.MkdirTemp(c.dir, ".fetch-*")
	if err != nil {
		return "", nil, fmt.Errorf("create fetch dir: %w", err)
	}
	release := func() { _ = os.RemoveAll(tmpDir) }
	name := textutil.SanitizeFileName(path.Base(key))
	if name == "" {
		name = "track"
	}
	tmpPath := filepath.Join(tmpDir, name)
	if _, err := fileutil.WriteFileAtomic(tmpPath, obj.Body, obj.Size); err != nil {
		release()
		return "", nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	return tmpPath, release, nil
}

// Cleanup removes cached files for every key not in keep. Downloads still in
// progress are left alone. It returns the number of files removed.
func (c *Cache) Cleanup(keep ...string) int {
	retained := make(map[string]struct{}, len(keep))
	for _, key := range keep {
		retained[c.filePath(key)] = struct{}{}
	}
	c.mu.Lock()
	for key := range c.pending {
		retained[c.filePath(key)] = struct{}{}
	}
	c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fullPath := filepath.Join(c.dir, entry.Name())
		if _, ok := retained[fullPath]; ok {
			continue
		}
		if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(c.logger, "audio cache cleanup failed", "cache_cleanup_failed",
				logging.String("path", fullPath),
				logging.Error(err),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		c.logger.Debug("audio cache pruned",
			logging.String(logging.FieldEventType, "cache_pruned"),
			logging.Int("removed", removed),
			logging.Int("kept", len(keep)),
		)
	}
	return removed
}
