package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jukebox/internal/services"
)

// LocalProvider serves objects from a directory tree.
type LocalProvider struct {
	root string
}

// NewLocalProvider returns a provider rooted at dir.
func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{root: filepath.Clean(dir)}
}

// Name identifies the backend in logs.
func (l *LocalProvider) Name() string { return "local" }

// Root returns the directory the provider reads from.
func (l *LocalProvider) Root() string { return l.root }

// Path maps a key to a filesystem path. Absolute references are used as-is
// so songs imported from outside the media directory stay playable.
func (l *LocalProvider) Path(key string) (string, error) {
	if filepath.IsAbs(key) {
		return filepath.Clean(key), nil
	}
	cleaned, ok := cleanKey(key)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "storage", "resolve", fmt.Sprintf("invalid file reference %q", key), nil)
	}
	return filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}

// List walks the media directory and returns audio keys under prefix, sorted.
func (l *LocalProvider) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != l.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsAudioFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "storage", "list", fmt.Sprintf("media directory %s does not exist", l.root), err)
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Open returns a reader for the object at key.
func (l *LocalProvider) Open(_ context.Context, key string) (*Object, error) {
	path, err := l.Path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "storage", "open", key, err)
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Object{Body: f, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// Exists reports whether a regular file is stored at key.
func (l *LocalProvider) Exists(_ context.Context, key string) (bool, error) {
	path, err := l.Path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Ping verifies the media root is a readable directory.
func (l *LocalProvider) Ping(context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "storage", "ping", l.root, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrConfiguration, "storage", "ping", fmt.Sprintf("%s is not a directory", l.root), nil)
	}
	return nil
}
