package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"
)

// Provider is a backend holding song audio objects addressed by key.
type Provider interface {
	Name() string
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (*Object, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Object is the provider-agnostic representation of a stored file.
type Object struct {
	Body         io.ReadCloser
	Size         int64
	LastModified time.Time
}

var audioExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".ogg":  {},
	".oga":  {},
	".opus": {},
	".m4a":  {},
	".aac":  {},
	".wav":  {},
}

// IsAudioFile reports whether name has a recognised audio extension.
func IsAudioFile(name string) bool {
	_, ok := audioExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// cleanKey normalizes a file reference into a slash separated key without
// leading slashes or parent traversal.
func cleanKey(key string) (string, bool) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", false
	}
	cleaned := path.Clean("/" + key)
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", false
	}
	return cleaned, true
}
