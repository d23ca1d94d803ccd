package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"jukebox/internal/fileutil"
	"jukebox/internal/logging"
	"jukebox/internal/queue"
	"jukebox/internal/storage"
	"jukebox/internal/textutil"
)

// Store persists catalog songs.
type Store interface {
	UpsertSong(ctx context.Context, song queue.Song) (*queue.Song, error)
}

// Source lists and materializes audio objects from the configured storage.
type Source interface {
	Keys(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, ref string) (path string, release func(), err error)
}

// Failure records a file that could not be imported.
type Failure struct {
	Ref string
	Err error
}

// Result summarizes an import run.
type Result struct {
	Scanned  int
	Imported int
	Untagged int
	Failures []Failure
	Elapsed  time.Duration
}

// DirOptions controls ImportDir.
type DirOptions struct {
	// MediaRoot is the local media directory. Files under it are referenced
	// by their relative path; other files by absolute path unless copied.
	MediaRoot string
	// Copy places files from outside MediaRoot into an Artist/Album layout
	// under MediaRoot before importing them.
	Copy bool
}

// Importer upserts songs read from audio files.
type Importer struct {
	store     Store
	logger    *slog.Logger
	durations DurationReader
}

// Option configures an Importer.
type Option func(*Importer)

// WithDurations records each file's playing time using read. A nil reader
// leaves durations unset.
func WithDurations(read DurationReader) Option {
	return func(i *Importer) {
		i.durations = read
	}
}

// NewImporter constructs an Importer.
func NewImporter(store Store, logger *slog.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = logging.NewNop()
	}
	i := &Importer{store: store, logger: logging.NewComponentLogger(logger, "catalog")}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ImportLibrary imports every audio object in src, keyed by its storage key.
func (i *Importer) ImportLibrary(ctx context.Context, src Source) (Result, error) {
	start := time.Now()
	keys, err := src.Keys(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list library: %w", err)
	}
	var result Result
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Scanned++
		path, release, err := src.Fetch(ctx, key)
		if err != nil {
			i.recordFailure(&result, key, err)
			continue
		}
		i.importFile(ctx, &result, path, key)
		release()
	}
	result.Elapsed = time.Since(start)
	i.logSummary(result, "library")
	return result, nil
}

// ImportDir walks dir and imports every audio file found.
func (i *Importer) ImportDir(ctx context.Context, dir string, opts DirOptions) (Result, error) {
	start := time.Now()
	dir, err := filepath.Abs(dir)
	if err != nil {
		return Result{}, err
	}
	root := ""
	if opts.MediaRoot != "" {
		if root, err = filepath.Abs(opts.MediaRoot); err != nil {
			return Result{}, err
		}
	}

	var result Result
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !storage.IsAudioFile(d.Name()) {
			return nil
		}
		result.Scanned++
		i.importLocal(ctx, &result, path, root, opts.Copy)
		return nil
	})
	result.Elapsed = time.Since(start)
	if walkErr != nil {
		return result, fmt.Errorf("walk %s: %w", dir, walkErr)
	}
	i.logSummary(result, dir)
	return result, nil
}

func (i *Importer) importLocal(ctx context.Context, result *Result, path, root string, copyFiles bool) {
	if root != "" {
		if rel, ok := relativeTo(root, path); ok {
			i.importFile(ctx, result, path, rel)
			return
		}
	}
	if !copyFiles || root == "" {
		i.importFile(ctx, result, path, path)
		return
	}

	track, err := i.readTrack(ctx, path, filepath.Base(path))
	if err != nil {
		i.recordFailure(result, path, err)
		return
	}
	rel := filepath.Join(
		placeholder(textutil.SanitizeFileName(track.Artist), "Unknown Artist"),
		placeholder(textutil.SanitizeFileName(track.Album), "Unknown Album"),
		filepath.Base(path),
	)
	dest := filepath.Join(root, rel)
	if err := fileutil.CopyFileVerified(path, dest); err != nil {
		i.recordFailure(result, path, fmt.Errorf("copy into media dir: %w", err))
		return
	}
	i.upsert(ctx, result, track, filepath.ToSlash(rel))
}

func (i *Importer) importFile(ctx context.Context, result *Result, path, ref string) {
	track, err := i.readTrack(ctx, path, ref)
	if err != nil {
		i.recordFailure(result, ref, err)
		return
	}
	i.upsert(ctx, result, track, ref)
}

// readTrack reads tags and, when configured, the duration. A duration
// failure is logged and the song is still imported.
func (i *Importer) readTrack(ctx context.Context, path, name string) (Track, error) {
	track, err := ReadTrack(path, name)
	if err != nil || i.durations == nil {
		return track, err
	}
	duration, err := i.durations(ctx, path)
	if err != nil {
		i.logger.Debug("duration unavailable",
			logging.String("file_ref", name),
			logging.Error(err),
		)
		return track, nil
	}
	track.Duration = duration
	return track, nil
}

func (i *Importer) upsert(ctx context.Context, result *Result, track Track, ref string) {
	song, err := i.store.UpsertSong(ctx, queue.Song{
		Title:    track.Title,
		Artist:   track.Artist,
		Album:    track.Album,
		Genre:    track.Genre,
		Duration: track.Duration,
		FileRef:  ref,
	})
	if err != nil {
		i.recordFailure(result, ref, err)
		return
	}
	if !track.Tagged {
		result.Untagged++
	}
	result.Imported++
	i.logger.Debug("song imported",
		logging.SongID(song.ID),
		logging.String("file_ref", ref),
		logging.String("title", song.DisplayName()),
		logging.Bool("tagged", track.Tagged),
	)
}

func (i *Importer) recordFailure(result *Result, ref string, err error) {
	result.Failures = append(result.Failures, Failure{Ref: ref, Err: err})
	logging.WarnWithContext(i.logger, "song import failed", "catalog_import_failed",
		logging.String("file_ref", ref),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the file is readable audio"),
		logging.String(logging.FieldImpact, "song is missing from the catalog"),
	)
}

func (i *Importer) logSummary(result Result, source string) {
	i.logger.Info("catalog import complete",
		logging.String(logging.FieldEventType, "catalog_import_complete"),
		logging.String("source", source),
		logging.Int("scanned", result.Scanned),
		logging.Int("imported", result.Imported),
		logging.Int("untagged", result.Untagged),
		logging.Int("failed", len(result.Failures)),
		logging.Duration("elapsed", result.Elapsed),
	)
}

// Err joins the failures of the run, or returns nil.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Ref, f.Err))
	}
	return errors.Join(errs...)
}

func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func placeholder(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
