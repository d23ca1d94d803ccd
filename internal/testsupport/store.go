package testsupport

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddSongs inserts one catalog song per title. Titles may use the form
// "Artist - Title"; the file reference is derived from the title.
func AddSongs(t testing.TB, store *queue.Store, titles ...string) []*queue.Song {
	t.Helper()

	songs := make([]*queue.Song, 0, len(titles))
	for i, title := range titles {
		song := queue.Song{Title: title, FileRef: fmt.Sprintf("song-%02d.mp3", i+1), Duration: 3 * time.Minute}
		if artist, name, ok := strings.Cut(title, " - "); ok {
			song.Artist = artist
			song.Title = name
		}
		stored, err := store.UpsertSong(context.Background(), song)
		if err != nil {
			t.Fatalf("store.UpsertSong(%q): %v", title, err)
		}
		songs = append(songs, stored)
	}
	return songs
}

// MustSubmit queues a user request and fails the test on error.
func MustSubmit(t testing.TB, store *queue.Store, songID int64, requester string, at time.Time) *queue.Request {
	t.Helper()

	req, err := store.SubmitRequest(context.Background(), songID, requester, at)
	if err != nil {
		t.Fatalf("store.SubmitRequest(%d, %q): %v", songID, requester, err)
	}
	return req
}
