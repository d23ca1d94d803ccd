package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jukebox/internal/catalog"
	"jukebox/internal/storage"
	"jukebox/internal/testsupport"
)

// writeID3v1 writes a small fake MP3 body followed by an ID3v1 tag.
func writeID3v1(t *testing.T, path, title, artist, album string, genre byte) {
	t.Helper()
	body := make([]byte, 256)
	for i := range body {
		body[i] = 0x42
	}
	tagBlock := make([]byte, 128)
	copy(tagBlock[0:3], "TAG")
	copy(tagBlock[3:33], title)
	copy(tagBlock[33:63], artist)
	copy(tagBlock[63:93], album)
	copy(tagBlock[93:97], "1999")
	tagBlock[127] = genre
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append(body, tagBlock...), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseFileName(t *testing.T) {
	cases := []struct {
		name, artist, title string
	}{
		{"Daft Punk - One More Time.mp3", "Daft Punk", "One More Time"},
		{"dir/sub/Just_A_Title.flac", "", "Just A Title"},
		{"A - B - C.ogg", "A", "B - C"},
	}
	for _, tc := range cases {
		artist, title := catalog.ParseFileName(tc.name)
		if artist != tc.artist || title != tc.title {
			t.Fatalf("ParseFileName(%q) = (%q, %q), want (%q, %q)", tc.name, artist, title, tc.artist, tc.title)
		}
	}
}

func TestReadTrackUsesTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whatever.mp3")
	writeID3v1(t, path, "Paranoid Android", "Radiohead", "OK Computer", 17)

	track, err := catalog.ReadTrack(path, "whatever.mp3")
	if err != nil {
		t.Fatalf("ReadTrack failed: %v", err)
	}
	if !track.Tagged {
		t.Fatal("expected tagged track")
	}
	if track.Title != "Paranoid Android" || track.Artist != "Radiohead" || track.Album != "OK Computer" {
		t.Fatalf("unexpected track %#v", track)
	}
	if track.Genre != "Rock" {
		t.Fatalf("expected Rock genre, got %q", track.Genre)
	}
}

func TestReadTrackFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Nina Simone - Feeling Good.mp3")
	testsupport.WriteFile(t, path, 512)

	track, err := catalog.ReadTrack(path, filepath.Base(path))
	if err != nil {
		t.Fatalf("ReadTrack failed: %v", err)
	}
	if track.Tagged {
		t.Fatal("expected untagged track")
	}
	if track.Artist != "Nina Simone" || track.Title != "Feeling Good" {
		t.Fatalf("unexpected fallback %#v", track)
	}
}

func TestImportDirInsideMediaRootUsesRelativeRefs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	writeID3v1(t, filepath.Join(cfg.Paths.MediaDir, "rock", "a.mp3"), "Song A", "Band", "Album", 17)
	testsupport.WriteMediaFiles(t, cfg.Paths.MediaDir, "jazz/Miles Davis - So What.mp3", "jazz/cover.jpg")

	importer := catalog.NewImporter(store, nil)
	result, err := importer.ImportDir(context.Background(), cfg.Paths.MediaDir, catalog.DirOptions{MediaRoot: cfg.Paths.MediaDir})
	if err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	if result.Scanned != 2 || result.Imported != 2 || result.Untagged != 1 || result.Err() != nil {
		t.Fatalf("unexpected result %#v", result)
	}

	songs, err := store.ListSongs(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	refs := map[string]string{}
	for _, song := range songs {
		refs[song.FileRef] = song.DisplayName()
	}
	if refs["rock/a.mp3"] != "Band - Song A" {
		t.Fatalf("expected tagged rock/a.mp3, got %v", refs)
	}
	if refs["jazz/Miles Davis - So What.mp3"] != "Miles Davis - So What" {
		t.Fatalf("expected filename fallback, got %v", refs)
	}

	// Re-import refreshes instead of duplicating.
	if _, err := importer.ImportDir(context.Background(), cfg.Paths.MediaDir, catalog.DirOptions{MediaRoot: cfg.Paths.MediaDir}); err != nil {
		t.Fatalf("second ImportDir failed: %v", err)
	}
	count, err := store.CountSongs(context.Background())
	if err != nil || count != 2 {
		t.Fatalf("expected 2 songs after re-import, got %d err=%v", count, err)
	}
}

func TestImportDirCopiesOutsideFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	outside := t.TempDir()
	writeID3v1(t, filepath.Join(outside, "track01.mp3"), "Teardrop", "Massive Attack", "Mezzanine", 0)

	importer := catalog.NewImporter(store, nil)
	result, err := importer.ImportDir(context.Background(), outside, catalog.DirOptions{MediaRoot: cfg.Paths.MediaDir, Copy: true})
	if err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	if result.Imported != 1 {
		t.Fatalf("expected 1 import, got %#v", result)
	}
	copied := filepath.Join(cfg.Paths.MediaDir, "Massive Attack", "Mezzanine", "track01.mp3")
	if _, err := os.Stat(copied); err != nil {
		t.Fatalf("expected copied file: %v", err)
	}
	songs, err := store.SearchSongs(context.Background(), "teardrop", 0)
	if err != nil || len(songs) != 1 {
		t.Fatalf("expected one song, got %v err=%v", songs, err)
	}
	if songs[0].FileRef != "Massive Attack/Mezzanine/track01.mp3" {
		t.Fatalf("unexpected file ref %q", songs[0].FileRef)
	}
}

func TestImportDirWithoutCopyKeepsAbsolutePath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	outside := t.TempDir()
	paths := testsupport.WriteMediaFiles(t, outside, "Artist - Title.mp3")

	result, err := catalog.NewImporter(store, nil).ImportDir(context.Background(), outside, catalog.DirOptions{MediaRoot: cfg.Paths.MediaDir})
	if err != nil || result.Imported != 1 {
		t.Fatalf("ImportDir result=%#v err=%v", result, err)
	}
	songs, err := store.ListSongs(context.Background(), 0, 0)
	if err != nil || len(songs) != 1 {
		t.Fatalf("ListSongs: %v err=%v", songs, err)
	}
	if songs[0].FileRef != paths[0] {
		t.Fatalf("expected absolute ref %q, got %q", paths[0], songs[0].FileRef)
	}
}

func TestImportLibrary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteMediaFiles(t, cfg.Paths.MediaDir, "x/Artist One - First.mp3", "y/Artist Two - Second.flac")
	lib := storage.NewLibrary(storage.NewLocalProvider(cfg.Paths.MediaDir), nil)

	result, err := catalog.NewImporter(store, nil).ImportLibrary(context.Background(), lib)
	if err != nil {
		t.Fatalf("ImportLibrary failed: %v", err)
	}
	if result.Scanned != 2 || result.Imported != 2 {
		t.Fatalf("unexpected result %#v", result)
	}
	songs, err := store.SearchSongs(context.Background(), "artist two", 0)
	if err != nil || len(songs) != 1 || songs[0].FileRef != "y/Artist Two - Second.flac" {
		t.Fatalf("unexpected songs %v err=%v", songs, err)
	}
}

func writeDurationCommand(t *testing.T, script string) string {
	t.Helper()
	target := filepath.Join(t.TempDir(), "fake-ffprobe")
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return target
}

func TestImportRecordsDuration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteMediaFiles(t, cfg.Paths.MediaDir, "Artist - Long.mp3")

	read := catalog.FFprobeDurations(writeDurationCommand(t, `echo "215.500000"`))
	if read == nil {
		t.Fatal("expected a duration reader for an executable command")
	}
	importer := catalog.NewImporter(store, nil, catalog.WithDurations(read))
	if _, err := importer.ImportDir(context.Background(), cfg.Paths.MediaDir, catalog.DirOptions{MediaRoot: cfg.Paths.MediaDir}); err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	songs, err := store.ListSongs(context.Background(), 0, 0)
	if err != nil || len(songs) != 1 {
		t.Fatalf("unexpected songs %v err=%v", songs, err)
	}
	if songs[0].Duration != 215*time.Second {
		t.Fatalf("expected 215s duration, got %s", songs[0].Duration)
	}
}

func TestImportKeepsSongWhenDurationUnreadable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.WriteMediaFiles(t, cfg.Paths.MediaDir, "Artist - Broken.mp3")

	read := catalog.FFprobeDurations(writeDurationCommand(t, `echo "N/A"`))
	result, err := catalog.NewImporter(store, nil, catalog.WithDurations(read)).
		ImportDir(context.Background(), cfg.Paths.MediaDir, catalog.DirOptions{MediaRoot: cfg.Paths.MediaDir})
	if err != nil || result.Imported != 1 || result.Err() != nil {
		t.Fatalf("unexpected result %#v err=%v", result, err)
	}
	songs, err := store.ListSongs(context.Background(), 0, 0)
	if err != nil || len(songs) != 1 || songs[0].Duration != 0 {
		t.Fatalf("expected one song without duration, got %v err=%v", songs, err)
	}
}

func TestFFprobeDurationsMissingCommand(t *testing.T) {
	if catalog.FFprobeDurations("") != nil {
		t.Fatal("expected nil reader for blank command")
	}
	if catalog.FFprobeDurations(filepath.Join(t.TempDir(), "missing")) != nil {
		t.Fatal("expected nil reader for missing command")
	}
}
