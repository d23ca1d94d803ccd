package player_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/player"
	"jukebox/internal/services"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "player")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestPlayPassesFileArgument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, `echo "$@" > `+out)
	p := player.New(config.Player{Command: script, Args: []string{"-q"}}, nil)

	if err := p.Play(context.Background(), "/music/song.mp3"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "-q /music/song.mp3" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestPlaySubstitutesPlaceholder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	script := writeScript(t, `echo "$@" > `+out)
	p := player.New(config.Player{Command: script, Args: []string{"--file={file}", "--no-video"}}, nil)

	if err := p.Play(context.Background(), "track.ogg"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "--file=track.ogg --no-video" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestPlayNonZeroExit(t *testing.T) {
	script := writeScript(t, "echo 'cannot decode' >&2\nexit 3")
	p := player.New(config.Player{Command: script}, nil)

	err := p.Play(context.Background(), "bad.mp3")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot decode") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
	if services.FailureKind(err) != "player_failed" {
		t.Fatalf("expected player_failed kind, got %q", services.FailureKind(err))
	}
}

func TestPlayTimeout(t *testing.T) {
	script := writeScript(t, "exec sleep 5")
	p := player.New(config.Player{Command: script, TimeoutSeconds: 1}, nil)

	start := time.Now()
	err := p.Play(context.Background(), "long.mp3")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Fatalf("timeout did not interrupt player")
	}
}

func TestPlayCancelled(t *testing.T) {
	script := writeScript(t, "exec sleep 5")
	p := player.New(config.Player{Command: script}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	if err := p.Play(ctx, "song.mp3"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlayMissingBinary(t *testing.T) {
	p := player.New(config.Player{Command: "definitely-not-a-player-binary"}, nil)
	err := p.Play(context.Background(), "song.mp3")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
