package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"jukebox/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "player", "play", "exit status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"player", "play", "exit status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFailureKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrNotFound, "storage", "resolve", "missing", nil), "missing_audio"},
		{services.Wrap(services.ErrTimeout, "player", "play", "", nil), "timeout"},
		{fmt.Errorf("play: %w", context.DeadlineExceeded), "timeout"},
		{services.Wrap(services.ErrExternalTool, "player", "play", "", errors.New("exit 1")), "player_failed"},
		{services.Wrap(services.ErrConfiguration, "storage", "", "", nil), "configuration"},
		{errors.New("io"), "transient"},
	}
	for _, tc := range tests {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Errorf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
