package services_test

import (
	"context"
	"testing"

	"jukebox/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSongID(ctx, 42)
	ctx = services.WithSongRequestID(ctx, 7)
	ctx = services.WithRequester(ctx, "alice")
	ctx = services.WithCorrelationID(ctx, "req-123")

	if id, ok := services.SongIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected song id: %v %v", id, ok)
	}
	if id, ok := services.SongRequestIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("unexpected song request id: %v %v", id, ok)
	}
	if who, ok := services.RequesterFromContext(ctx); !ok || who != "alice" {
		t.Fatalf("unexpected requester: %v %v", who, ok)
	}
	if rid, ok := services.CorrelationIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected correlation id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequester(ctx, "")
	ctx = services.WithCorrelationID(ctx, "")
	if _, ok := services.RequesterFromContext(ctx); ok {
		t.Fatal("expected no requester value")
	}
	if _, ok := services.CorrelationIDFromContext(ctx); ok {
		t.Fatal("expected no correlation value")
	}
	if _, ok := services.SongIDFromContext(ctx); ok {
		t.Fatal("expected no song id")
	}
}
