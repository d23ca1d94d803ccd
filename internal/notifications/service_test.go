package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jukebox/internal/config"
	"jukebox/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTrackStarted, notifications.Payload{"song": "A - B"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "requested track started",
			event:         notifications.EventTrackStarted,
			payload:       notifications.Payload{"song": "Miles Davis - So What", "requester": "alice"},
			expectTitle:   "Night Shift - Now Playing",
			expectMessage: "🎵 Miles Davis - So What, requested by alice",
			expectTags:    "jukebox,playing,request",
		},
		{
			name:           "track failed",
			event:          notifications.EventTrackFailed,
			payload:        notifications.Payload{"song": "Nina Simone - Sinnerman", "kind": "missing_audio", "reason": "file not found"},
			expectTitle:    "Night Shift - Playback Failed",
			expectMessage:  "❌ Could not play Nina Simone - Sinnerman: file not found",
			expectTags:     "jukebox,error,missing_audio",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Night Shift - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "jukebox,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newCaptureServer(t, http.StatusOK)

			cfg := config.Default()
			cfg.Jukebox.ProgramName = "Night Shift"
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceSkipsFillersUnlessEnabled(t *testing.T) {
	server, got := newCaptureServer(t, http.StatusOK)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	filler := notifications.Payload{"song": "Bill Evans - Peace Piece", "filler": "true"}

	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTrackStarted, filler); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("expected filler to be suppressed, got %d call(s)", got.calls)
	}

	cfg.Notifications.NotifyFillers = true
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTrackStarted, filler); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.calls != 1 || !strings.Contains(got.body, "random pick") {
		t.Fatalf("expected filler announcement, got calls=%d body=%q", got.calls, got.body)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusForbidden)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventDaemonStarted, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
