package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jukebox/internal/config"
)

const userAgent = "Jukebox-Go/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventTrackStarted  Event = "track_started"
	EventTrackFailed   Event = "track_failed"
	EventDaemonStarted Event = "daemon_started"
	EventDaemonStopped Event = "daemon_stopped"
	EventTest          Event = "test"
)

// Payload carries event fields. Keys used: song, requester, filler ("true"
// for random fillers), kind, reason, program.
type Payload map[string]string

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is
// configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		program:       cfg.Jukebox.ProgramName,
		notifyFillers: cfg.Notifications.NotifyFillers,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	program       string
	notifyFillers bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// render returns false for events that should not produce a message.
func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	program := strings.TrimSpace(payload["program"])
	if program == "" {
		program = n.program
	}
	if program == "" {
		program = "Jukebox"
	}
	song := strings.TrimSpace(payload["song"])
	if song == "" {
		song = "unknown song"
	}

	switch event {
	case EventTrackStarted:
		if payload["filler"] == "true" {
			if !n.notifyFillers {
				return message{}, false
			}
			return message{
				title: program + " - Now Playing",
				body:  fmt.Sprintf("🎵 %s (random pick)", song),
				tags:  []string{"jukebox", "playing", "random"},
			}, true
		}
		body := fmt.Sprintf("🎵 %s", song)
		if requester := strings.TrimSpace(payload["requester"]); requester != "" {
			body = fmt.Sprintf("🎵 %s, requested by %s", song, requester)
		}
		return message{
			title: program + " - Now Playing",
			body:  body,
			tags:  []string{"jukebox", "playing", "request"},
		}, true
	case EventTrackFailed:
		body := fmt.Sprintf("❌ Could not play %s", song)
		if reason := strings.TrimSpace(payload["reason"]); reason != "" {
			body += ": " + reason
		}
		tags := []string{"jukebox", "error"}
		if kind := strings.TrimSpace(payload["kind"]); kind != "" {
			tags = append(tags, kind)
		}
		return message{
			title:    program + " - Playback Failed",
			body:     body,
			tags:     tags,
			priority: "high",
		}, true
	case EventDaemonStarted:
		return message{
			title: program + " - Started",
			body:  "Jukebox daemon started",
			tags:  []string{"jukebox", "daemon", "started"},
		}, true
	case EventDaemonStopped:
		return message{
			title:    program + " - Stopped",
			body:     "Jukebox daemon stopped",
			tags:     []string{"jukebox", "daemon", "stopped"},
			priority: "low",
		}, true
	case EventTest:
		return message{
			title:    program + " - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"jukebox", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
