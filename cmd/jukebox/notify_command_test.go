package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotifyTestCommand(t *testing.T) {
	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t)
	t.Setenv("JUKEBOX_NTFY_TOPIC", server.URL)

	out, _, err := runCLI(t, []string{"notify-test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify-test: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	requireContains(t, title, "Test")
}

func TestNotifyTestCommandRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("JUKEBOX_NTFY_TOPIC", "")

	if _, _, err := runCLI(t, []string{"notify-test"}, env.configPath); err == nil {
		t.Fatal("expected error without topic")
	}
}
