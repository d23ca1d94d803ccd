package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jukebox/internal/api"
	"jukebox/internal/apiclient"
	"jukebox/internal/queue"
)

func TestNewEmptyBind(t *testing.T) {
	client, err := apiclient.New("", "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if client != nil {
		t.Fatal("expected nil client for empty bind")
	}
	if _, err := client.Queue(context.Background()); !apiclient.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error from nil client, got %v", err)
	}
}

func TestClientSendsTokenAndDecodes(t *testing.T) {
	var gotAuth, gotKeyword string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKeyword = r.URL.Query().Get("keyword")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.SearchResponse{
			Keyword: gotKeyword,
			Songs:   []api.Song{{ID: 3, Title: "So What", Artist: "Miles Davis"}},
		})
	}))
	defer srv.Close()

	client, err := apiclient.New(srv.URL, "s3cret")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	resp, err := client.Search(context.Background(), "miles")
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if gotAuth != "Bearer s3cret" || gotKeyword != "miles" {
		t.Fatalf("unexpected request auth=%q keyword=%q", gotAuth, gotKeyword)
	}
	if len(resp.Songs) != 1 || resp.Songs[0].Artist != "Miles Davis" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestClientSubmitConflict(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/songs/7/request" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.Message{Message: "Song has already been requested.", IsError: true})
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL, "")
	result, err := client.Submit(context.Background(), 7, "alice")
	if gotBody["requester"] != "alice" {
		t.Fatalf("expected requester in body, got %#v", gotBody)
	}
	var statusErr *apiclient.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusConflict {
		t.Fatalf("expected conflict status error, got %v", err)
	}
	if queue.ErrorKind(err) != "conflict" {
		t.Fatalf("expected conflict kind, got %q", queue.ErrorKind(err))
	}
	if !result.IsError || result.Message.Message != "Song has already been requested." {
		t.Fatalf("expected duplicate message, got %#v", result)
	}
}

func TestClientErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "song not found"})
	}))
	defer srv.Close()

	client, _ := apiclient.New(srv.URL, "")
	_, err := client.Song(context.Background(), 99)
	if err == nil || err.Error() != "song not found" || queue.ErrorKind(err) != "not_found" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.Listener.Addr().String()
	srv.Close()

	client, err := apiclient.New(addr, "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if err := client.Health(context.Background()); !apiclient.IsAPIUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}
