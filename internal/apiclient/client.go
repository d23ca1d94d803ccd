// Package apiclient is a small HTTP client for the daemon's JSON API, used by
// the CLI when a daemon is running.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jukebox/internal/api"
)

// RequesterHeader mirrors the daemon header carrying the requester name.
const RequesterHeader = "X-Jukebox-Requester"

// ErrAPIUnavailable reports that no daemon API is configured or reachable.
var ErrAPIUnavailable = errors.New("jukebox API unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return e.Message
}

// ErrorKind classifies the response so callers can treat remote and local
// errors alike.
func (e *StatusError) ErrorKind() string {
	switch e.Code {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadRequest:
		return "validation"
	}
	return ""
}

// Client talks to the daemon API.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

// New builds a client for bind, a host:port or URL. It returns nil when bind
// is empty. Wildcard listen addresses are dialled on loopback.
func New(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		if host, port, err := net.SplitHostPort(bind); err == nil {
			switch host {
			case "", "0.0.0.0", "::":
				bind = net.JoinHostPort("127.0.0.1", port)
			}
		}
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		http:  &http.Client{Timeout: 10 * time.Second},
		token: strings.TrimSpace(token),
	}, nil
}

// Health pings the unauthenticated health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, nil, &out)
}

// Status returns daemon status.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, nil, &out)
	return out, err
}

// Queue returns the queue view.
func (c *Client) Queue(ctx context.Context) (api.QueueView, error) {
	var out api.QueueView
	err := c.do(ctx, http.MethodGet, "/api/queue", nil, nil, nil, &out)
	return out, err
}

// Search runs a catalog search.
func (c *Client) Search(ctx context.Context, keyword string) (api.SearchResponse, error) {
	var out api.SearchResponse
	query := url.Values{}
	if strings.TrimSpace(keyword) != "" {
		query.Set("keyword", keyword)
	}
	err := c.do(ctx, http.MethodGet, "/api/songs/search", query, nil, nil, &out)
	return out, err
}

// Song fetches one catalog song.
func (c *Client) Song(ctx context.Context, id int64) (*api.Song, error) {
	var out api.SongResponse
	if err := c.do(ctx, http.MethodGet, "/api/songs/"+strconv.FormatInt(id, 10), nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Song, nil
}

// Songs lists a page of the catalog.
func (c *Client) Songs(ctx context.Context, limit, offset int) ([]api.Song, error) {
	var out api.SongListResponse
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	err := c.do(ctx, http.MethodGet, "/api/songs", query, nil, nil, &out)
	return out.Songs, err
}

// Submit requests songID for requester. Rejections return the daemon's
// message alongside a *StatusError.
func (c *Client) Submit(ctx context.Context, songID int64, requester string) (api.SubmitResult, error) {
	body, err := json.Marshal(map[string]string{"requester": requester})
	if err != nil {
		return api.SubmitResult{}, err
	}
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	var out api.SubmitResult
	err = c.do(ctx, http.MethodPost, "/api/songs/"+strconv.FormatInt(songID, 10)+"/request", nil, headers, body, &out)
	return out, err
}

// History returns played requests, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]api.SongRequest, error) {
	var out api.HistoryResponse
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	err := c.do(ctx, http.MethodGet, "/api/history", query, nil, nil, &out)
	return out.Items, err
}

// LogTail reads daemon log lines. A negative offset returns the last limit
// lines; wait long-polls when follow is set.
func (c *Client) LogTail(ctx context.Context, offset int64, limit int, follow bool, wait time.Duration) (api.LogTailResponse, error) {
	var out api.LogTailResponse
	query := url.Values{}
	query.Set("offset", strconv.FormatInt(offset, 10))
	query.Set("limit", strconv.Itoa(limit))
	if follow {
		query.Set("follow", "1")
		query.Set("wait_ms", strconv.FormatInt(wait.Milliseconds(), 10))
	}
	err := c.do(ctx, http.MethodGet, "/api/logs", query, nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers http.Header, body []byte, out any) error {
	if c == nil {
		return ErrAPIUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: query.Encode()})
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, payload, out)
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// decodeError extracts a message from either response shape. Submission
// rejections still decode into out so callers see the user message.
func decodeError(code int, payload []byte, out any) error {
	statusErr := &StatusError{Code: code}
	var msg api.Message
	if err := json.Unmarshal(payload, &msg); err == nil && msg.Message != "" {
		statusErr.Message = msg.Message
		if out != nil {
			_ = json.Unmarshal(payload, out)
		}
		return statusErr
	}
	var errResp api.ErrorResponse
	if err := json.Unmarshal(payload, &errResp); err == nil {
		statusErr.Message = errResp.Error
	}
	return statusErr
}

// IsAPIUnavailable reports whether err means the daemon could not be reached.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
