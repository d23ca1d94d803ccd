package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"jukebox/internal/config"
	"jukebox/internal/logging"
	"jukebox/internal/metrics"
	"jukebox/internal/policy"
	"jukebox/internal/queue"
	"jukebox/internal/services"
)

// User-facing submission messages.
const (
	MessageRequested = "Song Requested."
	MessageDuplicate = "Song has already been requested."
	MessageNotFound  = "Song does not exist."
	MessageNoName    = "Please enter your name before requesting a song."
)

// Store abstracts the request store operations the service needs.
type Store interface {
	GetSong(ctx context.Context, id int64) (*queue.Song, error)
	ListSongs(ctx context.Context, limit, offset int) ([]queue.Song, error)
	SearchSongs(ctx context.Context, keyword string, limit int) ([]queue.Song, error)
	SubmitRequest(ctx context.Context, songID int64, requester string, at time.Time) (*queue.Request, error)
	PlayedHistory(ctx context.Context, limit int) ([]*queue.Request, error)
	FailuresFor(ctx context.Context, requestIDs []int64) (map[int64]queue.PlayFailure, error)
	Stats(ctx context.Context) (queue.Stats, error)
}

// Policy abstracts the queue policy reads.
type Policy interface {
	Refresh(ctx context.Context) (policy.State, error)
	RandomSongs(ctx context.Context, n int) ([]queue.Song, error)
}

// Option customizes a QueueService.
type Option func(*QueueService)

// WithMetrics records submission outcomes.
func WithMetrics(sink *metrics.Metrics) Option {
	return func(s *QueueService) { s.metrics = sink }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *QueueService) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "queue-service")
		}
	}
}

// WithClock overrides the time source used to stamp requests.
func WithClock(now func() time.Time) Option {
	return func(s *QueueService) {
		if now != nil {
			s.now = now
		}
	}
}

// QueueService exposes jukebox operations returning API DTOs.
type QueueService struct {
	store         Store
	policy        Policy
	programName   string
	searchLimit   int
	randomResults int
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewQueueService constructs a QueueService. It returns nil when store or
// policy is missing.
func NewQueueService(cfg *config.Config, store Store, pol Policy, opts ...Option) *QueueService {
	if store == nil || pol == nil {
		return nil
	}
	defaults := config.Default()
	if cfg == nil {
		cfg = &defaults
	}
	svc := &QueueService{
		store:         store,
		policy:        pol,
		programName:   cfg.Jukebox.ProgramName,
		searchLimit:   cfg.Jukebox.SearchLimit,
		randomResults: cfg.Jukebox.RandomResults,
		logger:        logging.NewNop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ProgramName returns the configured station name.
func (s *QueueService) ProgramName() string {
	if s == nil {
		return ""
	}
	return s.programName
}

// Queue backfills the upcoming list and returns the main page view.
func (s *QueueService) Queue(ctx context.Context) (QueueView, error) {
	if s == nil {
		return QueueView{}, errors.New("queue service unavailable")
	}
	state, err := s.policy.Refresh(ctx)
	if err != nil {
		return QueueView{}, fmt.Errorf("queue view: %w", err)
	}
	played := make([]int64, 0, len(state.RecentlyPlayed)+1)
	if state.NowPlaying != nil {
		played = append(played, state.NowPlaying.ID)
	}
	for _, req := range state.RecentlyPlayed {
		played = append(played, req.ID)
	}
	failures, err := s.store.FailuresFor(ctx, played)
	if err != nil {
		return QueueView{}, fmt.Errorf("queue view: %w", err)
	}
	return FromState(s.programName, state, failures), nil
}

// Search matches keyword against title, artist, album and genre. A blank
// keyword returns a random selection instead.
func (s *QueueService) Search(ctx context.Context, keyword string) (SearchResponse, error) {
	if s == nil {
		return SearchResponse{}, errors.New("queue service unavailable")
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		songs, err := s.policy.RandomSongs(ctx, s.randomResults)
		if err != nil {
			return SearchResponse{}, fmt.Errorf("random songs: %w", err)
		}
		return SearchResponse{Random: true, Songs: FromSongs(songs)}, nil
	}
	songs, err := s.store.SearchSongs(ctx, keyword, s.searchLimit)
	if err != nil {
		return SearchResponse{}, err
	}
	return SearchResponse{Keyword: keyword, Songs: FromSongs(songs)}, nil
}

// Song fetches a single catalog entry.
func (s *QueueService) Song(ctx context.Context, id int64) (*Song, error) {
	if s == nil {
		return nil, errors.New("queue service unavailable")
	}
	song, err := s.store.GetSong(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromSong(*song)
	return &dto, nil
}

// Songs lists the catalog.
func (s *QueueService) Songs(ctx context.Context, limit, offset int) ([]Song, error) {
	if s == nil {
		return nil, errors.New("queue service unavailable")
	}
	songs, err := s.store.ListSongs(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return FromSongs(songs), nil
}

// Submit requests songID on behalf of requester. The returned SubmitResult
// always carries a user message; err is non-nil for every rejection so
// transports can map it with StatusCode.
func (s *QueueService) Submit(ctx context.Context, songID int64, requester string) (SubmitResult, error) {
	if s == nil {
		return SubmitResult{}, errors.New("queue service unavailable")
	}
	requester = strings.TrimSpace(requester)
	ctx = services.WithSongID(ctx, songID)
	ctx = services.WithRequester(ctx, requester)
	logger := logging.WithContext(ctx, s.logger)

	req, err := s.store.SubmitRequest(ctx, songID, requester, s.now())
	switch {
	case err == nil:
		s.metrics.ObserveSubmission(metrics.SubmissionAccepted)
		dto := FromRequest(req, nil)
		logger.Info("song requested",
			logging.String(logging.FieldEventType, "song_requested"),
			logging.SongRequestID(req.ID),
			logging.String("song", req.Song.DisplayName()),
		)
		return SubmitResult{Message: Message{Message: MessageRequested}, Request: &dto}, nil
	case errors.Is(err, queue.ErrDuplicateRequest):
		s.metrics.ObserveSubmission(metrics.SubmissionDuplicate)
		logger.Info("duplicate song request rejected", logging.String(logging.FieldEventType, "song_request_duplicate"))
		return SubmitResult{Message: Message{Message: MessageDuplicate, IsError: true}}, err
	case errors.Is(err, queue.ErrSongNotFound):
		s.metrics.ObserveSubmission(metrics.SubmissionNotFound)
		return SubmitResult{Message: Message{Message: MessageNotFound, IsError: true}}, err
	case errors.Is(err, queue.ErrInvalidRequester):
		s.metrics.ObserveSubmission(metrics.SubmissionInvalid)
		return SubmitResult{Message: Message{Message: MessageNoName, IsError: true}}, err
	default:
		s.metrics.ObserveSubmission(metrics.SubmissionError)
		logging.ErrorWithContext(logger, "song request failed", "song_request_failed", logging.Error(err))
		return SubmitResult{Message: Message{Message: "Song request failed.", IsError: true}}, err
	}
}

// History returns played requests, newest first, with any failure reason.
func (s *QueueService) History(ctx context.Context, limit int) ([]SongRequest, error) {
	if s == nil {
		return nil, errors.New("queue service unavailable")
	}
	played, err := s.store.PlayedHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(played))
	for _, req := range played {
		ids = append(ids, req.ID)
	}
	failures, err := s.store.FailuresFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	return FromRequests(played, failures), nil
}

// Stats returns store counters.
func (s *QueueService) Stats(ctx context.Context) (QueueStats, error) {
	if s == nil {
		return QueueStats{}, errors.New("queue service unavailable")
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return FromStats(stats), nil
}

// StatusCode maps a service error to an HTTP status.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch queue.ErrorKind(err) {
	case "not_found":
		return http.StatusNotFound
	case "conflict":
		return http.StatusConflict
	case "validation":
		return http.StatusBadRequest
	}
	if errors.Is(err, services.ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
