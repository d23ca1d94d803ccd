package queueaccess

import (
	"context"

	"jukebox/internal/api"
	"jukebox/internal/apiclient"
	"jukebox/internal/config"
	"jukebox/internal/policy"
	"jukebox/internal/queue"
)

// Access provides jukebox operations whether a daemon API or the store
// backs them.
type Access interface {
	Queue(ctx context.Context) (api.QueueView, error)
	Search(ctx context.Context, keyword string) (api.SearchResponse, error)
	Song(ctx context.Context, id int64) (*api.Song, error)
	Songs(ctx context.Context, limit, offset int) ([]api.Song, error)
	Submit(ctx context.Context, songID int64, requester string) (api.SubmitResult, error)
	History(ctx context.Context, limit int) ([]api.SongRequest, error)
	Stats(ctx context.Context) (api.QueueStats, error)
	// Remote reports whether calls go through a running daemon.
	Remote() bool
}

// NewAPIAccess returns an Access backed by the daemon HTTP API.
func NewAPIAccess(client *apiclient.Client) Access {
	return &apiAccess{client: client}
}

// NewStoreAccess returns an Access backed by direct store access, applying
// the same queue policy the daemon uses.
func NewStoreAccess(cfg *config.Config, store *queue.Store) Access {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	pol := policy.New(store, policy.Limits{
		PreviousSongs: cfg.Jukebox.PreviousSongsDisplay,
		UpcomingSongs: cfg.Jukebox.UpcomingSongsDisplay,
	}, policy.NewPicker(cfg.Daemon.RandomSeed))
	return &storeAccess{service: api.NewQueueService(cfg, store, pol)}
}

type apiAccess struct {
	client *apiclient.Client
}

func (a *apiAccess) Queue(ctx context.Context) (api.QueueView, error) {
	return a.client.Queue(ctx)
}

func (a *apiAccess) Search(ctx context.Context, keyword string) (api.SearchResponse, error) {
	return a.client.Search(ctx, keyword)
}

func (a *apiAccess) Song(ctx context.Context, id int64) (*api.Song, error) {
	return a.client.Song(ctx, id)
}

func (a *apiAccess) Songs(ctx context.Context, limit, offset int) ([]api.Song, error) {
	return a.client.Songs(ctx, limit, offset)
}

func (a *apiAccess) Submit(ctx context.Context, songID int64, requester string) (api.SubmitResult, error) {
	return a.client.Submit(ctx, songID, requester)
}

func (a *apiAccess) History(ctx context.Context, limit int) ([]api.SongRequest, error) {
	return a.client.History(ctx, limit)
}

func (a *apiAccess) Stats(ctx context.Context) (api.QueueStats, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return api.QueueStats{}, err
	}
	return status.Playback.Stats, nil
}

func (a *apiAccess) Remote() bool { return true }

type storeAccess struct {
	service *api.QueueService
}

func (a *storeAccess) Queue(ctx context.Context) (api.QueueView, error) {
	return a.service.Queue(ctx)
}

func (a *storeAccess) Search(ctx context.Context, keyword string) (api.SearchResponse, error) {
	return a.service.Search(ctx, keyword)
}

func (a *storeAccess) Song(ctx context.Context, id int64) (*api.Song, error) {
	return a.service.Song(ctx, id)
}

func (a *storeAccess) Songs(ctx context.Context, limit, offset int) ([]api.Song, error) {
	return a.service.Songs(ctx, limit, offset)
}

func (a *storeAccess) Submit(ctx context.Context, songID int64, requester string) (api.SubmitResult, error) {
	return a.service.Submit(ctx, songID, requester)
}

func (a *storeAccess) History(ctx context.Context, limit int) ([]api.SongRequest, error) {
	return a.service.History(ctx, limit)
}

func (a *storeAccess) Stats(ctx context.Context) (api.QueueStats, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) Remote() bool { return false }
