package api

import (
	"time"

	"jukebox/internal/playback"
	"jukebox/internal/policy"
	"jukebox/internal/queue"
)

// FromSong converts a catalog song to its API representation.
func FromSong(song queue.Song) Song {
	return Song{
		ID:              song.ID,
		Title:           song.Title,
		Artist:          song.Artist,
		Album:           song.Album,
		Genre:           song.Genre,
		DisplayName:     song.DisplayName(),
		FileRef:         song.FileRef,
		DurationSeconds: int64(song.Duration / time.Second),
		CreatedAt:       formatTime(song.CreatedAt),
	}
}

// FromSongs converts catalog songs, always returning a non-nil slice.
func FromSongs(songs []queue.Song) []Song {
	out := make([]Song, 0, len(songs))
	for _, song := range songs {
		out = append(out, FromSong(song))
	}
	return out
}

// FromRequest converts a request. failures may be nil.
func FromRequest(req *queue.Request, failures map[int64]queue.PlayFailure) SongRequest {
	if req == nil {
		return SongRequest{}
	}
	dto := SongRequest{
		ID:          req.ID,
		SongID:      req.SongID,
		Song:        FromSong(req.Song),
		Requester:   req.Requester,
		Filler:      req.IsFiller(),
		RequestedAt: formatTime(req.RequestedAt),
	}
	if req.PlayedAt != nil {
		dto.PlayedAt = formatTime(*req.PlayedAt)
	}
	if failure, ok := failures[req.ID]; ok {
		dto.Failure = &PlayFailure{
			FailedAt: formatTime(failure.FailedAt),
			Kind:     failure.Kind,
			Reason:   failure.Reason,
		}
	}
	return dto
}

// FromRequests converts requests, always returning a non-nil slice.
func FromRequests(reqs []*queue.Request, failures map[int64]queue.PlayFailure) []SongRequest {
	out := make([]SongRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, FromRequest(req, failures))
	}
	return out
}

func optionalRequest(req *queue.Request, failures map[int64]queue.PlayFailure) *SongRequest {
	if req == nil {
		return nil
	}
	dto := FromRequest(req, failures)
	return &dto
}

// FromState converts a policy State into the main page payload.
func FromState(programName string, state policy.State, failures map[int64]queue.PlayFailure) QueueView {
	return QueueView{
		ProgramName:       programName,
		NowPlaying:        optionalRequest(state.NowPlaying, failures),
		RecentlyPlayed:    FromRequests(state.RecentlyPlayed, failures),
		UpcomingRequested: FromRequests(state.UpcomingRequested, nil),
		UpcomingRandom:    FromRequests(state.UpcomingRandom, nil),
	}
}

// FromStats converts store counters.
func FromStats(stats queue.Stats) QueueStats {
	return QueueStats{
		Songs:             stats.Songs,
		UpcomingRequested: stats.UpcomingRequested,
		UpcomingFillers:   stats.UpcomingFillers,
		Played:            stats.Played,
		Failures:          stats.Failures,
	}
}

// FromStatusSummary converts the play loop summary.
func FromStatusSummary(summary playback.StatusSummary) PlaybackStatus {
	return PlaybackStatus{
		Running:    summary.Running,
		NowPlaying: optionalRequest(summary.NowPlaying, nil),
		LastPlayed: optionalRequest(summary.LastPlayed, nil),
		LastError:  summary.LastError,
		Played:     summary.Played,
		Failed:     summary.Failed,
		Stats:      FromStats(summary.Stats),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses an API timestamp, returning the zero time when value is
// empty or malformed.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
