package queue

import (
	"strings"
	"time"
)

// Song is an entry in the music catalog.
type Song struct {
	ID        int64
	Title     string
	Artist    string
	Album     string
	Genre     string
	FileRef   string
	Duration  time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName renders the song as "Artist - Title", falling back to the
// title alone when the artist is unknown.
func (s Song) DisplayName() string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = s.FileRef
	}
	if artist := strings.TrimSpace(s.Artist); artist != "" {
		return artist + " - " + title
	}
	return title
}

// Request is a queued or historical play of a song. A blank Requester marks
// a filler the system inserted to keep the upcoming list populated.
type Request struct {
	ID          int64
	SongID      int64
	Song        Song
	Requester   string
	RequestedAt time.Time
	PlayedAt    *time.Time
}

// IsFiller reports whether the request was created by backfill rather than a user.
func (r *Request) IsFiller() bool {
	return r != nil && r.Requester == ""
}

// IsActive reports whether the request is still waiting to be played.
func (r *Request) IsActive() bool {
	return r != nil && r.PlayedAt == nil
}

// PlayFailure records a consumed request whose playback did not complete.
type PlayFailure struct {
	ID        int64
	RequestID int64
	FailedAt  time.Time
	Kind      string
	Reason    string
}

// Stats summarizes catalog and queue sizes.
type Stats struct {
	Songs             int
	UpcomingRequested int
	UpcomingFillers   int
	Played            int
	Failures          int
}
