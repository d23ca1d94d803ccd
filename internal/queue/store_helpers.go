package queue

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"jukebox/internal/textutil"
)

// timeLayout is fixed width so text comparison orders timestamps correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const songColumns = "id, title, artist, album, genre, file_ref, duration_seconds, created_at, updated_at"

const requestColumns = `r.id, r.song_id, r.requester, r.requested_at, r.played_at,
    s.title AS song_title, s.artist AS song_artist, s.album AS song_album, s.genre AS song_genre,
    s.file_ref AS song_file_ref, s.duration_seconds AS song_duration_seconds,
    s.created_at AS song_created_at, s.updated_at AS song_updated_at`

const requestFrom = "FROM song_requests r JOIN songs s ON s.id = r.song_id"

type songRow struct {
	ID              int64  `db:"id"`
	Title           string `db:"title"`
	Artist          string `db:"artist"`
	Album           string `db:"album"`
	Genre           string `db:"genre"`
	FileRef         string `db:"file_ref"`
	DurationSeconds int64  `db:"duration_seconds"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

func (r songRow) toSong() Song {
	return Song{
		ID:        r.ID,
		Title:     r.Title,
		Artist:    r.Artist,
		Album:     r.Album,
		Genre:     r.Genre,
		FileRef:   r.FileRef,
		Duration:  time.Duration(r.DurationSeconds) * time.Second,
		CreatedAt: parseTimeOrZero(r.CreatedAt),
		UpdatedAt: parseTimeOrZero(r.UpdatedAt),
	}
}

type requestRow struct {
	ID                  int64          `db:"id"`
	SongID              int64          `db:"song_id"`
	Requester           string         `db:"requester"`
	RequestedAt         string         `db:"requested_at"`
	PlayedAt            sql.NullString `db:"played_at"`
	SongTitle           string         `db:"song_title"`
	SongArtist          string         `db:"song_artist"`
	SongAlbum           string         `db:"song_album"`
	SongGenre           string         `db:"song_genre"`
	SongFileRef         string         `db:"song_file_ref"`
	SongDurationSeconds int64          `db:"song_duration_seconds"`
	SongCreatedAt       string         `db:"song_created_at"`
	SongUpdatedAt       string         `db:"song_updated_at"`
}

func (r requestRow) toRequest() *Request {
	req := &Request{
		ID:          r.ID,
		SongID:      r.SongID,
		Requester:   r.Requester,
		RequestedAt: parseTimeOrZero(r.RequestedAt),
		Song: songRow{
			ID:              r.SongID,
			Title:           r.SongTitle,
			Artist:          r.SongArtist,
			Album:           r.SongAlbum,
			Genre:           r.SongGenre,
			FileRef:         r.SongFileRef,
			DurationSeconds: r.SongDurationSeconds,
			CreatedAt:       r.SongCreatedAt,
			UpdatedAt:       r.SongUpdatedAt,
		}.toSong(),
	}
	if r.PlayedAt.Valid {
		if played, err := parseTimeString(r.PlayedAt.String); err == nil {
			req.PlayedAt = &played
		}
	}
	return req
}

func toRequests(rows []requestRow) []*Request {
	out := make([]*Request, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRequest())
	}
	return out
}

type failureRow struct {
	ID        int64  `db:"id"`
	RequestID int64  `db:"request_id"`
	FailedAt  string `db:"failed_at"`
	Kind      string `db:"kind"`
	Reason    string `db:"reason"`
}

func (r failureRow) toFailure() PlayFailure {
	return PlayFailure{
		ID:        r.ID,
		RequestID: r.RequestID,
		FailedAt:  parseTimeOrZero(r.FailedAt),
		Kind:      r.Kind,
		Reason:    r.Reason,
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseTimeOrZero(value string) time.Time {
	t, err := parseTimeString(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// searchFieldSeparator joins folded fields in search_key. Keywords never
// contain it, so a match cannot span two fields.
const searchFieldSeparator = "\n"

// searchKey is the case-folded text SearchSongs matches against.
func searchKey(fields ...string) string {
	folded := make([]string, 0, len(fields))
	for _, field := range fields {
		folded = append(folded, textutil.FoldKey(field))
	}
	return strings.Join(folded, searchFieldSeparator)
}

// likePattern builds a case-folded substring pattern for LIKE ... ESCAPE '\'.
func likePattern(keyword string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(textutil.FoldKey(keyword)) + "%"
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT ?"
}

func limitArgs(args []any, limit int) []any {
	if limit <= 0 {
		return args
	}
	return append(args, limit)
}
