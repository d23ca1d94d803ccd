package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// UpsertSong inserts a song or refreshes the metadata of the song sharing
// the same file reference. The stored row is returned.
func (s *Store) UpsertSong(ctx context.Context, song Song) (*Song, error) {
	ref := strings.TrimSpace(song.FileRef)
	if ref == "" {
		return nil, errors.New("file reference is required")
	}
	title := strings.TrimSpace(song.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	artist := strings.TrimSpace(song.Artist)
	album := strings.TrimSpace(song.Album)
	genre := strings.TrimSpace(song.Genre)
	now := formatTime(time.Now())
	id, err := s.insertReturningID(ctx, `INSERT INTO songs
        (title, artist, album, genre, file_ref, search_key, duration_seconds, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(file_ref) DO UPDATE SET
            title = excluded.title,
            artist = excluded.artist,
            album = excluded.album,
            genre = excluded.genre,
            search_key = excluded.search_key,
            duration_seconds = excluded.duration_seconds,
            updated_at = excluded.updated_at
        RETURNING id`,
		title,
		artist,
		album,
		genre,
		ref,
		searchKey(title, artist, album, genre),
		int64(song.Duration/time.Second),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert song: %w", err)
	}
	return s.GetSong(ctx, id)
}

// GetSong fetches a song by id.
func (s *Store) GetSong(ctx context.Context, id int64) (*Song, error) {
	var row songRow
	err := s.getRow(ctx, &row, "SELECT "+songColumns+" FROM songs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get song: %w", err)
	}
	song := row.toSong()
	return &song, nil
}

// GetSongs fetches the songs with the given ids, keyed by id. Missing ids
// are absent from the result.
func (s *Store) GetSongs(ctx context.Context, ids []int64) (map[int64]Song, error) {
	out := make(map[int64]Song, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT "+songColumns+" FROM songs WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("build song lookup: %w", err)
	}
	var rows []songRow
	if err := s.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get songs: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.toSong()
	}
	return out, nil
}

// ListSongs returns catalog songs ordered by artist, album and title.
func (s *Store) ListSongs(ctx context.Context, limit, offset int) ([]Song, error) {
	query := "SELECT " + songColumns + " FROM songs ORDER BY lower(artist), lower(album), lower(title), id"
	var args []any
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, max(offset, 0))
	}
	var rows []songRow
	if err := s.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return toSongs(rows), nil
}

// SearchSongs returns songs whose title, artist, album or genre contains
// keyword, ignoring case. A blank keyword matches nothing.
func (s *Store) SearchSongs(ctx context.Context, keyword string, limit int) ([]Song, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []Song{}, nil
	}
	pattern := likePattern(keyword)
	query := "SELECT " + songColumns + ` FROM songs
        WHERE search_key LIKE ? ESCAPE '\'
        ORDER BY lower(artist), lower(album), lower(title), id` + limitClause(limit)
	args := limitArgs([]any{pattern}, limit)
	var rows []songRow
	if err := s.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search songs: %w", err)
	}
	return toSongs(rows), nil
}

// SongIDs returns every catalog song id in ascending order.
func (s *Store) SongIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.selectRows(ctx, &ids, "SELECT id FROM songs ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list song ids: %w", err)
	}
	return ids, nil
}

const idleSongIDsQuery = `SELECT s.id FROM songs s
        WHERE NOT EXISTS (
            SELECT 1 FROM song_requests r WHERE r.song_id = s.id AND r.played_at IS NULL
        )
        ORDER BY s.id`

// IdleSongIDs returns the ids of songs with no unplayed request, in ascending order.
func (s *Store) IdleSongIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.selectRows(ctx, &ids, idleSongIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("list idle song ids: %w", err)
	}
	return ids, nil
}

// CountSongs returns the catalog size.
func (s *Store) CountSongs(ctx context.Context) (int, error) {
	var count int
	if err := s.getRow(ctx, &count, "SELECT COUNT(1) FROM songs"); err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	return count, nil
}

func toSongs(rows []songRow) []Song {
	out := make([]Song, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSong())
	}
	return out
}
