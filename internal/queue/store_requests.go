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

const insertActiveRequest = `INSERT INTO song_requests (song_id, requester, requested_at)
    VALUES (?, ?, ?)
    ON CONFLICT DO NOTHING
    RETURNING id`

const (
	countActiveFillersQuery   = "SELECT COUNT(1) FROM song_requests WHERE played_at IS NULL AND requester = ''"
	countActiveRequestedQuery = "SELECT COUNT(1) FROM song_requests WHERE played_at IS NULL AND requester <> ''"
)

// SubmitRequest queues songID on behalf of requester. The duplicate check and
// the insert are a single statement guarded by the active-request index, so
// concurrent submissions for the same song cannot both succeed.
func (s *Store) SubmitRequest(ctx context.Context, songID int64, requester string, at time.Time) (*Request, error) {
	requester = strings.TrimSpace(requester)
	if requester == "" {
		return nil, ErrInvalidRequester
	}
	if _, err := s.GetSong(ctx, songID); err != nil {
		return nil, err
	}
	id, err := s.insertReturningID(ctx, insertActiveRequest, songID, requester, formatTime(at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDuplicateRequest
	}
	if err != nil {
		return nil, fmt.Errorf("insert song request: %w", err)
	}
	return s.GetRequest(ctx, id)
}

// AddFiller queues songID as a system filler. The boolean result is false
// when the song already had an active request and nothing was inserted.
func (s *Store) AddFiller(ctx context.Context, songID int64, at time.Time) (*Request, bool, error) {
	id, err := s.insertReturningID(ctx, insertActiveRequest, songID, "", formatTime(at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert filler request: %w", err)
	}
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return req, true, nil
}

// GetRequest fetches a request and its song.
func (s *Store) GetRequest(ctx context.Context, id int64) (*Request, error) {
	var row requestRow
	err := s.getRow(ctx, &row, "SELECT "+requestColumns+" "+requestFrom+" WHERE r.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get song request: %w", err)
	}
	return row.toRequest(), nil
}

// ActiveRequestFor returns the unplayed request for songID, or nil.
func (s *Store) ActiveRequestFor(ctx context.Context, songID int64) (*Request, error) {
	var row requestRow
	err := s.getRow(ctx, &row, "SELECT "+requestColumns+" "+requestFrom+
		" WHERE r.song_id = ? AND r.played_at IS NULL", songID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active request: %w", err)
	}
	return row.toRequest(), nil
}

// UpcomingRequested returns every unplayed user request, oldest first.
func (s *Store) UpcomingRequested(ctx context.Context) ([]*Request, error) {
	var rows []requestRow
	err := s.selectRows(ctx, &rows, "SELECT "+requestColumns+" "+requestFrom+
		" WHERE r.played_at IS NULL AND r.requester <> '' ORDER BY r.requested_at, r.id")
	if err != nil {
		return nil, fmt.Errorf("list upcoming requests: %w", err)
	}
	return toRequests(rows), nil
}

// UpcomingFillers returns unplayed filler requests, oldest first. A
// non-positive limit returns all of them.
func (s *Store) UpcomingFillers(ctx context.Context, limit int) ([]*Request, error) {
	var rows []requestRow
	query := "SELECT " + requestColumns + " " + requestFrom +
		" WHERE r.played_at IS NULL AND r.requester = '' ORDER BY r.requested_at, r.id" + limitClause(limit)
	if err := s.selectRows(ctx, &rows, query, limitArgs(nil, limit)...); err != nil {
		return nil, fmt.Errorf("list upcoming fillers: %w", err)
	}
	return toRequests(rows), nil
}

// CountActiveFillers returns the number of unplayed filler requests.
func (s *Store) CountActiveFillers(ctx context.Context) (int, error) {
	var count int
	err := s.getRow(ctx, &count, countActiveFillersQuery)
	if err != nil {
		return 0, fmt.Errorf("count fillers: %w", err)
	}
	return count, nil
}

// CountActiveRequested returns the number of unplayed user requests.
func (s *Store) CountActiveRequested(ctx context.Context) (int, error) {
	var count int
	err := s.getRow(ctx, &count, countActiveRequestedQuery)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

// PlayedHistory returns played requests, most recently played first. A
// non-positive limit returns the full history.
func (s *Store) PlayedHistory(ctx context.Context, limit int) ([]*Request, error) {
	var rows []requestRow
	query := "SELECT " + requestColumns + " " + requestFrom +
		" WHERE r.played_at IS NOT NULL ORDER BY r.played_at DESC, r.id DESC" + limitClause(limit)
	if err := s.selectRows(ctx, &rows, query, limitArgs(nil, limit)...); err != nil {
		return nil, fmt.Errorf("list played history: %w", err)
	}
	return toRequests(rows), nil
}

// NextRequest returns the request that should play next: the oldest user
// request, else the oldest filler. It returns nil when nothing is queued.
func (s *Store) NextRequest(ctx context.Context) (*Request, error) {
	var row requestRow
	err := s.getRow(ctx, &row, "SELECT "+requestColumns+" "+requestFrom+`
        WHERE r.played_at IS NULL
        ORDER BY CASE WHEN r.requester = '' THEN 1 ELSE 0 END, r.requested_at, r.id
        LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select next request: %w", err)
	}
	return row.toRequest(), nil
}

// MarkPlayed stamps played_at on an active request. It reports false when
// the request was already consumed.
func (s *Store) MarkPlayed(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE song_requests SET played_at = ? WHERE id = ? AND played_at IS NULL",
		formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("mark request played: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark request played: %w", err)
	}
	return affected == 1, nil
}

// RecordFailure appends a playback failure for a consumed request.
func (s *Store) RecordFailure(ctx context.Context, requestID int64, kind, reason string, at time.Time) (*PlayFailure, error) {
	id, err := s.insertReturningID(ctx, `INSERT INTO play_failures (request_id, failed_at, kind, reason)
        VALUES (?, ?, ?, ?) RETURNING id`,
		requestID, formatTime(at), strings.TrimSpace(kind), strings.TrimSpace(reason))
	if err != nil {
		return nil, fmt.Errorf("record play failure: %w", err)
	}
	var row failureRow
	if err := s.getRow(ctx, &row,
		"SELECT id, request_id, failed_at, kind, reason FROM play_failures WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("read play failure: %w", err)
	}
	failure := row.toFailure()
	return &failure, nil
}

// FailuresFor returns the latest failure recorded for each of the given
// requests, keyed by request id.
func (s *Store) FailuresFor(ctx context.Context, requestIDs []int64) (map[int64]PlayFailure, error) {
	out := make(map[int64]PlayFailure, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT id, request_id, failed_at, kind, reason
        FROM play_failures WHERE request_id IN (?) ORDER BY failed_at, id`, requestIDs)
	if err != nil {
		return nil, fmt.Errorf("build failure lookup: %w", err)
	}
	var rows []failureRow
	if err := s.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list play failures: %w", err)
	}
	for _, row := range rows {
		out[row.RequestID] = row.toFailure()
	}
	return out, nil
}
