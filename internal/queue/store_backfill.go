package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// backfillLockKey is the postgres advisory lock serializing backfills.
const backfillLockKey int64 = 0x6a75_6b65

// FillerPicker chooses up to n song ids from idle.
type FillerPicker func(idle []int64, n int) []int64

// BackfillResult describes one Backfill pass.
type BackfillResult struct {
	Requested int
	Fillers   int
	Idle      int
	Created   []int64
}

type queryExecer interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Backfill inserts filler requests until active fillers plus active user
// requests reach minimum. Counting and inserting happen under one database
// write lock, so concurrent callers in any process never overfill.
func (s *Store) Backfill(ctx context.Context, minimum int, pick FillerPicker, at time.Time) (BackfillResult, error) {
	ctx = ensureContext(ctx)
	if pick == nil {
		pick = func(idle []int64, n int) []int64 { return idle[:min(n, len(idle))] }
	}
	var result BackfillResult
	err := s.withWriteLock(ctx, func(q queryExecer) error {
		result = BackfillResult{}
		if err := sqlx.GetContext(ctx, q, &result.Requested, countActiveRequestedQuery); err != nil {
			return fmt.Errorf("count requests: %w", err)
		}
		if err := sqlx.GetContext(ctx, q, &result.Fillers, countActiveFillersQuery); err != nil {
			return fmt.Errorf("count fillers: %w", err)
		}
		need := max(0, minimum-result.Requested) - result.Fillers
		if need <= 0 {
			return nil
		}

		var idle []int64
		if err := sqlx.SelectContext(ctx, q, &idle, idleSongIDsQuery); err != nil {
			return fmt.Errorf("list idle song ids: %w", err)
		}
		result.Idle = len(idle)
		insert := s.db.Rebind(insertActiveRequest)
		stamp := formatTime(at)
		for _, songID := range pick(idle, need) {
			var id int64
			err := q.QueryRowxContext(ctx, insert, songID, "", stamp).Scan(&id)
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert filler request: %w", err)
			}
			result.Created = append(result.Created, id)
		}
		return nil
	})
	if err != nil {
		return BackfillResult{}, err
	}
	return result, nil
}

// withWriteLock runs fn inside a transaction that holds the database write
// lock from its first statement: BEGIN IMMEDIATE on SQLite, a transaction
// scoped advisory lock on PostgreSQL.
func (s *Store) withWriteLock(ctx context.Context, fn func(queryExecer) error) error {
	if s.dialect == DialectPostgres {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", backfillLockKey); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("acquire backfill lock: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	}

	conn, err := s.db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := retryOnBusy(ctx, func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		return err
	}); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	rollback := func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
	}
	if err := fn(conn); err != nil {
		rollback()
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		rollback()
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
