package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"jukebox/internal/config"
)

// Database dialects understood by the Store.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Store manages catalog and request persistence.
type Store struct {
	db      *sqlx.DB
	dialect string
	path    string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	query = s.db.Rebind(query)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// insertReturningID runs an INSERT ... RETURNING id statement. It reports
// sql.ErrNoRows when a conflict clause suppressed the insert.
func (s *Store) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	ctx = ensureContext(ctx)
	query = s.db.Rebind(query)
	var id int64
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowxContext(ctx, query, args...).Scan(&id)
	})
	return id, err
}

func (s *Store) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return s.db.SelectContext(ctx, dest, s.db.Rebind(query), args...)
}

func (s *Store) getRow(ctx context.Context, dest any, query string, args ...any) error {
	ctx = ensureContext(ctx)
	return s.db.GetContext(ctx, dest, s.db.Rebind(query), args...)
}

// Open initializes or connects to the configured database.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	driver, dsn := cfg.DatabaseDriver()

	var (
		dialect = DialectSQLite
		path    = dsn
	)
	switch driver {
	case "postgres":
		dialect = DialectPostgres
		path = redactDSN(dsn)
	default:
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}

	store := &Store{db: db, dialect: dialect, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma=") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqlitePragmas
}

func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

// Dialect returns the active database dialect.
func (s *Store) Dialect() string {
	return s.dialect
}

// Path returns the database location with credentials redacted.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("database connection unavailable")
	}
	return s.db.PingContext(ensureContext(ctx))
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
