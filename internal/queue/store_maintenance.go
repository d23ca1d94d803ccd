package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DatabaseHealth describes the state of the backing database.
type DatabaseHealth struct {
	Dialect          string
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}

var expectedTables = []string{"songs", "song_requests", "play_failures"}

// Stats returns catalog and queue counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var row struct {
		Songs             int `db:"songs"`
		UpcomingRequested int `db:"upcoming_requested"`
		UpcomingFillers   int `db:"upcoming_fillers"`
		Played            int `db:"played"`
		Failures          int `db:"failures"`
	}
	err := s.getRow(ctx, &row, `SELECT
        (SELECT COUNT(1) FROM songs) AS songs,
        (SELECT COUNT(1) FROM song_requests WHERE played_at IS NULL AND requester <> '') AS upcoming_requested,
        (SELECT COUNT(1) FROM song_requests WHERE played_at IS NULL AND requester = '') AS upcoming_fillers,
        (SELECT COUNT(1) FROM song_requests WHERE played_at IS NOT NULL) AS played,
        (SELECT COUNT(1) FROM play_failures) AS failures`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{
		Songs:             row.Songs,
		UpcomingRequested: row.UpcomingRequested,
		UpcomingFillers:   row.UpcomingFillers,
		Played:            row.Played,
		Failures:          row.Failures,
	}, nil
}

// CheckHealth returns diagnostic information about the database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{Dialect: s.dialect, DBPath: s.path}
	if s.db == nil {
		return health, errors.New("database connection unavailable")
	}

	if s.dialect == DialectSQLite {
		path := sqliteFilePath(s.path)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return health, nil
			}
			return health, fmt.Errorf("stat database: %w", err)
		}
		if info.IsDir() {
			return health, fmt.Errorf("database path %q is a directory", path)
		}
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping database: %w", err)
	}
	health.DatabaseReadable = true

	if err := s.db.GetContext(connCtx, &health.SchemaVersion, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	for _, table := range expectedTables {
		var count int
		if err := s.db.GetContext(connCtx, &count, s.db.Rebind(s.tableProbeQuery()), table); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("check table %s: %w", table, err)
		}
		if count == 0 {
			health.MissingTables = append(health.MissingTables, table)
		}
	}

	if s.dialect != DialectSQLite {
		health.IntegrityCheck = true
		return health, nil
	}
	var integrity string
	if err := s.db.GetContext(connCtx, &integrity, "PRAGMA integrity_check"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}

func (s *Store) tableProbeQuery() string {
	if s.dialect == DialectPostgres {
		return "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	}
	return "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?"
}

func sqliteFilePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.Index(path, "?"); idx >= 0 {
		path = path[:idx]
	}
	return path
}
