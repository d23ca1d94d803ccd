// Package queue persists the song catalog, song requests, and play failures.
//
// The Store runs on sqlx over either the embedded SQLite driver (default) or
// PostgreSQL when the configured database URL has a postgres scheme. Queries
// are written once with '?' placeholders and rebound per dialect.
//
// A request is active while played_at is NULL. A partial unique index allows
// at most one active request per song, and inserts use ON CONFLICT DO NOTHING
// so the duplicate check and the insert are a single atomic statement. The
// daemon sets played_at exactly once when playback starts; failures are kept
// in a separate append-only table so request rows never change again.
//
// Timestamps are stored as fixed-width UTC text so lexical ordering matches
// chronological ordering on both backends. Schema changes bump schemaVersion
// in schema.go; users clear the database to adopt the new schema.
package queue
