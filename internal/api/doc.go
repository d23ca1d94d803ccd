// Package api defines wire-format types and the service facade shared by the
// HTTP API and the CLI. It translates queue models into transport-friendly
// DTOs so consumers can render the jukebox without coupling to internal types.
//
// # Key Types
//
// QueueView: the now playing track, recently played history and the
// upcoming requested and random lists.
//
// Song / SongRequest: catalog entries and queued or played requests.
//
// Message: the {message, is_error} payload returned by request submission.
//
// DaemonStatus: daemon running state, playback summary and store counters.
//
// # Service
//
// QueueService reads through the queue policy and request store, submits
// requests, and maps domain errors to transport status codes via StatusCode.
//
// # Design Notes
//
// DTOs use camelCase JSON tags, except Message which keeps the is_error field
// the browser client expects. Timestamps use RFC3339 with milliseconds.
package api
