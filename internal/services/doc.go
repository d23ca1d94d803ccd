// Package services defines shared utilities consumed by the playback loop,
// the API layer, and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp song IDs, song request IDs, requesters, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent play failure kinds.
//
// Use these helpers when wiring new components so operational behaviour (error
// handling, observability) stays uniform across the daemon.
package services
