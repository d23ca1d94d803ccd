// Package daemon coordinates the long-running jukebox process.
//
// It wires configuration, the request store, the playback manager and the
// HTTP API into a single lifecycle with flock-based locking to prevent
// multiple instances. The API is a gin router exposing the queue, search,
// song requests and history, guarded by an optional bearer token and a
// per-requester submission rate limit.
//
// Keep orchestration logic here: the play loop lives in playback and the
// request semantics in api and queue, while the daemon focuses on startup,
// shutdown and transport.
package daemon
