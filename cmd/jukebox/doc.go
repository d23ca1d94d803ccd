// Package main hosts the jukebox CLI entrypoint and command graph.
//
// Commands talk to a running daemon through its HTTP API when one answers
// and otherwise open the request store directly, so queue, search, request
// and history work the same either way. Catalog ingestion always writes to
// the store. `jukebox run` hosts the daemon in the foreground; start and stop
// manage a detached one through its pid file.
package main
