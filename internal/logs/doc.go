// Package logs reads the daemon's log files for the CLI.
//
// Tail returns the last lines of a file or the lines appended after a byte
// offset, optionally waiting for new output. Stream builds `jukebox logs
// --follow` on top of it and stops when its context is cancelled.
package logs
