// Package playback runs the jukebox play loop.
//
// The Manager repeatedly backfills the queue, takes the next request, marks
// it played, resolves its audio through storage and hands the file to the
// player. Failures are recorded against the consumed request and never
// retried; the loop only pauses when the store itself is unavailable.
package playback
