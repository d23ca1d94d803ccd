// Package policy decides what the jukebox plays and shows.
//
// It turns the request store into a State: the track now playing, a bounded
// list of recently played tracks, the FIFO list of user requests, and random
// filler requests padding the upcoming list to the configured minimum.
// Backfill creates those fillers from idle catalog songs using a seedable
// Picker so tests can pin the random choice.
package policy
