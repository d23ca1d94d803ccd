// Package storage resolves song file references to local audio files.
//
// A Provider lists and opens objects in a backend: LocalProvider reads the
// media directory, S3Provider reads a bucket through aws-sdk-go. Library
// pairs a provider with a download Cache for remote backends so the player
// always receives a path on disk.
package storage
