// Package textutil provides filename sanitization and tag normalization
// helpers shared by catalog ingestion and the audio cache.
package textutil
