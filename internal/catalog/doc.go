// Package catalog ingests audio files into the song catalog.
//
// Tags are read with dhowden/tag (ID3, MP4, FLAC and Ogg Vorbis). Files
// without usable tags fall back to the "Artist - Title" filename
// convention. Re-importing a file refreshes its row because songs are keyed
// by file reference.
package catalog
