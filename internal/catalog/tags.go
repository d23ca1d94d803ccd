package catalog

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"jukebox/internal/textutil"
)

// Track is the metadata extracted from one audio file.
type Track struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Format string
	Tagged bool

	// Duration is zero unless a DurationReader filled it in.
	Duration time.Duration
}

// ReadTrack reads tags from the file at filePath. name is the display file
// name used when the file carries no title tag.
func ReadTrack(filePath, name string) (Track, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return Track{}, err
	}
	defer f.Close()

	track := Track{}
	if meta, err := tag.ReadFrom(f); err == nil {
		track = Track{
			Title:  textutil.NormalizeTag(meta.Title()),
			Artist: textutil.NormalizeTag(firstNonEmpty(meta.Artist(), meta.AlbumArtist())),
			Album:  textutil.NormalizeTag(meta.Album()),
			Genre:  textutil.NormalizeGenre(meta.Genre()),
			Format: string(meta.FileType()),
			Tagged: true,
		}
	}

	if track.Title == "" {
		artist, title := ParseFileName(name)
		track.Title = title
		if track.Artist == "" {
			track.Artist = artist
		}
	}
	return track, nil
}

// ParseFileName splits "Artist - Title.ext" into its parts. Names without
// the separator yield an empty artist. Underscores are read as spaces.
func ParseFileName(name string) (artist, title string) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.ReplaceAll(base, "_", " ")
	if left, right, ok := strings.Cut(base, " - "); ok {
		return textutil.NormalizeTag(left), textutil.NormalizeTag(right)
	}
	return "", textutil.NormalizeTag(base)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
