package player

import (
	"path/filepath"
	"strings"

	"github.com/olivier-w/webmplay/internal/reader"
)

// Metadata holds song information.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// MetadataFromInfo reads the segment title and Matroska tags, falling back
// to the filename.
func MetadataFromInfo(info reader.Info, path string) Metadata {
	m := Metadata{
		Title:  strings.TrimSpace(info.Tags["TITLE"]),
		Artist: strings.TrimSpace(info.Tags["ARTIST"]),
		Album:  strings.TrimSpace(info.Tags["ALBUM"]),
	}
	if m.Title == "" {
		m.Title = strings.TrimSpace(info.Title)
	}
	if m.Title != "" {
		return m
	}

	// Fallback: use filename without extension
	base := filepath.Base(path)
	m.Title = strings.TrimSuffix(base, filepath.Ext(base))
	return m
}
