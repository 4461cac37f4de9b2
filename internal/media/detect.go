package media

import (
	"bytes"
	"io"
	"os"
	"strings"
)

var containerExts = map[string]bool{
	".webm": true,
	".weba": true,
	".mkv":  true,
	".mka":  true,
}

// ebmlMagic is the EBML header element ID that starts every WebM file.
var ebmlMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// IsSupportedExt returns true if the extension is a supported container.
func IsSupportedExt(ext string) bool {
	return containerExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of supported containers.
func SupportedExtsList() string {
	return ".webm, .weba, .mkv, .mka"
}

// HasEBMLMagic reports whether r starts with an EBML header.
func HasEBMLMagic(r io.Reader) bool {
	head := make([]byte, len(ebmlMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return false
	}
	return bytes.Equal(head, ebmlMagic)
}

// Sniff reports whether the file at path starts with an EBML header.
func Sniff(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return HasEBMLMagic(f), nil
}
