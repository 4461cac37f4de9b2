package media

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsSupportedExtIncludesWebMFamily(t *testing.T) {
	for _, ext := range []string{".webm", ".WEBM", ".weba", ".mkv", ".mka"} {
		if !IsSupportedExt(ext) {
			t.Fatalf("expected %s to be supported", ext)
		}
	}
	if IsSupportedExt(".mp3") {
		t.Fatal("expected .mp3 to be unsupported")
	}
}

func TestSupportedExtsListIncludesWebMFamily(t *testing.T) {
	list := SupportedExtsList()
	for _, ext := range []string{".webm", ".weba", ".mkv"} {
		if !strings.Contains(list, ext) {
			t.Fatalf("expected supported ext list to include %s, got %q", ext, list)
		}
	}
}

func TestHasEBMLMagic(t *testing.T) {
	if !HasEBMLMagic(bytes.NewReader([]byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F})) {
		t.Fatal("expected EBML magic to match")
	}
	if HasEBMLMagic(bytes.NewReader([]byte("ID3\x03"))) {
		t.Fatal("expected ID3 header to be rejected")
	}
	if HasEBMLMagic(bytes.NewReader([]byte{0x1A})) {
		t.Fatal("expected short input to be rejected")
	}
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()
	webm := filepath.Join(dir, "clip.bin")
	if err := os.WriteFile(webm, []byte{0x1A, 0x45, 0xDF, 0xA3, 0x80}, 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err := Sniff(webm)
	if err != nil || !ok {
		t.Fatalf("expected EBML file to sniff as playable, got %v, %v", ok, err)
	}

	text := filepath.Join(dir, "notes.webm")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := Sniff(text); ok {
		t.Fatal("expected text file to be rejected despite its extension")
	}

	if _, err := Sniff(filepath.Join(dir, "missing.webm")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
