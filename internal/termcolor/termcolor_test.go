package termcolor

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
)

func TestSequenceTrueColor(t *testing.T) {
	if got := Sequence(termenv.TrueColor, RGB{1, 2, 3}, true); got != "\x1b[48;2;1;2;3m" {
		t.Fatalf("unexpected background escape %q", got)
	}
	if got := Sequence(termenv.TrueColor, RGB{255, 0, 10}, false); got != "\x1b[38;2;255;0;10m" {
		t.Fatalf("unexpected foreground escape %q", got)
	}
}

func TestSequenceReducedProfiles(t *testing.T) {
	if got := Sequence(termenv.Ascii, RGB{255, 0, 0}, false); got != "" {
		t.Fatalf("expected no escape without color, got %q", got)
	}
	got := Sequence(termenv.ANSI256, RGB{255, 0, 0}, false)
	if !strings.HasPrefix(got, "\x1b[38;5;") || !strings.HasSuffix(got, "m") {
		t.Fatalf("unexpected 256-color escape %q", got)
	}
	if again := Sequence(termenv.ANSI256, RGB{255, 0, 0}, false); again != got {
		t.Fatalf("cached escape changed: %q then %q", got, again)
	}
	if bg := Sequence(termenv.ANSI256, RGB{255, 0, 0}, true); !strings.HasPrefix(bg, "\x1b[48;5;") {
		t.Fatalf("unexpected 256-color background %q", bg)
	}
	basic := Sequence(termenv.ANSI, RGB{255, 0, 0}, false)
	if !strings.HasPrefix(basic, "\x1b[") || strings.Contains(basic, ";") {
		t.Fatalf("unexpected 16-color escape %q", basic)
	}
}

func TestPainterSkipsRepeats(t *testing.T) {
	var sb strings.Builder
	p := NewPainter(termenv.TrueColor)
	p.Fg(&sb, RGB{9, 9, 9})
	p.Fg(&sb, RGB{9, 9, 9})
	p.Bg(&sb, RGB{0, 0, 0})
	p.Reset(&sb)
	p.Reset(&sb)

	want := "\x1b[38;2;9;9;9m\x1b[48;2;0;0;0m" + Reset
	if sb.String() != want {
		t.Fatalf("expected %q, got %q", want, sb.String())
	}
}

func TestPainterWithoutColor(t *testing.T) {
	var sb strings.Builder
	p := NewPainter(termenv.Ascii)
	p.Fg(&sb, RGB{200, 10, 10})
	p.Reset(&sb)
	if p.Enabled() || sb.Len() != 0 {
		t.Fatalf("expected nothing written, got %q", sb.String())
	}
}

func TestGradient(t *testing.T) {
	stops := []RGB{{0, 0, 0}, {100, 100, 100}, {200, 0, 0}}
	if got := Gradient(stops, 0); got != stops[0] {
		t.Fatalf("expected first stop, got %v", got)
	}
	if got := Gradient(stops, 0.25); got != (RGB{50, 50, 50}) {
		t.Fatalf("expected midpoint of first segment, got %v", got)
	}
	if got := Gradient(stops, 2); got != stops[2] {
		t.Fatalf("expected clamp to last stop, got %v", got)
	}
	if got := Lerp(RGB{0, 0, 0}, RGB{10, 20, 30}, -1); got != (RGB{}) {
		t.Fatalf("expected clamp to start, got %v", got)
	}
}
