package video

import (
	"image"
	"strings"
	"testing"

	"github.com/muesli/termenv"

	"github.com/olivier-w/webmplay/internal/termcolor"
)

func TestCalcFrameDimensionsKeepsAspect(t *testing.T) {
	tests := []struct {
		name         string
		termW, termH int
		srcW, srcH   int
		wantW, wantH int
	}{
		{"fits height", 80, 24, 64, 48, 64, 24},
		{"fits width", 80, 24, 1920, 1080, 80, 23},
		{"minimum height", 80, 24, 1000, 10, 80, 2},
		{"no source", 80, 24, 0, 0, 0, 0},
	}
	for _, tc := range tests {
		w, h := CalcFrameDimensions(tc.termW, tc.termH, tc.srcW, tc.srcH)
		if w != tc.wantW || h != tc.wantH {
			t.Fatalf("%s: expected %dx%d, got %dx%d", tc.name, tc.wantW, tc.wantH, w, h)
		}
	}
}

func TestBrightnessRamp(t *testing.T) {
	if brightnessChar(0) != ' ' || brightnessChar(255) != '@' {
		t.Fatalf("unexpected ramp ends %q %q", brightnessChar(0), brightnessChar(255))
	}
	if got := luminance(255, 255, 255); got != 255 {
		t.Fatalf("expected white luminance 255, got %d", got)
	}
	if got := luminance(0, 255, 0); got != 149 {
		t.Fatalf("expected green luminance 149, got %d", got)
	}
}

func TestRenderASCII(t *testing.T) {
	r := &Renderer{profile: termenv.Ascii}
	out := r.Render(image.NewGray(image.Rect(0, 0, 8, 8)), 4, 2)
	if out != "    \n    " {
		t.Fatalf("unexpected ascii render %q", out)
	}
}

func TestRenderHalfBlock(t *testing.T) {
	r := &Renderer{profile: termenv.TrueColor}
	out := r.Render(image.NewGray(image.Rect(0, 0, 4, 4)), 2, 1)
	if n := strings.Count(out, "▀"); n != 2 {
		t.Fatalf("expected 2 half blocks, got %d in %q", n, out)
	}
	// Same color on the whole row is set once.
	if n := strings.Count(out, "\x1b[38;2;0;0;0m"); n != 1 {
		t.Fatalf("expected one fg escape, got %d", n)
	}
	if !strings.HasSuffix(out, termcolor.Reset) {
		t.Fatalf("expected reset at row end, got %q", out)
	}
}

func TestRenderRejectsEmpty(t *testing.T) {
	r := &Renderer{profile: termenv.Ascii}
	if out := r.Render(nil, 4, 2); out != "" {
		t.Fatalf("expected empty render for nil image, got %q", out)
	}
	if out := r.Render(image.NewGray(image.Rect(0, 0, 4, 4)), 0, 2); out != "" {
		t.Fatalf("expected empty render for zero width, got %q", out)
	}
}

func TestScreenCachesFrame(t *testing.T) {
	s := &Screen{renderer: &Renderer{profile: termenv.Ascii}}
	pic := image.NewGray(image.Rect(0, 0, 8, 8))

	first := s.View(pic, 0, 0, 8, 4)
	if first == "" {
		t.Fatal("expected a rendered frame")
	}
	dst := s.renderer.dst
	s.renderer.dst = nil
	if again := s.View(pic, 0, 0, 8, 4); again != first || s.renderer.dst != nil {
		t.Fatal("expected the cached render for the same picture")
	}
	s.renderer.dst = dst

	if out := s.View(nil, 0, 0, 8, 4); out != "" {
		t.Fatalf("expected empty view without a picture, got %q", out)
	}
}
