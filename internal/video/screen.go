package video

import "image"

// Screen caches the rendering of the frame on display. Duplicate frames
// share their picture, so they reuse the cached string too.
type Screen struct {
	renderer *Renderer
	pic      image.Image
	w, h     int
	out      string
}

func NewScreen() *Screen {
	return &Screen{renderer: NewRenderer()}
}

// View renders pic into at most termW×termH cells. dispW and dispH give
// the display aspect; pass zero to use the picture's own size.
func (s *Screen) View(pic image.Image, dispW, dispH, termW, termH int) string {
	if pic == nil {
		s.pic, s.out = nil, ""
		return ""
	}
	if dispW <= 0 || dispH <= 0 {
		dispW, dispH = pic.Bounds().Dx(), pic.Bounds().Dy()
	}
	w, h := CalcFrameDimensions(termW, termH, dispW, dispH)
	if pic == s.pic && w == s.w && h == s.h {
		return s.out
	}
	s.pic, s.w, s.h = pic, w, h
	s.out = s.renderer.Render(pic, w, h)
	return s.out
}
