package video

import (
	"image"
	"math"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/image/draw"

	"github.com/olivier-w/webmplay/internal/termcolor"
)

// Renderer turns decoded pictures into terminal text. With color it packs
// two pixel rows into each "▀" cell (top in the foreground, bottom in the
// background). Without color each pixel becomes a ramp character.
type Renderer struct {
	profile termenv.Profile
	sb      strings.Builder
	dst     *image.RGBA
}

// NewRenderer uses the color profile of the terminal.
func NewRenderer() *Renderer {
	return &Renderer{profile: termcolor.Detect()}
}

// Color reports whether half-block rendering is active.
func (r *Renderer) Color() bool { return r.profile != termenv.Ascii }

// Render scales img to outW×outH terminal cells. In color mode each cell
// carries two pixel rows.
func (r *Renderer) Render(img image.Image, outW, outH int) string {
	if img == nil || img.Bounds().Empty() || outW <= 0 || outH <= 0 {
		return ""
	}
	rows := outH
	if r.Color() {
		rows = outH * 2
	}
	r.scale(img, outW, rows)

	r.sb.Reset()
	// Worst case ~24 bytes per cell with color escapes.
	r.sb.Grow(outW * outH * 24)
	if r.Color() {
		r.renderHalfBlock(outW, outH)
	} else {
		r.renderASCII(outW, outH)
	}
	return r.sb.String()
}

func (r *Renderer) scale(img image.Image, w, h int) {
	if r.dst == nil || r.dst.Rect.Dx() != w || r.dst.Rect.Dy() != h {
		r.dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.ApproxBiLinear.Scale(r.dst, r.dst.Rect, img, img.Bounds(), draw.Src, nil)
}

func (r *Renderer) renderHalfBlock(outW, outH int) {
	paint := termcolor.NewPainter(r.profile)
	for row := range outH {
		for col := range outW {
			paint.Fg(&r.sb, r.pixel(col, row*2))
			paint.Bg(&r.sb, r.pixel(col, row*2+1))
			r.sb.WriteString("▀")
		}
		paint.Reset(&r.sb)
		if row < outH-1 {
			r.sb.WriteByte('\n')
		}
	}
}

func (r *Renderer) renderASCII(outW, outH int) {
	for row := range outH {
		for col := range outW {
			c := r.pixel(col, row)
			r.sb.WriteByte(brightnessChar(luminance(c.R, c.G, c.B)))
		}
		if row < outH-1 {
			r.sb.WriteByte('\n')
		}
	}
}

func (r *Renderer) pixel(x, y int) termcolor.RGB {
	off := r.dst.PixOffset(x, y)
	if off < 0 || off+2 >= len(r.dst.Pix) {
		return termcolor.RGB{}
	}
	return termcolor.RGB{R: r.dst.Pix[off], G: r.dst.Pix[off+1], B: r.dst.Pix[off+2]}
}

// CalcFrameDimensions fits a srcW×srcH picture into termW×termH cells,
// keeping its aspect ratio. Cells are treated as twice as tall as they are
// wide.
func CalcFrameDimensions(termW, termH, srcW, srcH int) (outW, outH int) {
	if srcW <= 0 || srcH <= 0 || termW <= 0 || termH <= 0 {
		return 0, 0
	}
	// Work in units of one cell width; a cell is two units tall.
	s := math.Min(float64(termW)/float64(srcW), float64(termH*2)/float64(srcH))
	outW = int(math.Round(float64(srcW) * s))
	outH = int(math.Ceil(float64(srcH) * s / 2))
	return min(max(outW, 4), termW), min(max(outH, 2), termH)
}
