// Package termcolor writes SGR color escapes for the color profile of the
// terminal. Both the video renderer and the visualizers paint through it.
package termcolor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Reset clears every attribute.
const Reset = termenv.CSI + termenv.ResetSeq + "m"

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

func (c RGB) hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) key() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Lerp moves from a toward b. t is clamped to [0, 1].
func Lerp(a, b RGB, t float64) RGB {
	t = min(max(t, 0), 1)
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return RGB{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B)}
}

// Gradient picks a color along evenly spaced stops.
func Gradient(stops []RGB, t float64) RGB {
	switch len(stops) {
	case 0:
		return RGB{}
	case 1:
		return stops[0]
	}
	t = min(max(t, 0), 1)
	pos := t * float64(len(stops)-1)
	i := min(int(pos), len(stops)-2)
	return Lerp(stops[i], stops[i+1], pos-float64(i))
}

// Detect returns the profile lipgloss resolved for stdout. NO_COLOR and a
// stdout that is not a terminal give termenv.Ascii.
func Detect() termenv.Profile {
	return lipgloss.ColorProfile()
}

// reduced caches escapes for the 256 and 16 color profiles, where termenv
// searches for the nearest palette entry.
var reduced sync.Map

// Sequence returns the escape that sets c as the foreground color, or the
// background when bg is true. It is empty for termenv.Ascii.
func Sequence(p termenv.Profile, c RGB, bg bool) string {
	switch p {
	case termenv.Ascii:
		return ""
	case termenv.TrueColor:
		base := termenv.Foreground
		if bg {
			base = termenv.Background
		}
		return fmt.Sprintf("%s%s;2;%d;%d;%dm", termenv.CSI, base, c.R, c.G, c.B)
	}

	key := uint64(p)<<32 | uint64(c.key())
	if bg {
		key |= 1 << 24
	}
	if seq, ok := reduced.Load(key); ok {
		return seq.(string)
	}
	seq := p.Color(c.hex()).Sequence(bg)
	if seq != "" {
		seq = termenv.CSI + seq + "m"
	}
	reduced.Store(key, seq)
	return seq
}

// Painter tracks the colors last written to a builder so repeated cells of
// one color cost a single escape.
type Painter struct {
	profile termenv.Profile
	fg, bg  string
}

func NewPainter(p termenv.Profile) *Painter {
	return &Painter{profile: p}
}

// Enabled reports whether the profile has any color.
func (p *Painter) Enabled() bool { return p.profile != termenv.Ascii }

func (p *Painter) Fg(sb *strings.Builder, c RGB) {
	if seq := Sequence(p.profile, c, false); seq != p.fg {
		sb.WriteString(seq)
		p.fg = seq
	}
}

func (p *Painter) Bg(sb *strings.Builder, c RGB) {
	if seq := Sequence(p.profile, c, true); seq != p.bg {
		sb.WriteString(seq)
		p.bg = seq
	}
}

// Reset writes Reset if a color is active.
func (p *Painter) Reset(sb *strings.Builder) {
	if p.fg == "" && p.bg == "" {
		return
	}
	sb.WriteString(Reset)
	p.fg, p.bg = "", ""
}
