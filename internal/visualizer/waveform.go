package visualizer

import (
	"math"
	"strings"

	"github.com/muesli/termenv"

	"github.com/olivier-w/webmplay/internal/termcolor"
)

const (
	traceLeft uint8 = 1 << iota
	traceRight
	traceAxis
)

// Waveform draws the left and right traces, column averaged and spring
// smoothed. Mono input draws one trace.
type Waveform struct {
	left, right *springs
	profile     termenv.Profile
	output      string
}

func NewWaveform() *Waveform {
	return &Waveform{
		left:    newSprings(14, 0.8),
		right:   newSprings(14, 0.8),
		profile: termcolor.Detect(),
	}
}

func (w *Waveform) Name() string { return "waveform" }

func (w *Waveform) Update(samples []float32, channels, width, height int) {
	f, ok := newFrames(samples, channels)
	if !ok || f.len() < 2 || width < 4 || height < 1 {
		w.output = ""
		return
	}

	cols := width - 2
	n := f.len()
	l, r := make([]float64, cols), make([]float64, cols)
	for c := range cols {
		lo := c * n / cols
		hi := min(max((c+1)*n/cols, lo+1), n)
		for i := lo; i < hi; i++ {
			l[c] += f.at(i, 0)
			r[c] += f.at(i, 1)
		}
		l[c] /= float64(hi - lo)
		r[c] /= float64(hi - lo)
	}

	grid := make([][]uint8, height)
	for i := range grid {
		grid[i] = make([]uint8, cols)
	}
	for c := range cols {
		grid[height/2][c] = traceAxis
	}
	plotTrace(grid, w.left.follow(l), traceLeft)
	if f.channels > 1 {
		plotTrace(grid, w.right.follow(r), traceRight)
	}

	var sb strings.Builder
	paint := termcolor.NewPainter(w.profile)
	for row, line := range grid {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for _, cell := range line {
			switch {
			case cell&(traceLeft|traceRight) == traceLeft|traceRight:
				paint.Fg(&sb, bothColor)
				sb.WriteRune('◆')
			case cell&traceLeft != 0:
				paint.Fg(&sb, leftColor)
				sb.WriteRune('•')
			case cell&traceRight != 0:
				paint.Fg(&sb, rightColor)
				sb.WriteRune('•')
			case cell == traceAxis:
				paint.Fg(&sb, axisColor)
				sb.WriteRune('·')
			default:
				sb.WriteByte(' ')
			}
		}
		paint.Reset(&sb)
	}
	w.output = sb.String()
}

// plotTrace marks each column from the previous column's row to its own,
// so steep edges stay connected.
func plotTrace(grid [][]uint8, amps []float64, bit uint8) {
	height := len(grid)
	prev := -1
	for c, amp := range amps {
		row := ampToRow(amp, height)
		lo, hi := row, row
		if prev >= 0 {
			lo, hi = min(prev, row), max(prev, row)
		}
		for y := lo; y <= hi; y++ {
			grid[y][c] |= bit
		}
		prev = row
	}
}

// ampToRow maps -1..1 onto rows, +1 at the top.
func ampToRow(amp float64, height int) int {
	if height <= 1 {
		return 0
	}
	t := min(max((amp+1)/2, 0), 1)
	return int(math.Round((1 - t) * float64(height-1)))
}

func (w *Waveform) View() string {
	return w.output
}
