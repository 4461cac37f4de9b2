package visualizer

import (
	"strings"

	"github.com/muesli/termenv"

	"github.com/olivier-w/webmplay/internal/termcolor"
)

const spectrumBands = 16

// eighths fill a cell from the bottom.
var eighths = []rune(" ▁▂▃▄▅▆▇█")

// Spectrum renders band levels as vertical bars that spring toward each
// new reading.
type Spectrum struct {
	analyzer *bandAnalyzer
	bars     *springs
	profile  termenv.Profile
	output   string
}

func NewSpectrum() *Spectrum {
	return &Spectrum{
		analyzer: newBandAnalyzer(analyzerSize, spectrumBands),
		bars:     newSprings(9, 0.9),
		profile:  termcolor.Detect(),
	}
}

func (s *Spectrum) Name() string { return "spectrum" }

func (s *Spectrum) Update(samples []float32, channels, width, height int) {
	if f, ok := newFrames(samples, channels); ok {
		s.analyzer.process(f)
	}
	heights := s.bars.follow(s.analyzer.levels)
	height = max(height, 1)

	colWidth := max(width/spectrumBands, 1)
	gap := 0
	if colWidth > 1 {
		gap = 1
	}

	var sb strings.Builder
	paint := termcolor.NewPainter(s.profile)
	for row := range height {
		if row > 0 {
			sb.WriteByte('\n')
		}
		below := float64(height - 1 - row)
		for b, h := range heights {
			h = min(max(h, 0), 1)
			if b > 0 && gap > 0 {
				paint.Reset(&sb)
				sb.WriteByte(' ')
			}
			fill := h*float64(height) - below
			idx := min(max(int(fill*float64(len(eighths)-1)), 0), len(eighths)-1)
			if idx > 0 {
				paint.Fg(&sb, termcolor.Gradient(heatStops, h))
			}
			cell := string(eighths[idx])
			sb.WriteString(strings.Repeat(cell, colWidth-gap))
		}
		paint.Reset(&sb)
	}
	s.output = sb.String()
}

func (s *Spectrum) View() string {
	return s.output
}
