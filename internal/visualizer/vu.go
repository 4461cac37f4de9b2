package visualizer

import (
	"math"
	"strings"

	"github.com/muesli/termenv"

	"github.com/olivier-w/webmplay/internal/termcolor"
)

const (
	// vuFloor is the level drawn as an empty bar, in dBFS.
	vuFloor   = -40.0
	peakDecay = 0.02
)

var partials = []rune(" ▏▎▍▌▋▊▉")

type meterChannel struct {
	level envelope
	peak  float64
}

func (m *meterChannel) update(rms float64) {
	level := m.level.next(dbLevel(rms, vuFloor))
	if level > m.peak {
		m.peak = level
	} else {
		m.peak = max(m.peak-peakDecay, 0)
	}
}

// VUMeter renders left and right RMS levels with a falling peak marker.
type VUMeter struct {
	ch      [2]meterChannel
	profile termenv.Profile
	output  string
}

func NewVUMeter() *VUMeter {
	v := &VUMeter{profile: termcolor.Detect()}
	for i := range v.ch {
		v.ch[i].level = envelope{attack: 0.6, release: 0.15}
	}
	return v
}

func (v *VUMeter) Name() string { return "vu meter" }

func (v *VUMeter) Update(samples []float32, channels, width, height int) {
	f, ok := newFrames(samples, channels)
	if !ok {
		return
	}
	for c := range v.ch {
		var sum float64
		for i := range f.len() {
			s := f.at(i, c)
			sum += s * s
		}
		v.ch[c].update(math.Sqrt(sum / float64(f.len())))
	}

	barWidth := max(width-4, 10)
	paint := termcolor.NewPainter(v.profile)
	var sb strings.Builder
	if height >= 5 {
		sb.WriteByte('\n')
	}
	for c, label := range []string{" L ", " R "} {
		if c > 0 {
			sb.WriteByte('\n')
			if height >= 3 {
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(label)
		renderMeter(&sb, paint, v.ch[c].level.value, v.ch[c].peak, barWidth)
	}
	v.output = sb.String()
}

func renderMeter(sb *strings.Builder, paint *termcolor.Painter, level, peak float64, width int) {
	cells := level * float64(width)
	full := int(cells)
	part := int((cells - float64(full)) * float64(len(partials)))
	peakAt := -1
	if peak > 0 {
		peakAt = min(int(peak*float64(width)), width-1)
	}

	for i := range width {
		tone := termcolor.Gradient(meterStops, float64(i)/float64(max(width-1, 1)))
		switch {
		case i < full:
			paint.Fg(sb, tone)
			sb.WriteRune('█')
		case i == full && part > 0:
			paint.Fg(sb, tone)
			sb.WriteRune(partials[part])
		case i == peakAt:
			paint.Fg(sb, peakColor)
			sb.WriteRune('┃')
		default:
			paint.Fg(sb, axisColor)
			sb.WriteRune('·')
		}
	}
	paint.Reset(sb)
}

func (v *VUMeter) View() string {
	return v.output
}
