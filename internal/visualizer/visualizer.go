// Package visualizer draws terminal views of recent audio: a level meter, a
// spectrum and a waveform. Samples arrive interleaved, in any channel count.
package visualizer

// Visualizer renders audio data as terminal text.
type Visualizer interface {
	Name() string
	// Update takes interleaved samples with the given channel count.
	Update(samples []float32, channels, width, height int)
	View() string
}

// Modes returns all available visualizers.
func Modes() []Visualizer {
	return []Visualizer{
		NewVUMeter(),
		NewSpectrum(),
		NewWaveform(),
	}
}

// frames views interleaved samples one frame at a time. Channels past the
// last one read the first, so mono input feeds left and right alike.
type frames struct {
	samples  []float32
	channels int
}

func newFrames(samples []float32, channels int) (frames, bool) {
	if channels <= 0 || len(samples) < channels {
		return frames{}, false
	}
	return frames{samples: samples[:len(samples)/channels*channels], channels: channels}, true
}

func (f frames) len() int { return len(f.samples) / f.channels }

func (f frames) at(i, ch int) float64 {
	if ch >= f.channels {
		ch = 0
	}
	return float64(f.samples[i*f.channels+ch])
}

// mono averages every channel of frame i.
func (f frames) mono(i int) float64 {
	var sum float64
	for _, s := range f.samples[i*f.channels : (i+1)*f.channels] {
		sum += float64(s)
	}
	return sum / float64(f.channels)
}

// tail keeps the last n frames.
func (f frames) tail(n int) frames {
	if n >= f.len() {
		return f
	}
	return frames{samples: f.samples[(f.len()-n)*f.channels:], channels: f.channels}
}
