package visualizer

import (
	"math"
	"math/cmplx"
)

const (
	analyzerSize = 2048
	// spectrumFloor is the quietest band level drawn, in dBFS.
	spectrumFloor = -60.0
)

// bandAnalyzer turns the newest frames into band levels spaced evenly on a
// log frequency axis.
type bandAnalyzer struct {
	plan   *fftPlan
	window []float64
	gain   float64
	buf    []complex128
	// edges[b] and edges[b+1] bound the bins of band b.
	edges  []int
	levels []float64
}

func newBandAnalyzer(size, bands int) *bandAnalyzer {
	a := &bandAnalyzer{
		plan:   newFFTPlan(size),
		window: make([]float64, size),
		buf:    make([]complex128, size),
		edges:  bandEdges(size/2, bands),
		levels: make([]float64, bands),
	}
	var sum float64
	for i := range a.window {
		// Periodic Hann.
		a.window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size)))
		sum += a.window[i]
	}
	// A full-scale sine centred on a bin reads as amplitude 1.
	a.gain = 2 / sum
	return a
}

// bandEdges splits bins 1..maxBin into bands, each at least one bin wide.
func bandEdges(maxBin, bands int) []int {
	edges := make([]int, bands+1)
	for b := range edges {
		e := int(math.Round(math.Pow(float64(maxBin), float64(b)/float64(bands))))
		if b > 0 {
			e = max(e, edges[b-1]+1)
		}
		edges[b] = e
	}
	edges[bands] = max(maxBin, edges[bands-1]+1)
	return edges
}

// process analyzes the last plan.n frames. It reports false, leaving the
// levels as they were, when fewer frames are available.
func (a *bandAnalyzer) process(f frames) bool {
	if f.len() < a.plan.n {
		return false
	}
	f = f.tail(a.plan.n)
	for i := range a.buf {
		a.buf[i] = complex(f.mono(i)*a.window[i], 0)
	}
	a.plan.transform(a.buf)

	for b := range a.levels {
		var peak float64
		for k := a.edges[b]; k < a.edges[b+1] && k < len(a.buf)/2; k++ {
			peak = max(peak, cmplx.Abs(a.buf[k]))
		}
		a.levels[b] = dbLevel(peak*a.gain, spectrumFloor)
	}
	return true
}

// dbLevel maps a linear amplitude onto [0, 1] from floor dBFS up to 0 dBFS.
func dbLevel(amp, floor float64) float64 {
	if amp <= 0 {
		return 0
	}
	db := 20 * math.Log10(amp)
	return min(max((db-floor)/-floor, 0), 1)
}
