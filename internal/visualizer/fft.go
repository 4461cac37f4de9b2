package visualizer

import (
	"math"
	"math/cmplx"
)

// fftPlan holds the twiddle factors and bit-reversal order for one
// power-of-two transform size.
type fftPlan struct {
	n       int
	twiddle []complex128 // e^(-2πik/n) for k < n/2
	rev     []int
}

func newFFTPlan(n int) *fftPlan {
	if n < 2 || n&(n-1) != 0 {
		panic("visualizer: fft size must be a power of two")
	}
	p := &fftPlan{n: n, twiddle: make([]complex128, n/2), rev: make([]int, n)}
	for k := range p.twiddle {
		p.twiddle[k] = cmplx.Rect(1, -2*math.Pi*float64(k)/float64(n))
	}
	bits := 0
	for 1<<bits < n {
		bits++
	}
	for i := range p.rev {
		r := 0
		for b := range bits {
			if i&(1<<b) != 0 {
				r |= 1 << (bits - 1 - b)
			}
		}
		p.rev[i] = r
	}
	return p
}

// transform runs an in-place iterative radix-2 FFT. len(x) must be n.
func (p *fftPlan) transform(x []complex128) {
	for i, r := range p.rev {
		if i < r {
			x[i], x[r] = x[r], x[i]
		}
	}
	for size := 2; size <= p.n; size <<= 1 {
		half := size / 2
		step := p.n / size
		for start := 0; start < p.n; start += size {
			for k := range half {
				a, b := start+k, start+k+half
				t := p.twiddle[k*step] * x[b]
				x[a], x[b] = x[a]+t, x[a]-t
			}
		}
	}
}
