package visualizer

import "sync"

// RingBuffer keeps the most recent samples written to it. The
// audio-available handler writes on the dispatch goroutine and the UI reads
// on its own, so every method locks.
type RingBuffer struct {
	mu   sync.Mutex
	size int
	// buf holds up to 2*size samples. The live window is its last
	// min(len(buf), size) entries; Write compacts once it fills.
	buf []float32
}

// NewRingBuffer creates a ring buffer holding size samples.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{size: size, buf: make([]float32, 0, 2*size)}
}

// Write appends samples, dropping the oldest past size.
func (rb *RingBuffer) Write(p []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if len(p) >= rb.size {
		rb.buf = append(rb.buf[:0], p[len(p)-rb.size:]...)
		return
	}
	if len(rb.buf)+len(p) > cap(rb.buf) {
		keep := rb.window()
		rb.buf = append(rb.buf[:0], keep...)
	}
	rb.buf = append(rb.buf, p...)
}

func (rb *RingBuffer) window() []float32 {
	if len(rb.buf) <= rb.size {
		return rb.buf
	}
	return rb.buf[len(rb.buf)-rb.size:]
}

// Read returns a copy of up to n of the newest samples, oldest first.
func (rb *RingBuffer) Read(n int) []float32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	w := rb.window()
	n = min(n, len(w))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	copy(out, w[len(w)-n:])
	return out
}

// Len returns the number of samples held.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.window())
}

func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.buf = rb.buf[:0]
}
