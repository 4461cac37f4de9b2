// Package audioavail cuts decoded PCM into fixed-size windows and delivers
// each window, with its presentation time, as an audio-available event once
// playback reaches that time.
package audioavail

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultMaxPendingEvents bounds the pending list when no option is given.
const DefaultMaxPendingEvents = 100

// framesPerWindow sizes the default window as channels × framesPerWindow.
const framesPerWindow = 1024

// ErrFrameBufferLength is returned for a window length below one sample.
var ErrFrameBufferLength = errors.New("audioavail: frame buffer length must be positive")

// Event is one full window of interleaved samples. Time is the stream time
// at which the window's last sample ends. Samples is owned by the event.
type Event struct {
	Samples []float32
	Time    time.Duration
}

// Dispatcher runs posted tasks in order on its own goroutine. Post must not
// block and must not run the task before returning.
type Dispatcher interface {
	Post(task func())
}

// Handler receives events on the dispatcher's goroutine.
type Handler func(Event)

// Option configures a Manager.
type Option func(*Manager)

// WithFrameBufferLength sets the window length in samples (frames ×
// channels). Without it, Init picks channels × 1024.
func WithFrameBufferLength(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.frameLen = n
		}
	}
}

// WithMaxPendingEvents caps the pending list. The oldest events go first.
func WithMaxPendingEvents(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxPending = n
		}
	}
}

// WithLogger replaces the default component logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// Manager accumulates samples written by the decoder and holds completed
// windows until DispatchPendingEvents is called with a time at or past
// theirs. One mutex guards the partial buffer and the pending list; it is
// never held while a handler runs.
type Manager struct {
	dispatcher Dispatcher
	handler    Handler
	log        *slog.Logger

	mu               sync.Mutex
	samplesPerSecond uint64
	frameLen         int
	buf              []float32
	pos              int
	pending          []Event
	maxPending       int
	dropped          uint64
	dispatched       uint64
}

// New creates a Manager that posts events for h to d. Init must be called
// before samples are queued.
func New(d Dispatcher, h Handler, opts ...Option) *Manager {
	m := &Manager{
		dispatcher: d,
		handler:    h,
		log:        slog.With("component", "audioavail"),
		maxPending: DefaultMaxPendingEvents,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init sets the sample rate of the stream. It panics on zero channels or
// rate.
func (m *Manager) Init(channels, rate int) {
	if channels <= 0 || rate <= 0 {
		panic("audioavail: Init with zero channels or rate")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samplesPerSecond = uint64(channels) * uint64(rate)
	if m.frameLen == 0 {
		m.frameLen = channels * framesPerWindow
	}
	if m.pos == 0 {
		m.buf = make([]float32, m.frameLen)
	}
}

// SetFrameBufferLength changes the window length. Samples already buffered
// keep the old length until their window completes.
func (m *Manager) SetFrameBufferLength(n int) error {
	if n <= 0 {
		return ErrFrameBufferLength
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameLen = n
	if m.pos == 0 && m.buf != nil {
		m.buf = make([]float32, n)
	}
	return nil
}

func (m *Manager) FrameBufferLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frameLen
}

// QueueWrittenAudioData appends data, whose last sample ends at
// endTimeSampleOffset samples from stream start, and queues an event for
// every window it completes. Leftover samples stay buffered.
func (m *Manager) QueueWrittenAudioData(data []float32, endTimeSampleOffset uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.samplesPerSecond == 0 {
		panic("audioavail: QueueWrittenAudioData before Init")
	}

	if m.pos == 0 && len(m.buf) != m.frameLen {
		m.buf = make([]float32, m.frameLen)
	}

	for m.pos+len(data) >= len(m.buf) {
		n := len(m.buf) - m.pos
		after := uint64(len(data) - n)

		// Near stream start the window may begin before sample zero.
		var start uint64
		if endTimeSampleOffset > after {
			start = endTimeSampleOffset - after
		}

		copy(m.buf[m.pos:], data[:n])
		data = data[n:]
		m.enqueue(Event{Samples: m.buf, Time: m.toDuration(start)})

		m.buf = make([]float32, m.frameLen)
		m.pos = 0
	}
	m.pos += copy(m.buf[m.pos:], data)
}

// enqueue must be called with mu held.
func (m *Manager) enqueue(ev Event) {
	if n := len(m.pending); n > 0 && ev.Time < m.pending[n-1].Time {
		m.log.Debug("event time went backwards, clearing pending events",
			"time", ev.Time, "last", m.pending[n-1].Time, "cleared", n)
		m.pending = m.pending[:0]
	}
	m.pending = append(m.pending, ev)
	if over := len(m.pending) - m.maxPending; over > 0 {
		m.dropped += uint64(over)
		m.log.Debug("pending events over capacity, dropping oldest", "dropped", over)
		m.pending = lo.Drop(m.pending, over)
	}
}

// toDuration converts a sample count without overflowing for long streams.
func (m *Manager) toDuration(samples uint64) time.Duration {
	secs := samples / m.samplesPerSecond
	rem := samples % m.samplesPerSecond
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/m.samplesPerSecond)
}

// DispatchPendingEvents posts every pending event at or before currentTime.
// Later events stay queued.
func (m *Manager) DispatchPendingEvents(currentTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := sort.Search(len(m.pending), func(i int) bool {
		return m.pending[i].Time > currentTime
	})
	m.post(m.pending[:n])
	m.pending = lo.Drop(m.pending, n)
}

// Drain posts all pending events, then pads any partial window with silence
// and posts it stamped endTime.
func (m *Manager) Drain(endTime time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.post(m.pending)
	m.pending = nil
	if m.pos > 0 {
		clear(m.buf[m.pos:])
		m.post([]Event{{Samples: m.buf, Time: endTime}})
		m.buf = make([]float32, m.frameLen)
		m.pos = 0
	}
}

// Clear drops pending events and buffered samples without posting anything.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
	m.pos = 0
	if len(m.buf) != m.frameLen && m.buf != nil {
		m.buf = make([]float32, m.frameLen)
	}
}

// post must be called with mu held so events reach the dispatcher in
// queue order.
func (m *Manager) post(events []Event) {
	for _, ev := range events {
		m.dispatcher.Post(func() { m.handler(ev) })
	}
	m.dispatched += uint64(len(events))
}

func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Buffered reports the samples waiting for their window to fill.
func (m *Manager) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *Manager) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *Manager) Dispatched() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatched
}
