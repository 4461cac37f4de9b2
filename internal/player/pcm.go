package player

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/olivier-w/webmplay/internal/reader"
)

// underrunWait is how long Read waits for decoded audio before it plays
// silence instead.
const underrunWait = 20 * time.Millisecond

// pcmStream feeds oto from the reader's audio queue as float32 LE. Its
// position is the media time of the next sample to be handed out; silence
// played during underruns does not advance it.
type pcmStream struct {
	queue    *reader.MediaQueue[*reader.AudioData]
	channels int
	rate     int64

	mu       sync.Mutex
	cur      *reader.AudioData
	off      int
	base     time.Duration
	frames   int64
	consumed bool
}

func newPCMStream(q *reader.MediaQueue[*reader.AudioData], channels, rate int, start time.Duration) *pcmStream {
	return &pcmStream{
		queue:    q,
		channels: channels,
		rate:     int64(rate),
		base:     start,
	}
}

func (s *pcmStream) frameBytes() int { return s.channels * 4 }

func (s *pcmStream) Read(p []byte) (int, error) {
	fb := s.frameBytes()
	p = p[:len(p)/fb*fb]
	if len(p) == 0 {
		return 0, nil
	}

	n := s.fill(p)
	if n == 0 {
		select {
		case <-s.queue.Changed():
		case <-time.After(underrunWait):
		}
		n = s.fill(p)
	}
	if n == 0 {
		clear(p)
		return len(p), nil
	}
	return n, nil
}

// fill copies whole frames from the queue into p and returns the bytes
// written.
func (s *pcmStream) fill(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for n < len(p) {
		if s.cur == nil || s.off >= len(s.cur.Samples) {
			next, ok := s.queue.PopFront()
			if !ok {
				s.cur = nil
				s.consumed = s.queue.AtEndOfStream()
				break
			}
			s.cur, s.off = next, 0
			s.base, s.frames = next.Time, 0
			s.consumed = false
		}
		for n < len(p) && s.off < len(s.cur.Samples) {
			binary.LittleEndian.PutUint32(p[n:], math.Float32bits(s.cur.Samples[s.off]))
			n += 4
			s.off++
			if s.off%s.channels == 0 {
				s.frames++
			}
		}
	}
	return n
}

// Position returns the media time of the next unplayed sample.
func (s *pcmStream) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base + framesToDuration(s.frames, s.rate)
}

// Consumed reports that the queue has been finished and fully read.
func (s *pcmStream) Consumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

// Flush drops the partially read chunk and moves the clock to t.
func (s *pcmStream) Flush(t time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur, s.off = nil, 0
	s.base, s.frames = t, 0
	s.consumed = false
}

func (s *pcmStream) bytesToDuration(n int) time.Duration {
	return framesToDuration(int64(n/s.frameBytes()), s.rate)
}

func framesToDuration(frames, rate int64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames/rate)*time.Second + time.Duration(frames%rate)*time.Second/time.Duration(rate)
}
