package webmtest

import (
	"io"
	"sync"

	"github.com/olivier-w/webmplay/internal/webm"
)

// Source serves a byte slice that can be extended later, like a file that
// is still downloading. It reports the whole slice as buffered unless
// ranges were set.
type Source struct {
	mu     sync.Mutex
	data   []byte
	pos    int64
	ranges []webm.ByteRange
}

func NewSource(data []byte) *Source {
	return &Source{data: data}
}

func (s *Source) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *Source) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.data)) + offset
	}
	return s.pos, nil
}

// Set replaces the served bytes, keeping the read position.
func (s *Source) Set(data []byte) {
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
}

func (s *Source) SetRanges(ranges ...webm.ByteRange) {
	s.mu.Lock()
	s.ranges = ranges
	s.mu.Unlock()
}

func (s *Source) BufferedRanges() []webm.ByteRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ranges != nil {
		return s.ranges
	}
	return []webm.ByteRange{{Start: 0, End: int64(len(s.data))}}
}
