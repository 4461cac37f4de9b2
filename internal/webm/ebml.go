package webm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
	"strings"
)

const (
	unknownSize = ^uint64(0)

	// maxPayloadSize bounds leaf and block payload allocations.
	maxPayloadSize = 64 << 20
)

type elementHeader struct {
	id    uint32
	size  uint64
	start int64 // offset of the ID
	data  int64 // offset of the payload
}

// end returns the offset just past the payload, or -1 for unknown sizes.
func (h elementHeader) end() int64 {
	if h.size == unknownSize {
		return -1
	}
	return h.data + int64(h.size)
}

// ebmlReader is a buffered reader that still allows absolute seeks.
type ebmlReader struct {
	rs  io.ReadSeeker
	r   *bufio.Reader
	pos int64
}

func newEBMLReader(rs io.ReadSeeker) (*ebmlReader, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("webm: source position: %w", err)
	}
	return &ebmlReader{
		rs:  rs,
		r:   bufio.NewReaderSize(rs, 64*1024),
		pos: pos,
	}, nil
}

func (er *ebmlReader) seek(pos int64) error {
	if _, err := er.rs.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("webm: seek to %d: %w", pos, err)
	}
	er.pos = pos
	er.r.Reset(er.rs)
	return nil
}

func (er *ebmlReader) readByte() (byte, error) {
	b, err := er.r.ReadByte()
	if err != nil {
		return 0, err
	}
	er.pos++
	return b, nil
}

// readN returns a freshly allocated slice; callers may keep it.
func (er *ebmlReader) readN(n uint64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if n > maxPayloadSize {
		return nil, corruptf(er.pos, "payload of %d bytes", n)
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(er.r, buf)
	er.pos += int64(read)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (er *ebmlReader) skip(n uint64) error {
	if n == 0 {
		return nil
	}
	if n <= uint64(er.r.Buffered()) {
		discarded, err := er.r.Discard(int(n))
		er.pos += int64(discarded)
		return err
	}
	return er.seek(er.pos + int64(n))
}

func vintLength(first byte) int {
	if first == 0 {
		return 0
	}
	return bits.LeadingZeros8(first) + 1
}

func (er *ebmlReader) readVintTail(value uint64, length int) (uint64, error) {
	for i := 1; i < length; i++ {
		b, err := er.readByte()
		if err == io.EOF {
			return 0, io.ErrUnexpectedEOF
		}
		if err != nil {
			return 0, err
		}
		value = value<<8 | uint64(b)
	}
	return value, nil
}

// readID reads an element ID, keeping its marker bits. A clean end of
// input before the first byte is reported as io.EOF.
func (er *ebmlReader) readID() (uint32, error) {
	start := er.pos
	first, err := er.readByte()
	if err != nil {
		return 0, err
	}
	length := vintLength(first)
	if length == 0 || length > 4 {
		return 0, corruptf(start, "invalid element id byte 0x%02x", first)
	}
	v, err := er.readVintTail(uint64(first), length)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (er *ebmlReader) readSize() (uint64, error) {
	start := er.pos
	first, err := er.readByte()
	if err == io.EOF {
		return 0, io.ErrUnexpectedEOF
	}
	if err != nil {
		return 0, err
	}
	length := vintLength(first)
	if length == 0 {
		return 0, corruptf(start, "invalid element size byte 0x%02x", first)
	}
	v, err := er.readVintTail(uint64(first&(0xFF>>length)), length)
	if err != nil {
		return 0, err
	}
	if v == 1<<(7*length)-1 {
		return unknownSize, nil
	}
	return v, nil
}

func (er *ebmlReader) readHeader() (elementHeader, error) {
	h := elementHeader{start: er.pos}
	id, err := er.readID()
	if err != nil {
		return h, err
	}
	size, err := er.readSize()
	if err != nil {
		return h, err
	}
	h.id = id
	h.size = size
	h.data = er.pos
	return h, nil
}

// readVint decodes an unsigned VINT from the front of b and returns the
// value and its length in bytes. Used inside block payloads.
func readVint(b []byte) (uint64, int, bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	length := vintLength(b[0])
	if length == 0 || length > 8 || len(b) < length {
		return 0, 0, false
	}
	v := uint64(b[0] & (0xFF >> length))
	for i := 1; i < length; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v, length, true
}

func decodeUint(b []byte) (uint64, bool) {
	if len(b) > 8 {
		return 0, false
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, true
}

func decodeFloat(b []byte) (float64, bool) {
	switch len(b) {
	case 0:
		return 0, true
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b))), true
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b)), true
	}
	return 0, false
}

func decodeString(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
