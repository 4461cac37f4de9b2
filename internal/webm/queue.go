package webm

import "time"

// Packet is one compressed frame of one track.
type Packet struct {
	TrackNumber uint64
	Data        []byte
	// Timestamp is valid only when HasTimestamp is set. Frames after the
	// first in a laced block may not carry one.
	Timestamp    time.Duration
	HasTimestamp bool
	Keyframe     bool
	Offset       int64
}

// PacketQueue is a FIFO of packets with O(1) operations at both ends. It is
// owned by a single goroutine.
type PacketQueue struct {
	buf  []*Packet
	head int
	n    int
}

// Push appends p. A nil packet is a programming error.
func (q *PacketQueue) Push(p *Packet) {
	if p == nil {
		panic("webm: push of nil packet")
	}
	q.grow()
	q.buf[(q.head+q.n)%len(q.buf)] = p
	q.n++
}

// PushFront puts p back at the head, for packets taken out to peek at.
func (q *PacketQueue) PushFront(p *Packet) {
	if p == nil {
		panic("webm: push of nil packet")
	}
	q.grow()
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = p
	q.n++
}

// PopFront removes and returns the oldest packet, or nil if q is empty.
func (q *PacketQueue) PopFront() *Packet {
	if q.n == 0 {
		return nil
	}
	p := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return p
}

func (q *PacketQueue) Len() int { return q.n }

// Reset drops every queued packet.
func (q *PacketQueue) Reset() {
	clear(q.buf)
	q.head = 0
	q.n = 0
}

func (q *PacketQueue) grow() {
	if q.n < len(q.buf) {
		return
	}
	size := 2 * len(q.buf)
	if size == 0 {
		size = 16
	}
	buf := make([]*Packet, size)
	for i := range q.n {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
