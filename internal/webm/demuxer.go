package webm

import (
	"fmt"
	"time"
)

// Demuxer hands out packets one track at a time. Packets of the other
// selected track met on the way are stashed in that track's queue, and
// packets of unselected tracks are dropped.
type Demuxer struct {
	parser *Parser
	audio  uint64
	video  uint64
	queues map[TrackType]*PacketQueue
}

func NewDemuxer(p *Parser) *Demuxer {
	return &Demuxer{
		parser: p,
		queues: map[TrackType]*PacketQueue{
			TrackAudio: {},
			TrackVideo: {},
		},
	}
}

// Select makes track number the active track of kind. Zero deselects.
func (d *Demuxer) Select(kind TrackType, number uint64) {
	switch kind {
	case TrackAudio:
		d.audio = number
	case TrackVideo:
		d.video = number
	}
}

// NextPacket returns the next packet of kind, or io.EOF once the stream has
// no more. Errors from the parser are passed through unchanged.
func (d *Demuxer) NextPacket(kind TrackType) (*Packet, error) {
	q, ok := d.queues[kind]
	if !ok {
		return nil, fmt.Errorf("webm: no queue for %s tracks", kind)
	}
	for q.Len() == 0 {
		b, err := d.parser.ReadBlock()
		if err != nil {
			return nil, err
		}
		var target *PacketQueue
		switch b.Track {
		case 0:
		case d.audio:
			target = d.queues[TrackAudio]
		case d.video:
			target = d.queues[TrackVideo]
		}
		if target == nil {
			continue
		}
		for _, pkt := range d.unlace(b) {
			target.Push(pkt)
		}
	}
	return q.PopFront(), nil
}

// PushFront returns a packet taken by NextPacket to the head of its queue.
func (d *Demuxer) PushFront(kind TrackType, pkt *Packet) {
	d.queues[kind].PushFront(pkt)
}

// Queued returns the number of stashed packets of kind.
func (d *Demuxer) Queued(kind TrackType) int {
	if q, ok := d.queues[kind]; ok {
		return q.Len()
	}
	return 0
}

// Reset drops all stashed packets.
func (d *Demuxer) Reset() {
	for _, q := range d.queues {
		q.Reset()
	}
}

// Seek drops stashed packets and moves the parser to the cluster at offset.
func (d *Demuxer) Seek(offset int64) error {
	d.Reset()
	return d.parser.SeekTo(offset)
}

func (d *Demuxer) unlace(b *Block) []*Packet {
	var step time.Duration
	if t, ok := d.parser.Track(b.Track); ok && t.DefaultDuration > 0 {
		step = t.DefaultDuration
	} else if b.Duration > 0 {
		step = b.Duration / time.Duration(len(b.Frames))
	}
	out := make([]*Packet, 0, len(b.Frames))
	for i, f := range b.Frames {
		pkt := &Packet{
			TrackNumber:  b.Track,
			Data:         f,
			Timestamp:    b.Time,
			HasTimestamp: i == 0,
			Keyframe:     b.Keyframe && i == 0,
			Offset:       b.Offset,
		}
		if i > 0 && step > 0 {
			pkt.Timestamp = b.Time + time.Duration(i)*step
			pkt.HasTimestamp = true
		}
		out = append(out, pkt)
	}
	return out
}
