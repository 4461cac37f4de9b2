package webm

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const defaultTimecodeScale = 1000000

// Parser reads the Matroska element tree of a WebM stream. It is not safe for
// concurrent use. Cues() and Clusters() may be read from other goroutines.
type Parser struct {
	r *ebmlReader

	docType       string
	segmentData   int64
	segmentEnd    int64
	firstCluster  int64
	timecodeScale uint64
	duration      float64
	title         string
	tags          map[string]string
	tracks        []TrackInfo

	cuesOffset int64
	cuesRead   bool
	rawCues    []rawCue
	cues       *CueIndex
	clusters   *ClusterIndex

	cluster clusterState
	peeked  *elementHeader
}

type clusterState struct {
	active   bool
	start    int64
	end      int64
	timecode int64
}

type rawCue struct {
	time     uint64
	track    uint64
	position uint64
}

// Open validates the EBML header at the current position of rs.
func Open(rs io.ReadSeeker) (*Parser, error) {
	er, err := newEBMLReader(rs)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		r:             er,
		segmentEnd:    -1,
		firstCluster:  -1,
		timecodeScale: defaultTimecodeScale,
		tags:          make(map[string]string),
		cues:          NewCueIndex(),
		clusters:      NewClusterIndex(),
	}

	h, err := er.readHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedContainer, err)
	}
	if h.id != IDEBML {
		return nil, fmt.Errorf("%w: missing EBML signature", ErrUnsupportedContainer)
	}
	p.docType = "matroska"
	err = p.eachChild(h, func(c elementHeader) error {
		if c.id != IDDocType {
			return nil
		}
		b, err := p.payload(c)
		if err != nil {
			return err
		}
		p.docType = decodeString(b)
		return nil
	})
	if err != nil {
		return nil, p.classify(err)
	}
	if p.docType != "webm" && p.docType != "matroska" {
		return nil, fmt.Errorf("%w: doctype %q", ErrUnsupportedContainer, p.docType)
	}
	return p, nil
}

// ReadHeaders reads the Segment's top-level metadata up to the first
// Cluster and leaves the parser positioned there. On ErrTruncated the parser
// is rewound so ReadHeaders can be called again.
func (p *Parser) ReadHeaders() error {
	start := p.r.pos
	err := p.readHeaders()
	if errors.Is(err, ErrTruncated) {
		p.tracks = nil
		p.rawCues = nil
		p.tags = make(map[string]string)
		p.cuesOffset = 0
		p.cuesRead = false
		p.peeked = nil
		if serr := p.r.seek(start); serr != nil {
			return serr
		}
	}
	return err
}

func (p *Parser) readHeaders() error {
	h, err := p.r.readHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return p.classify(err)
	}
	if h.id != IDSegment {
		return corruptf(h.start, "expected Segment, found 0x%X", h.id)
	}
	p.segmentData = h.data
	p.segmentEnd = h.end()

	for {
		if p.segmentEnd >= 0 && p.r.pos >= p.segmentEnd {
			break
		}
		c, err := p.r.readHeader()
		if err == io.EOF {
			break
		}
		if err != nil {
			return p.classify(err)
		}
		if c.id == IDCluster {
			p.firstCluster = c.start
			p.peeked = &c
			break
		}
		if c.size == unknownSize {
			return corruptf(c.start, "unknown size for element 0x%X", c.id)
		}
		if err := p.readTopLevel(c); err != nil {
			return p.classify(err)
		}
	}

	if !p.cuesRead && p.cuesOffset > 0 {
		p.readCuesAt(p.cuesOffset)
	}
	p.indexCues()
	return nil
}

func (p *Parser) readTopLevel(h elementHeader) error {
	var err error
	switch h.id {
	case IDInfo:
		err = p.readInfo(h)
	case IDTracks:
		err = p.readTracks(h)
	case IDSeekHead:
		err = p.readSeekHead(h)
	case IDCues:
		err = p.readCues(h)
	case IDTags:
		err = p.readTags(h)
	default:
		err = p.r.skip(h.size)
	}
	return err
}

// readCuesAt loads Cues referenced from the SeekHead. Failures are ignored
// and seeking falls back to the clusters seen so far.
func (p *Parser) readCuesAt(offset int64) {
	back := p.r.pos
	peeked := p.peeked
	defer func() {
		_ = p.r.seek(back)
		p.peeked = peeked
	}()
	if err := p.r.seek(offset); err != nil {
		return
	}
	h, err := p.r.readHeader()
	if err != nil || h.id != IDCues || h.size == unknownSize {
		return
	}
	_ = p.readCues(h)
}

func (p *Parser) readInfo(h elementHeader) error {
	return p.eachChild(h, func(c elementHeader) error {
		switch c.id {
		case IDTimecodeScale:
			v, err := p.readUint(c)
			if err != nil {
				return err
			}
			if v > 0 {
				p.timecodeScale = v
			}
		case IDDuration:
			b, err := p.payload(c)
			if err != nil {
				return err
			}
			if f, ok := decodeFloat(b); ok && f > 0 {
				p.duration = f
			}
		case IDTitle:
			s, err := p.readString(c)
			if err != nil {
				return err
			}
			p.title = s
		}
		return nil
	})
}

func (p *Parser) readTracks(h elementHeader) error {
	return p.eachChild(h, func(c elementHeader) error {
		if c.id != IDTrackEntry {
			return nil
		}
		t, err := p.readTrackEntry(c)
		if err != nil {
			return err
		}
		p.tracks = append(p.tracks, t)
		return nil
	})
}

func (p *Parser) readTrackEntry(h elementHeader) (TrackInfo, error) {
	t := newTrackInfo()
	err := p.eachChild(h, func(c elementHeader) error {
		var err error
		var v uint64
		switch c.id {
		case IDTrackNumber:
			t.Number, err = p.readUint(c)
		case IDTrackType:
			v, err = p.readUint(c)
			t.Type = TrackType(v)
		case IDFlagEnabled:
			v, err = p.readUint(c)
			t.Enabled = v != 0
		case IDCodecID:
			t.CodecID, err = p.readString(c)
		case IDCodecPrivate:
			t.CodecPrivate, err = p.payload(c)
		case IDName:
			t.Name, err = p.readString(c)
		case IDLanguage:
			t.Language, err = p.readString(c)
		case IDDefaultDuration:
			v, err = p.readUint(c)
			t.DefaultDuration = time.Duration(v)
		case IDCodecDelay:
			v, err = p.readUint(c)
			t.CodecDelay = time.Duration(v)
		case IDSeekPreRoll:
			v, err = p.readUint(c)
			t.SeekPreRoll = time.Duration(v)
		case IDContentEncodings:
			t.Encoded = true
		case IDVideo:
			err = p.readVideo(c, &t)
		case IDAudio:
			err = p.readAudio(c, &t)
		}
		return err
	})
	if t.DisplayWidth == 0 {
		t.DisplayWidth = t.PixelWidth
	}
	if t.DisplayHeight == 0 {
		t.DisplayHeight = t.PixelHeight
	}
	return t, err
}

func (p *Parser) readVideo(h elementHeader, t *TrackInfo) error {
	return p.eachChild(h, func(c elementHeader) error {
		var dst *int
		switch c.id {
		case IDPixelWidth:
			dst = &t.PixelWidth
		case IDPixelHeight:
			dst = &t.PixelHeight
		case IDDisplayWidth:
			dst = &t.DisplayWidth
		case IDDisplayHeight:
			dst = &t.DisplayHeight
		default:
			return nil
		}
		v, err := p.readUint(c)
		if err != nil {
			return err
		}
		*dst = int(v)
		return nil
	})
}

func (p *Parser) readAudio(h elementHeader, t *TrackInfo) error {
	return p.eachChild(h, func(c elementHeader) error {
		switch c.id {
		case IDSamplingFrequency:
			b, err := p.payload(c)
			if err != nil {
				return err
			}
			if f, ok := decodeFloat(b); ok {
				t.SampleRate = f
			}
		case IDChannels:
			v, err := p.readUint(c)
			if err != nil {
				return err
			}
			t.Channels = int(v)
		case IDBitDepth:
			v, err := p.readUint(c)
			if err != nil {
				return err
			}
			t.BitDepth = int(v)
		}
		return nil
	})
}

func (p *Parser) readSeekHead(h elementHeader) error {
	return p.eachChild(h, func(c elementHeader) error {
		if c.id != IDSeek {
			return nil
		}
		var id uint32
		var pos uint64
		err := p.eachChild(c, func(e elementHeader) error {
			switch e.id {
			case IDSeekID:
				v, err := p.readUint(e)
				if err != nil {
					return err
				}
				id = uint32(v)
			case IDSeekPosition:
				v, err := p.readUint(e)
				if err != nil {
					return err
				}
				pos = v
			}
			return nil
		})
		if err != nil {
			return err
		}
		if id == IDCues {
			p.cuesOffset = p.segmentData + int64(pos)
		}
		return nil
	})
}

func (p *Parser) readCues(h elementHeader) error {
	p.cuesRead = true
	return p.eachChild(h, func(c elementHeader) error {
		if c.id != IDCuePoint {
			return nil
		}
		var cue rawCue
		return p.eachChild(c, func(e elementHeader) error {
			switch e.id {
			case IDCueTime:
				v, err := p.readUint(e)
				if err != nil {
					return err
				}
				cue.time = v
			case IDCueTrackPositions:
				err := p.eachChild(e, func(f elementHeader) error {
					var err error
					switch f.id {
					case IDCueTrack:
						cue.track, err = p.readUint(f)
					case IDCueClusterPosition:
						cue.position, err = p.readUint(f)
					}
					return err
				})
				if err != nil {
					return err
				}
				p.rawCues = append(p.rawCues, cue)
			}
			return nil
		})
	})
}

// indexCues converts raw cues once the timecode scale is known.
func (p *Parser) indexCues() {
	for _, c := range p.rawCues {
		cp := CuePoint{
			Time:          p.scale(int64(c.time)),
			Track:         c.track,
			ClusterOffset: p.segmentData + int64(c.position),
		}
		p.cues.Add(cp)
		p.clusters.Add(cp.ClusterOffset, cp.Time)
	}
	p.rawCues = nil
}

func (p *Parser) readTags(h elementHeader) error {
	return p.eachChild(h, func(c elementHeader) error {
		if c.id != IDTag {
			return nil
		}
		return p.eachChild(c, func(e elementHeader) error {
			if e.id != IDSimpleTag {
				return nil
			}
			var name, value string
			err := p.eachChild(e, func(f elementHeader) error {
				var err error
				switch f.id {
				case IDTagName:
					name, err = p.readString(f)
				case IDTagString:
					value, err = p.readString(f)
				}
				return err
			})
			if err != nil {
				return err
			}
			if name != "" {
				p.tags[strings.ToUpper(name)] = value
			}
			return nil
		})
	})
}

// ReadBlock returns the next block in stream order, or io.EOF at the end of
// the segment.
func (p *Parser) ReadBlock() (*Block, error) {
	for {
		mark := p.r.pos
		if p.peeked != nil {
			mark = p.peeked.start
		}
		b, err := p.step()
		if err == nil && b == nil {
			continue
		}
		if err == nil {
			return b, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			p.peeked = nil
			if serr := p.r.seek(mark); serr != nil {
				return nil, serr
			}
			return nil, fmt.Errorf("%w at offset %d", ErrTruncated, mark)
		}
		return nil, err
	}
}

func (p *Parser) next() (elementHeader, error) {
	if p.peeked != nil {
		h := *p.peeked
		p.peeked = nil
		return h, nil
	}
	return p.r.readHeader()
}

// step consumes one element. It returns a nil block for elements that carry
// no frames.
func (p *Parser) step() (*Block, error) {
	if p.cluster.active && p.cluster.end >= 0 && p.r.pos >= p.cluster.end {
		p.cluster.active = false
	}
	if p.segmentEnd >= 0 && p.r.pos >= p.segmentEnd && p.peeked == nil {
		return nil, io.EOF
	}

	h, err := p.next()
	if err != nil {
		// Inside a sized segment or cluster, running out of bytes means
		// the file is still growing or cut short.
		if err == io.EOF && (p.segmentEnd >= 0 || (p.cluster.active && p.cluster.end >= 0)) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	if p.cluster.active && isTopLevel(h.id) {
		if p.cluster.end >= 0 {
			return nil, corruptf(h.start, "element 0x%X inside cluster", h.id)
		}
		p.cluster.active = false
	}

	if !p.cluster.active {
		if h.id == IDCluster {
			p.cluster = clusterState{active: true, start: h.start, end: h.end()}
			return nil, nil
		}
		if h.size == unknownSize {
			return nil, corruptf(h.start, "unknown size for element 0x%X", h.id)
		}
		if h.id == IDCues {
			if err := p.readCues(h); err != nil {
				return nil, err
			}
			p.indexCues()
			return nil, nil
		}
		return nil, p.r.skip(h.size)
	}

	if h.size == unknownSize {
		return nil, corruptf(h.start, "unknown size for element 0x%X", h.id)
	}
	if p.cluster.end >= 0 && h.end() > p.cluster.end {
		return nil, corruptf(h.start, "element 0x%X overruns cluster", h.id)
	}

	switch h.id {
	case IDTimecode:
		v, err := p.readUint(h)
		if err != nil {
			return nil, err
		}
		p.cluster.timecode = int64(v)
		p.clusters.Add(p.cluster.start, p.scale(p.cluster.timecode))
		return nil, nil
	case IDSimpleBlock:
		payload, err := p.payload(h)
		if err != nil {
			return nil, err
		}
		track, rel, flags, frames, err := parseBlockPayload(payload, h.start)
		if err != nil {
			return nil, err
		}
		return &Block{
			Track:    track,
			Time:     p.blockTime(rel),
			Keyframe: flags&0x80 != 0,
			Frames:   frames,
			Offset:   h.start,
		}, nil
	case IDBlockGroup:
		return p.readBlockGroup(h)
	}
	return nil, p.r.skip(h.size)
}

func (p *Parser) readBlockGroup(h elementHeader) (*Block, error) {
	var payload []byte
	var duration uint64
	referenced := false
	err := p.eachChild(h, func(c elementHeader) error {
		var err error
		switch c.id {
		case IDBlock:
			payload, err = p.payload(c)
		case IDBlockDuration:
			duration, err = p.readUint(c)
		case IDReferenceBlock:
			referenced = true
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, &BlockError{Offset: h.start, Reason: "block group without block"}
	}
	track, rel, _, frames, err := parseBlockPayload(payload, h.start)
	if err != nil {
		return nil, err
	}
	return &Block{
		Track:    track,
		Time:     p.blockTime(rel),
		Duration: p.scale(int64(duration)),
		Keyframe: !referenced,
		Frames:   frames,
		Offset:   h.start,
	}, nil
}

// SeekTo positions the parser at the cluster starting at offset.
func (p *Parser) SeekTo(offset int64) error {
	p.peeked = nil
	p.cluster = clusterState{}
	return p.r.seek(offset)
}

func (p *Parser) blockTime(rel int16) time.Duration {
	t := p.scale(p.cluster.timecode + int64(rel))
	if t < 0 {
		return 0
	}
	return t
}

func (p *Parser) scale(units int64) time.Duration {
	return time.Duration(units * int64(p.timecodeScale))
}

// eachChild calls fn for every child of parent and leaves the reader just
// past each child whether or not fn consumed it.
func (p *Parser) eachChild(parent elementHeader, fn func(elementHeader) error) error {
	end := parent.end()
	if end < 0 {
		return corruptf(parent.start, "unknown size for element 0x%X", parent.id)
	}
	for p.r.pos < end {
		c, err := p.r.readHeader()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		if c.size == unknownSize || c.end() > end {
			return corruptf(c.start, "element 0x%X overruns parent 0x%X", c.id, parent.id)
		}
		if err := fn(c); err != nil {
			return err
		}
		switch {
		case p.r.pos < c.end():
			if err := p.r.skip(uint64(c.end() - p.r.pos)); err != nil {
				return err
			}
		case p.r.pos > c.end():
			return corruptf(c.start, "element 0x%X read past its end", c.id)
		}
	}
	return nil
}

func (p *Parser) payload(h elementHeader) ([]byte, error) {
	return p.r.readN(h.size)
}

func (p *Parser) readUint(h elementHeader) (uint64, error) {
	b, err := p.payload(h)
	if err != nil {
		return 0, err
	}
	v, ok := decodeUint(b)
	if !ok {
		return 0, corruptf(h.start, "integer of %d bytes", len(b))
	}
	return v, nil
}

func (p *Parser) readString(h elementHeader) (string, error) {
	b, err := p.payload(h)
	if err != nil {
		return "", err
	}
	return decodeString(b), nil
}

func (p *Parser) classify(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return err
}

func (p *Parser) DocType() string { return p.docType }

func (p *Parser) Tracks() []TrackInfo { return p.tracks }

// Track returns the track with the given number.
func (p *Parser) Track(number uint64) (TrackInfo, bool) {
	for _, t := range p.tracks {
		if t.Number == number {
			return t, true
		}
	}
	return TrackInfo{}, false
}

func (p *Parser) Duration() time.Duration {
	return time.Duration(p.duration * float64(p.timecodeScale))
}

func (p *Parser) TimecodeScale() uint64 { return p.timecodeScale }

func (p *Parser) Title() string { return p.title }

// Tags returns SimpleTag values keyed by upper-cased tag name.
func (p *Parser) Tags() map[string]string { return p.tags }

// FirstCluster returns the offset of the first Cluster, or -1 if the
// segment has none.
func (p *Parser) FirstCluster() int64 { return p.firstCluster }

func (p *Parser) Cues() *CueIndex { return p.cues }

func (p *Parser) Clusters() *ClusterIndex { return p.clusters }
