// Package webmtest builds small synthetic WebM files for tests.
package webmtest

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"

	"github.com/olivier-w/webmplay/internal/webm"
)

// ID encodes an element ID, which already carries its marker bits.
func ID(id uint32) []byte {
	switch {
	case id >= 1<<24:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	case id >= 1<<16:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	case id >= 1<<8:
		return []byte{byte(id >> 8), byte(id)}
	}
	return []byte{byte(id)}
}

// Size encodes n as the shortest VINT that holds it.
func Size(n int) []byte {
	v := uint64(n)
	for length := 1; length <= 8; length++ {
		if v < 1<<(7*length)-1 {
			out := make([]byte, length)
			for i := length - 1; i >= 0; i-- {
				out[i] = byte(v)
				v >>= 8
			}
			out[0] |= 0x80 >> (length - 1)
			return out
		}
	}
	panic("webmtest: size too large")
}

// UnknownSize is the one-byte "size unknown" marker.
var UnknownSize = []byte{0xFF}

func Element(id uint32, children ...[]byte) []byte {
	payload := bytes.Join(children, nil)
	out := append(ID(id), Size(len(payload))...)
	return append(out, payload...)
}

// UnknownSizeElement writes a master element whose size is left open.
func UnknownSizeElement(id uint32, children ...[]byte) []byte {
	out := append(ID(id), UnknownSize...)
	return append(out, bytes.Join(children, nil)...)
}

func Uint(id uint32, v uint64) []byte {
	var b []byte
	for v > 0 {
		b = append([]byte{byte(v)}, b...)
		v >>= 8
	}
	if len(b) == 0 {
		b = []byte{0}
	}
	return Element(id, b)
}

// Uint64 writes v with a fixed 8-byte payload, for positions patched later.
func Uint64(id uint32, v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return Element(id, b)
}

func Float(id uint32, v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return Element(id, b)
}

func String(id uint32, s string) []byte {
	return Element(id, []byte(s))
}

func Binary(id uint32, b []byte) []byte {
	return Element(id, b)
}

// BlockPayload builds a (Simple)Block body. More than one frame is Xiph
// laced.
func BlockPayload(track uint64, timecode int16, flags byte, frames ...[]byte) []byte {
	out := append(Size(int(track)), byte(uint16(timecode)>>8), byte(timecode))
	if len(frames) > 1 {
		flags |= 0x02
	}
	out = append(out, flags)
	if len(frames) > 1 {
		out = append(out, byte(len(frames)-1))
		for _, f := range frames[:len(frames)-1] {
			n := len(f)
			for n >= 255 {
				out = append(out, 0xFF)
				n -= 255
			}
			out = append(out, byte(n))
		}
	}
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

func SimpleBlock(track uint64, timecode int16, keyframe bool, frames ...[]byte) []byte {
	var flags byte
	if keyframe {
		flags = 0x80
	}
	return Element(webm.IDSimpleBlock, BlockPayload(track, timecode, flags, frames...))
}

// BlockGroup writes a Block with an optional ReferenceBlock, which marks it
// as a non-keyframe, and an optional BlockDuration.
func BlockGroup(track uint64, timecode int16, referenced bool, duration uint64, frame []byte) []byte {
	children := [][]byte{Element(webm.IDBlock, BlockPayload(track, timecode, 0, frame))}
	if referenced {
		children = append(children, Uint(webm.IDReferenceBlock, 1))
	}
	if duration > 0 {
		children = append(children, Uint(webm.IDBlockDuration, duration))
	}
	return Element(webm.IDBlockGroup, children...)
}

type Track struct {
	Number          uint64
	Type            webm.TrackType
	CodecID         string
	CodecPrivate    []byte
	DefaultDuration uint64
	SampleRate      float64
	Channels        uint64
	Width           uint64
	Height          uint64
}

func (t Track) bytes() []byte {
	children := [][]byte{
		Uint(webm.IDTrackNumber, t.Number),
		Uint(webm.IDTrackType, uint64(t.Type)),
		String(webm.IDCodecID, t.CodecID),
	}
	if t.CodecPrivate != nil {
		children = append(children, Binary(webm.IDCodecPrivate, t.CodecPrivate))
	}
	if t.DefaultDuration > 0 {
		children = append(children, Uint(webm.IDDefaultDuration, t.DefaultDuration))
	}
	switch t.Type {
	case webm.TrackAudio:
		children = append(children, Element(webm.IDAudio,
			Float(webm.IDSamplingFrequency, t.SampleRate),
			Uint(webm.IDChannels, t.Channels),
		))
	case webm.TrackVideo:
		children = append(children, Element(webm.IDVideo,
			Uint(webm.IDPixelWidth, t.Width),
			Uint(webm.IDPixelHeight, t.Height),
		))
	}
	return Element(webm.IDTrackEntry, children...)
}

// Cluster holds pre-encoded SimpleBlock or BlockGroup elements.
type Cluster struct {
	Timecode uint64
	Blocks   [][]byte
}

// File describes a whole WebM file. Times are in milliseconds with the
// default timecode scale.
type File struct {
	DocType  string
	Duration float64
	Title    string
	Tags     map[string]string
	Tracks   []Track
	Clusters []Cluster
	// Cues adds one cue per cluster after the clusters, found through a
	// SeekHead at the start of the segment.
	Cues     bool
	CueTrack uint64
}

// Layout reports where the clusters of the last built file were placed.
type Layout struct {
	ClusterOffsets []int64
	CuesOffset     int64
	Size           int64
}

func (f File) Bytes() []byte {
	b, _ := f.Build()
	return b
}

// Build encodes the file and returns the absolute offsets of its parts.
func (f File) Build() ([]byte, Layout) {
	docType := f.DocType
	if docType == "" {
		docType = "webm"
	}
	header := Element(webm.IDEBML,
		Uint(webm.IDEBMLVersion, 1),
		Uint(webm.IDEBMLReadVersion, 1),
		String(webm.IDDocType, docType),
		Uint(webm.IDDocTypeVersion, 4),
		Uint(webm.IDDocTypeReadVersion, 2),
	)

	info := [][]byte{Uint(webm.IDTimecodeScale, 1000000)}
	if f.Duration > 0 {
		info = append(info, Float(webm.IDDuration, f.Duration))
	}
	if f.Title != "" {
		info = append(info, String(webm.IDTitle, f.Title))
	}
	head := Element(webm.IDInfo, info...)

	var tracks [][]byte
	for _, t := range f.Tracks {
		tracks = append(tracks, t.bytes())
	}
	head = append(head, Element(webm.IDTracks, tracks...)...)

	if len(f.Tags) > 0 {
		names := make([]string, 0, len(f.Tags))
		for name := range f.Tags {
			names = append(names, name)
		}
		sort.Strings(names)
		var simple [][]byte
		for _, name := range names {
			simple = append(simple, Element(webm.IDSimpleTag,
				String(webm.IDTagName, name),
				String(webm.IDTagString, f.Tags[name]),
			))
		}
		head = append(head, Element(webm.IDTags, Element(webm.IDTag, simple...))...)
	}

	// The SeekHead has a fixed size, so it can be written before the cue
	// position is known.
	seekHead := func(pos uint64) []byte {
		return Element(webm.IDSeekHead, Element(webm.IDSeek,
			Binary(webm.IDSeekID, ID(webm.IDCues)),
			Uint64(webm.IDSeekPosition, pos),
		))
	}
	var prefix []byte
	if f.Cues {
		prefix = seekHead(0)
	}

	var clusters []byte
	var relOffsets []int64
	base := int64(len(prefix) + len(head))
	for _, c := range f.Clusters {
		relOffsets = append(relOffsets, base+int64(len(clusters)))
		children := append([][]byte{Uint(webm.IDTimecode, c.Timecode)}, c.Blocks...)
		clusters = append(clusters, Element(webm.IDCluster, children...)...)
	}

	var cues []byte
	cuesRel := base + int64(len(clusters))
	if f.Cues {
		prefix = seekHead(uint64(cuesRel))
		var points [][]byte
		for i, c := range f.Clusters {
			points = append(points, Element(webm.IDCuePoint,
				Uint(webm.IDCueTime, c.Timecode),
				Element(webm.IDCueTrackPositions,
					Uint(webm.IDCueTrack, f.CueTrack),
					Uint(webm.IDCueClusterPosition, uint64(relOffsets[i])),
				),
			))
		}
		cues = Element(webm.IDCues, points...)
	}

	body := bytes.Join([][]byte{prefix, head, clusters, cues}, nil)
	segHeader := append(ID(webm.IDSegment), Size(len(body))...)
	segData := int64(len(header) + len(segHeader))

	layout := Layout{CuesOffset: -1}
	for _, off := range relOffsets {
		layout.ClusterOffsets = append(layout.ClusterOffsets, segData+off)
	}
	if f.Cues {
		layout.CuesOffset = segData + cuesRel
	}

	out := bytes.Join([][]byte{header, segHeader, body}, nil)
	layout.Size = int64(len(out))
	return out, layout
}
