package webm

import "time"

// TrackType is the Matroska TrackType value.
type TrackType uint8

const (
	TrackVideo    TrackType = 1
	TrackAudio    TrackType = 2
	TrackComplex  TrackType = 3
	TrackSubtitle TrackType = 0x11
)

func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	case TrackComplex:
		return "complex"
	case TrackSubtitle:
		return "subtitle"
	}
	return "unknown"
}

// TrackInfo describes one TrackEntry.
type TrackInfo struct {
	Number          uint64
	Type            TrackType
	Enabled         bool
	CodecID         string
	CodecPrivate    []byte
	Name            string
	Language        string
	DefaultDuration time.Duration
	CodecDelay      time.Duration
	SeekPreRoll     time.Duration
	// Encoded is set when ContentEncodings are present. Encrypted or
	// compressed tracks cannot be handed to a codec as-is.
	Encoded bool

	SampleRate float64
	Channels   int
	BitDepth   int

	PixelWidth    int
	PixelHeight   int
	DisplayWidth  int
	DisplayHeight int
}

func newTrackInfo() TrackInfo {
	return TrackInfo{
		Enabled:    true,
		Language:   "eng",
		SampleRate: 8000,
		Channels:   1,
	}
}
