package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	opusRate = 48000
	// opusMaxFrame is 120 ms at 48 kHz, the longest packet Opus allows.
	opusMaxFrame = 5760
)

// OpusHead is the identification header carried in A_OPUS CodecPrivate.
type OpusHead struct {
	Version       uint8
	Channels      int
	PreSkip       int
	InputRate     uint32
	OutputGain    int16
	MappingFamily uint8
}

var errBadOpusHead = errors.New("opus: malformed OpusHead")

func ParseOpusHead(b []byte) (OpusHead, error) {
	if len(b) < 19 || string(b[:8]) != "OpusHead" {
		return OpusHead{}, errBadOpusHead
	}
	h := OpusHead{
		Version:       b[8],
		Channels:      int(b[9]),
		PreSkip:       int(binary.LittleEndian.Uint16(b[10:12])),
		InputRate:     binary.LittleEndian.Uint32(b[12:16]),
		OutputGain:    int16(binary.LittleEndian.Uint16(b[16:18])),
		MappingFamily: b[18],
	}
	if h.Version>>4 != 0 || h.Channels == 0 {
		return OpusHead{}, errBadOpusHead
	}
	return h, nil
}

// opusBackend is the libopus decoder state.
type opusBackend interface {
	decode(packet []byte, pcm []float32) (int, error)
	reset() error
	close()
}

// Opus decodes A_OPUS tracks at 48 kHz.
type Opus struct {
	head    OpusHead
	backend opusBackend
	gain    float32
	skip    int
	pcm     []float32
}

// NewOpus parses the OpusHead and opens a libopus decoder. Channel mapping
// families other than 0 need the multistream API and are not supported.
func NewOpus(private []byte) (*Opus, error) {
	head, err := ParseOpusHead(private)
	if err != nil {
		return nil, err
	}
	if head.MappingFamily != 0 || head.Channels > 2 {
		return nil, fmt.Errorf("%w: opus mapping family %d with %d channels", ErrUnsupported, head.MappingFamily, head.Channels)
	}
	backend, err := newLibopusDecoder(head.Channels)
	if err != nil {
		return nil, err
	}
	return newOpus(head, backend), nil
}

func newOpus(head OpusHead, backend opusBackend) *Opus {
	o := &Opus{
		head:    head,
		backend: backend,
		gain:    1,
		skip:    head.PreSkip,
		pcm:     make([]float32, opusMaxFrame*head.Channels),
	}
	if head.OutputGain != 0 {
		o.gain = float32(math.Pow(10, float64(head.OutputGain)/(20*256)))
	}
	return o
}

func (o *Opus) Decode(packet []byte) ([]float32, error) {
	frames, err := o.backend.decode(packet, o.pcm)
	if err != nil {
		return nil, err
	}
	ch := o.head.Channels
	start := 0
	if o.skip > 0 {
		start = min(o.skip, frames)
		o.skip -= start
	}
	out := make([]float32, (frames-start)*ch)
	copy(out, o.pcm[start*ch:frames*ch])
	if o.gain != 1 {
		for i := range out {
			out[i] *= o.gain
		}
	}
	return out, nil
}

// Reset clears decoder state. Pre-skip applies only at the stream start,
// so it is not re-armed here.
func (o *Opus) Reset() error {
	o.skip = 0
	return o.backend.reset()
}

func (o *Opus) SampleRate() int { return opusRate }

func (o *Opus) Channels() int { return o.head.Channels }

func (o *Opus) Head() OpusHead { return o.head }

func (o *Opus) Close() error {
	o.backend.close()
	return nil
}

// libopus error codes.
const (
	opusBadArg         = -1
	opusBufferTooSmall = -2
	opusInternalError  = -3
	opusInvalidPacket  = -4
	opusUnimplemented  = -5
	opusInvalidState   = -6
	opusAllocFail      = -7
)

func classifyOpusError(code int32, msg string) error {
	err := fmt.Errorf("opus: %s (%d)", msg, code)
	switch code {
	case opusBadArg, opusBufferTooSmall, opusInvalidPacket:
		return Recoverable(err)
	}
	return Fatal(err)
}
