// Package codec wraps the audio and video decoders a WebM stream can need
// behind small interfaces, and classifies their failures.
package codec

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// Matroska codec IDs.
const (
	IDVorbis = "A_VORBIS"
	IDOpus   = "A_OPUS"
	IDVP8    = "V_VP8"
	IDVP9    = "V_VP9"
)

// ErrUnsupported is returned by a Factory for codecs it cannot decode. The
// track is skipped rather than failing the whole stream.
var ErrUnsupported = errors.New("codec: unsupported")

// DecodeError carries the decision of a backend about whether decoding
// can continue after a failure.
type DecodeError struct {
	Fatal bool
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("fatal decode error: %v", e.Err)
	}
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Recoverable marks err as affecting only the current packet.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Err: err}
}

// Fatal marks err as leaving the decoder unusable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Fatal: true, Err: err}
}

// IsFatal reports whether decoding must stop after err. Errors a backend
// did not classify are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Fatal
	}
	return true
}

// AudioParams is what a decoder needs to know about an audio track.
type AudioParams struct {
	CodecID    string
	Private    []byte
	SampleRate int
	Channels   int
	CodecDelay time.Duration
}

// VideoParams is what a decoder needs to know about a video track.
type VideoParams struct {
	CodecID string
	Width   int
	Height  int
}

// AudioDecoder turns compressed packets into interleaved float32 PCM.
type AudioDecoder interface {
	// Decode returns frames × channels samples owned by the caller. It may
	// return no samples for packets that only prime the decoder.
	Decode(packet []byte) ([]float32, error)
	// Reset discards inter-packet state, for use after a seek.
	Reset() error
	SampleRate() int
	Channels() int
	Close() error
}

// Picture is one decoded video frame.
type Picture struct {
	Image    *image.YCbCr
	Keyframe bool
	// Duplicate is set when the backend could not reconstruct the frame
	// and repeated the last reference picture instead.
	Duplicate bool
}

// VideoDecoder turns compressed frames into pictures.
type VideoDecoder interface {
	Decode(frame []byte, keyframe bool) (*Picture, error)
	// Skip consumes a frame that will not be shown, doing only the work
	// needed to keep later frames decodable.
	Skip(frame []byte, keyframe bool) error
	Reset() error
	Close() error
}

// Factory creates decoders for tracks.
type Factory interface {
	NewAudioDecoder(AudioParams) (AudioDecoder, error)
	NewVideoDecoder(VideoParams) (VideoDecoder, error)
}

// Default decodes Vorbis and Opus, plus VP8 and VP9 when libvpx can be
// loaded. Without libvpx, VP8 falls back to a keyframe-only decoder.
var Default Factory = defaultFactory{}

type defaultFactory struct{}

func (defaultFactory) NewAudioDecoder(p AudioParams) (AudioDecoder, error) {
	switch p.CodecID {
	case IDVorbis:
		return NewVorbis(p.Private)
	case IDOpus:
		return NewOpus(p.Private)
	}
	return nil, fmt.Errorf("%w: audio codec %q", ErrUnsupported, p.CodecID)
}

func (defaultFactory) NewVideoDecoder(p VideoParams) (VideoDecoder, error) {
	switch p.CodecID {
	case IDVP8, IDVP9:
		dec, err := NewVPX(p.CodecID)
		if p.CodecID == IDVP8 && errors.Is(err, ErrUnsupported) {
			return NewVP8(), nil
		}
		if err != nil {
			return nil, err
		}
		return dec, nil
	}
	return nil, fmt.Errorf("%w: video codec %q", ErrUnsupported, p.CodecID)
}
