package codec

import (
	"fmt"

	"github.com/jfreymuth/vorbis"
)

// Vorbis decodes A_VORBIS tracks.
type Vorbis struct {
	dec     vorbis.Decoder
	headers [][]byte
}

// NewVorbis reads the identification, comment and setup headers from the
// track's CodecPrivate data.
func NewVorbis(private []byte) (*Vorbis, error) {
	headers, err := splitXiphHeaders(private)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}
	if len(headers) != 3 {
		return nil, fmt.Errorf("vorbis: expected 3 header packets, got %d", len(headers))
	}
	v := &Vorbis{headers: headers}
	if err := v.readHeaders(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vorbis) readHeaders() error {
	for i, h := range v.headers {
		if err := v.dec.ReadHeader(h); err != nil {
			return fmt.Errorf("vorbis: header %d: %w", i, err)
		}
	}
	if !v.dec.HeadersRead() {
		return fmt.Errorf("vorbis: incomplete headers")
	}
	return nil
}

func (v *Vorbis) Decode(packet []byte) ([]float32, error) {
	out, err := v.dec.Decode(packet)
	if err != nil {
		return nil, Recoverable(fmt.Errorf("vorbis: %w", err))
	}
	samples := make([]float32, len(out))
	copy(samples, out)
	return samples, nil
}

// Reset forgets the overlap with the previous packet.
func (v *Vorbis) Reset() error {
	v.dec.Clear()
	return nil
}

func (v *Vorbis) SampleRate() int { return v.dec.SampleRate() }

func (v *Vorbis) Channels() int { return v.dec.Channels() }

func (v *Vorbis) Close() error { return nil }
