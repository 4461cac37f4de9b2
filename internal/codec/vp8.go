package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/vp8"
)

var errNoReference = errors.New("vp8: inter frame before first keyframe")

// VP8 decodes keyframes in full. Inter frames are shown as duplicates of
// the last keyframe, since the decoder underneath only reconstructs
// intra frames.
type VP8 struct {
	dec *vp8.Decoder
	ref *image.YCbCr
}

func NewVP8() *VP8 {
	return &VP8{dec: vp8.NewDecoder()}
}

func (v *VP8) Decode(frame []byte, keyframe bool) (*Picture, error) {
	if isVP8Keyframe(frame) {
		img, err := v.decodeKeyframe(frame)
		if err != nil {
			return nil, err
		}
		return &Picture{Image: img, Keyframe: true}, nil
	}
	if v.ref == nil {
		return nil, Recoverable(errNoReference)
	}
	return &Picture{Image: v.ref, Duplicate: true}, nil
}

func (v *VP8) Skip(frame []byte, keyframe bool) error {
	if !isVP8Keyframe(frame) {
		return nil
	}
	_, err := v.decodeKeyframe(frame)
	return err
}

func (v *VP8) decodeKeyframe(frame []byte) (*image.YCbCr, error) {
	v.dec.Init(bytes.NewReader(frame), len(frame))
	fh, err := v.dec.DecodeFrameHeader()
	if err != nil {
		return nil, Recoverable(fmt.Errorf("vp8: frame header: %w", err))
	}
	if !fh.KeyFrame {
		return nil, Recoverable(fmt.Errorf("vp8: expected keyframe"))
	}
	img, err := v.dec.DecodeFrame()
	if err != nil {
		return nil, Recoverable(fmt.Errorf("vp8: frame: %w", err))
	}
	// The decoder reuses its image between frames.
	v.ref = cloneYCbCr(img)
	return v.ref, nil
}

func (v *VP8) Reset() error {
	v.ref = nil
	return nil
}

func (v *VP8) Close() error {
	v.ref = nil
	return nil
}

// isVP8Keyframe reads the frame type bit of the uncompressed header.
func isVP8Keyframe(frame []byte) bool {
	return len(frame) >= 3 && frame[0]&1 == 0
}

func cloneYCbCr(src *image.YCbCr) *image.YCbCr {
	dst := &image.YCbCr{
		Y:              bytes.Clone(src.Y),
		Cb:             bytes.Clone(src.Cb),
		Cr:             bytes.Clone(src.Cr),
		YStride:        src.YStride,
		CStride:        src.CStride,
		SubsampleRatio: src.SubsampleRatio,
		Rect:           src.Rect,
	}
	return dst
}
