package codec

import (
	"errors"
	"fmt"
	"image"
	"unsafe"
)

var errNoPicture = errors.New("vpx: no picture decoded yet")

// vpxImage mirrors the leading fields of vpx_image_t.
type vpxImage struct {
	fmt          int32
	cs           int32
	colorRange   int32
	w            uint32
	h            uint32
	bitDepth     uint32
	dw           uint32
	dh           uint32
	rw           uint32
	rh           uint32
	xChromaShift uint32
	yChromaShift uint32
	planes       [4]*byte
	stride       [4]int32
}

const (
	vpxImgFmtHighBitDepth = 0x800
	maxPictureDimension   = 16384
)

// vpxContext is one libvpx decoder instance.
type vpxContext interface {
	decode(frame []byte) error
	// nextFrame returns the next picture produced by the last decode, or
	// nil. The image is only valid until the next decode.
	nextFrame() *vpxImage
	close()
}

// VPX decodes VP8 and VP9 through libvpx. Every shown frame, inter frames
// included, is reconstructed. Frames libvpx decodes without showing
// repeat the last picture as a duplicate.
type VPX struct {
	codecID string
	open    func() (vpxContext, error)
	ctx     vpxContext
	last    *image.YCbCr
}

// NewVPX opens a libvpx decoder for codecID, which must be IDVP8 or IDVP9.
// It returns an error wrapping ErrUnsupported when libvpx is not present.
func NewVPX(codecID string) (*VPX, error) {
	if codecID != IDVP8 && codecID != IDVP9 {
		return nil, fmt.Errorf("%w: vpx codec %q", ErrUnsupported, codecID)
	}
	return newVPX(codecID, func() (vpxContext, error) { return openLibvpx(codecID) })
}

func newVPX(codecID string, open func() (vpxContext, error)) (*VPX, error) {
	ctx, err := open()
	if err != nil {
		return nil, err
	}
	return &VPX{codecID: codecID, open: open, ctx: ctx}, nil
}

func (v *VPX) Decode(frame []byte, keyframe bool) (*Picture, error) {
	if err := v.decode(frame); err != nil {
		return nil, err
	}
	var img *image.YCbCr
	for f := v.ctx.nextFrame(); f != nil; f = v.ctx.nextFrame() {
		var err error
		if img, err = copyVPXImage(f); err != nil {
			return nil, Recoverable(err)
		}
	}
	if img == nil {
		if v.last == nil {
			return nil, Recoverable(errNoPicture)
		}
		return &Picture{Image: v.last, Keyframe: keyframe, Duplicate: true}, nil
	}
	v.last = img
	return &Picture{Image: img, Keyframe: keyframe}, nil
}

// Skip decodes the frame so later frames keep their references, without
// copying the picture out.
func (v *VPX) Skip(frame []byte, keyframe bool) error {
	if err := v.decode(frame); err != nil {
		return err
	}
	for v.ctx.nextFrame() != nil {
	}
	return nil
}

func (v *VPX) decode(frame []byte) error {
	if v.ctx == nil {
		return Fatal(fmt.Errorf("vpx: %s decoder closed", v.codecID))
	}
	if len(frame) == 0 {
		return Recoverable(errors.New("vpx: empty frame"))
	}
	return v.ctx.decode(frame)
}

// Reset reopens the decoder. libvpx has no flush for decoder state.
func (v *VPX) Reset() error {
	v.last = nil
	if v.ctx != nil {
		v.ctx.close()
		v.ctx = nil
	}
	ctx, err := v.open()
	if err != nil {
		return Fatal(err)
	}
	v.ctx = ctx
	return nil
}

func (v *VPX) Close() error {
	v.last = nil
	if v.ctx != nil {
		v.ctx.close()
		v.ctx = nil
	}
	return nil
}

func chromaRatio(xs, ys uint32) (image.YCbCrSubsampleRatio, bool) {
	switch {
	case xs == 1 && ys == 1:
		return image.YCbCrSubsampleRatio420, true
	case xs == 1 && ys == 0:
		return image.YCbCrSubsampleRatio422, true
	case xs == 0 && ys == 0:
		return image.YCbCrSubsampleRatio444, true
	case xs == 0 && ys == 1:
		return image.YCbCrSubsampleRatio440, true
	}
	return 0, false
}

// copyVPXImage copies a decoder-owned picture into Go memory.
func copyVPXImage(f *vpxImage) (*image.YCbCr, error) {
	if f.fmt&vpxImgFmtHighBitDepth != 0 {
		return nil, fmt.Errorf("vpx: %d-bit pictures are not supported", f.bitDepth)
	}
	ratio, ok := chromaRatio(f.xChromaShift, f.yChromaShift)
	if !ok {
		return nil, fmt.Errorf("vpx: chroma shift %d,%d", f.xChromaShift, f.yChromaShift)
	}
	w, h := int(f.dw), int(f.dh)
	if w <= 0 || h <= 0 || w > maxPictureDimension || h > maxPictureDimension {
		return nil, fmt.Errorf("vpx: picture size %dx%d", w, h)
	}
	cw := (w + int(f.xChromaShift)) >> f.xChromaShift
	ch := (h + int(f.yChromaShift)) >> f.yChromaShift
	for i := 0; i < 3; i++ {
		pw := w
		if i > 0 {
			pw = cw
		}
		if f.planes[i] == nil || int(f.stride[i]) < pw {
			return nil, fmt.Errorf("vpx: plane %d has stride %d for width %d", i, f.stride[i], pw)
		}
	}

	img := image.NewYCbCr(image.Rect(0, 0, w, h), ratio)
	copyPlane(img.Y, img.YStride, f.planes[0], int(f.stride[0]), w, h)
	copyPlane(img.Cb, img.CStride, f.planes[1], int(f.stride[1]), cw, ch)
	copyPlane(img.Cr, img.CStride, f.planes[2], int(f.stride[2]), cw, ch)
	return img, nil
}

func copyPlane(dst []byte, dstStride int, src *byte, srcStride, w, h int) {
	plane := unsafe.Slice(src, srcStride*(h-1)+w)
	for row := 0; row < h; row++ {
		copy(dst[row*dstStride:row*dstStride+w], plane[row*srcStride:row*srcStride+w])
	}
}
