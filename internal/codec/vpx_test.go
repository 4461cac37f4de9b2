package codec

import (
	"errors"
	"image"
	"testing"
)

// fakeVPX hands out one queued picture per decode.
type fakeVPX struct {
	pictures [][]*vpxImage
	pending  []*vpxImage
	decodes  int
	closed   bool
	err      error
}

func (f *fakeVPX) decode([]byte) error {
	if f.err != nil {
		return f.err
	}
	f.pending = nil
	if f.decodes < len(f.pictures) {
		f.pending = f.pictures[f.decodes]
	}
	f.decodes++
	return nil
}

func (f *fakeVPX) nextFrame() *vpxImage {
	if len(f.pending) == 0 {
		return nil
	}
	img := f.pending[0]
	f.pending = f.pending[1:]
	return img
}

func (f *fakeVPX) close() { f.closed = true }

// planeImage builds a 4x2 I420 picture whose rows are padded to stride 8.
func planeImage(y, cb, cr byte) (*vpxImage, [][]byte) {
	const stride = 8
	planes := [][]byte{make([]byte, stride*2), make([]byte, stride), make([]byte, stride)}
	for i := range planes[0] {
		planes[0][i] = y + byte(i)
	}
	for i := range planes[1] {
		planes[1][i] = cb
		planes[2][i] = cr
	}
	img := &vpxImage{fmt: 0x102, dw: 4, dh: 2, xChromaShift: 1, yChromaShift: 1}
	for i, p := range planes {
		img.planes[i] = &p[0]
		img.stride[i] = stride
	}
	return img, planes
}

func newFakeVPX(t *testing.T, f *fakeVPX) *VPX {
	t.Helper()
	v, err := newVPX(IDVP8, func() (vpxContext, error) { return f, nil })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return v
}

func TestVPXInterFramesAreDecoded(t *testing.T) {
	key, keyPlanes := planeImage(10, 100, 200)
	inter, interPlanes := planeImage(50, 110, 210)
	f := &fakeVPX{pictures: [][]*vpxImage{{key}, {inter}}}
	v := newFakeVPX(t, f)

	first, err := v.Decode([]byte{0x00, 0x01, 0x02}, true)
	if err != nil {
		t.Fatalf("expected keyframe to decode, got %v", err)
	}
	second, err := v.Decode([]byte{0x01, 0x01, 0x02}, false)
	if err != nil {
		t.Fatalf("expected inter frame to decode, got %v", err)
	}
	if second.Duplicate || second.Keyframe {
		t.Fatalf("expected a new non-key picture, got duplicate=%v keyframe=%v", second.Duplicate, second.Keyframe)
	}
	if !first.Keyframe || first.Duplicate {
		t.Fatalf("expected a keyframe picture, got %+v", first)
	}
	if second.Image == first.Image {
		t.Fatal("expected inter frame to produce its own image")
	}
	if got := second.Image.Bounds(); got != image.Rect(0, 0, 4, 2) {
		t.Fatalf("expected 4x2 picture, got %v", got)
	}
	if second.Image.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		t.Fatalf("expected 4:2:0, got %v", second.Image.SubsampleRatio)
	}
	// Row 1 starts at index 8 in the padded source.
	if second.Image.Y[0] != 50 || second.Image.Y[4] != 58 || second.Image.Cb[0] != 110 || second.Image.Cr[1] != 210 {
		t.Fatalf("unexpected plane copy: Y=%v Cb=%v Cr=%v", second.Image.Y, second.Image.Cb, second.Image.Cr)
	}

	// The picture must not alias decoder memory.
	interPlanes[0][0] = 0
	keyPlanes[0][0] = 0
	if second.Image.Y[0] != 50 || first.Image.Y[0] != 10 {
		t.Fatal("expected pictures to be copied out of decoder memory")
	}
}

func TestVPXHiddenFrameRepeatsLastPicture(t *testing.T) {
	key, _ := planeImage(10, 100, 200)
	f := &fakeVPX{pictures: [][]*vpxImage{nil, {key}, nil}}
	v := newFakeVPX(t, f)

	if _, err := v.Decode([]byte{1}, false); err == nil || IsFatal(err) {
		t.Fatalf("expected recoverable error before any picture, got %v", err)
	}
	first, err := v.Decode([]byte{1}, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	hidden, err := v.Decode([]byte{1}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !hidden.Duplicate || hidden.Image != first.Image {
		t.Fatalf("expected hidden frame to repeat the last picture, got %+v", hidden)
	}
}

func TestVPXSkipKeepsDecoding(t *testing.T) {
	key, _ := planeImage(10, 100, 200)
	inter, _ := planeImage(50, 110, 210)
	f := &fakeVPX{pictures: [][]*vpxImage{{key}, {inter}}}
	v := newFakeVPX(t, f)

	if err := v.Skip([]byte{1}, true); err != nil {
		t.Fatalf("expected skip to succeed, got %v", err)
	}
	pic, err := v.Decode([]byte{1}, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.decodes != 2 || pic.Duplicate || pic.Image.Y[0] != 50 {
		t.Fatalf("expected skipped frame to reach the decoder, got %d decodes, %+v", f.decodes, pic)
	}
}

func TestVPXResetReopens(t *testing.T) {
	var opened []*fakeVPX
	v, err := newVPX(IDVP9, func() (vpxContext, error) {
		f := &fakeVPX{}
		opened = append(opened, f)
		return f, nil
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := v.Reset(); err != nil {
		t.Fatalf("expected reset to succeed, got %v", err)
	}
	if len(opened) != 2 || !opened[0].closed || opened[1].closed {
		t.Fatalf("expected the first context closed and a second opened, got %d", len(opened))
	}
	v.Close()
	if !opened[1].closed {
		t.Fatal("expected close to release the context")
	}
	if _, err := v.Decode([]byte{1}, true); !IsFatal(err) {
		t.Fatalf("expected fatal error after close, got %v", err)
	}
}

func TestVPXRejectsBadPictures(t *testing.T) {
	high, _ := planeImage(0, 0, 0)
	high.fmt |= vpxImgFmtHighBitDepth
	narrow, _ := planeImage(0, 0, 0)
	narrow.stride[1] = 1
	f := &fakeVPX{pictures: [][]*vpxImage{{high}, {narrow}}}
	v := newFakeVPX(t, f)

	for i := 0; i < 2; i++ {
		if _, err := v.Decode([]byte{1}, true); err == nil || IsFatal(err) {
			t.Fatalf("picture %d: expected recoverable error, got %v", i, err)
		}
	}
	if _, err := v.Decode(nil, true); err == nil || IsFatal(err) {
		t.Fatalf("expected recoverable error for an empty frame, got %v", err)
	}
	f.err = Fatal(errors.New("boom"))
	if _, err := v.Decode([]byte{1}, true); !IsFatal(err) {
		t.Fatalf("expected backend error to pass through, got %v", err)
	}
}

func TestLibvpxRejectsGarbage(t *testing.T) {
	if !VPXAvailable() {
		t.Skip("libvpx not available")
	}
	for _, id := range []string{IDVP8, IDVP9} {
		v, err := NewVPX(id)
		if err != nil {
			t.Fatalf("%s: expected decoder, got %v", id, err)
		}
		if _, err := v.Decode([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, false); err == nil || IsFatal(err) {
			t.Fatalf("%s: expected recoverable error, got %v", id, err)
		}
		if err := v.Reset(); err != nil {
			t.Fatalf("%s: expected reset to succeed, got %v", id, err)
		}
		v.Close()
	}
}
