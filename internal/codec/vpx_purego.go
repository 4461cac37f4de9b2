//go:build darwin || linux

package codec

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// vpxDecoderABIVersion is VPX_DECODER_ABI_VERSION for libvpx 1.8 and later.
const vpxDecoderABIVersion = 3 + 4 + 5

// vpx_codec_err_t values.
const (
	vpxCodecOK          = 0
	vpxCodecMemError    = 2
	vpxCodecABIMismatch = 3
	vpxCodecIncapable   = 4
)

// vpxCodecCtx mirrors vpx_codec_ctx_t. libvpx fills it in and only stores
// pointers to its own memory.
type vpxCodecCtx struct {
	name      uintptr
	iface     uintptr
	err       int32
	_         int32
	errDetail uintptr
	initFlags int
	config    uintptr
	priv      uintptr
}

var (
	libvpxOnce    sync.Once
	libvpxInitErr error

	vpxCodecVP8Dx      func() uintptr
	vpxCodecVP9Dx      func() uintptr
	vpxCodecDecInitVer func(ctx uintptr, iface uintptr, cfg uintptr, flags int, ver int32) int32
	vpxCodecDecode     func(ctx uintptr, data uintptr, size uint32, userPriv uintptr, deadline int) int32
	vpxCodecGetFrame   func(ctx uintptr, iter uintptr) uintptr
	vpxCodecDestroy    func(ctx uintptr) int32
	vpxCodecErrString  func(err int32) uintptr
	vpxCodecErrDetail  func(ctx uintptr) uintptr
)

func loadLibvpx() error {
	libvpxOnce.Do(func() {
		var lastErr error
		for _, path := range libvpxPaths() {
			handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err != nil {
				lastErr = err
				continue
			}
			purego.RegisterLibFunc(&vpxCodecVP8Dx, handle, "vpx_codec_vp8_dx")
			purego.RegisterLibFunc(&vpxCodecVP9Dx, handle, "vpx_codec_vp9_dx")
			purego.RegisterLibFunc(&vpxCodecDecInitVer, handle, "vpx_codec_dec_init_ver")
			purego.RegisterLibFunc(&vpxCodecDecode, handle, "vpx_codec_decode")
			purego.RegisterLibFunc(&vpxCodecGetFrame, handle, "vpx_codec_get_frame")
			purego.RegisterLibFunc(&vpxCodecDestroy, handle, "vpx_codec_destroy")
			purego.RegisterLibFunc(&vpxCodecErrString, handle, "vpx_codec_err_to_string")
			purego.RegisterLibFunc(&vpxCodecErrDetail, handle, "vpx_codec_error_detail")
			return
		}
		if lastErr == nil {
			lastErr = errors.New("no candidate paths")
		}
		libvpxInitErr = fmt.Errorf("vpx: load libvpx: %w", lastErr)
	})
	return libvpxInitErr
}

// libvpxPaths lists candidate library names, WEBMPLAY_VPX_LIB first.
func libvpxPaths() []string {
	var paths []string
	if p := os.Getenv("WEBMPLAY_VPX_LIB"); p != "" {
		paths = append(paths, p)
	}
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			"libvpx.dylib",
			"/opt/homebrew/lib/libvpx.dylib",
			"/usr/local/lib/libvpx.dylib",
		)
	default:
		paths = append(paths,
			"libvpx.so.9",
			"libvpx.so.8",
			"libvpx.so.7",
			"libvpx.so.6",
			"libvpx.so",
			"/usr/local/lib/libvpx.so",
		)
	}
	return paths
}

// VPXAvailable reports whether libvpx could be loaded.
func VPXAvailable() bool {
	return loadLibvpx() == nil
}

type libvpxContext struct {
	ctx  *vpxCodecCtx
	iter uintptr
}

func openLibvpx(codecID string) (vpxContext, error) {
	if err := loadLibvpx(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	iface := vpxCodecVP8Dx()
	if codecID == IDVP9 {
		iface = vpxCodecVP9Dx()
	}
	if iface == 0 {
		return nil, fmt.Errorf("%w: libvpx was built without a %s decoder", ErrUnsupported, codecID)
	}
	c := &libvpxContext{ctx: new(vpxCodecCtx)}
	code := vpxCodecDecInitVer(c.ptr(), iface, 0, 0, vpxDecoderABIVersion)
	runtime.KeepAlive(c.ctx)
	switch code {
	case vpxCodecOK:
		return c, nil
	case vpxCodecABIMismatch:
		return nil, fmt.Errorf("%w: libvpx ABI mismatch", ErrUnsupported)
	}
	return nil, fmt.Errorf("vpx: init %s decoder: %s", codecID, vpxErrorString(code))
}

func (c *libvpxContext) ptr() uintptr {
	return uintptr(unsafe.Pointer(c.ctx))
}

func (c *libvpxContext) decode(frame []byte) error {
	c.iter = 0
	code := vpxCodecDecode(c.ptr(), uintptr(unsafe.Pointer(&frame[0])), uint32(len(frame)), 0, 0)
	runtime.KeepAlive(frame)
	runtime.KeepAlive(c.ctx)
	if code == vpxCodecOK {
		return nil
	}
	err := fmt.Errorf("vpx: decode: %s", vpxErrorString(code))
	if detail := cString(vpxCodecErrDetail(c.ptr())); detail != "" {
		err = fmt.Errorf("vpx: decode: %s: %s", vpxErrorString(code), detail)
	}
	switch code {
	case vpxCodecMemError, vpxCodecABIMismatch, vpxCodecIncapable:
		return Fatal(err)
	}
	return Recoverable(err)
}

func (c *libvpxContext) nextFrame() *vpxImage {
	p := vpxCodecGetFrame(c.ptr(), uintptr(unsafe.Pointer(&c.iter)))
	runtime.KeepAlive(c)
	if p == 0 {
		return nil
	}
	return (*vpxImage)(unsafe.Pointer(p))
}

func (c *libvpxContext) close() {
	if c.ctx != nil {
		vpxCodecDestroy(c.ptr())
		c.ctx = nil
	}
}

func vpxErrorString(code int32) string {
	if s := cString(vpxCodecErrString(code)); s != "" {
		return s
	}
	return fmt.Sprintf("error %d", code)
}
