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

var (
	libopusOnce    sync.Once
	libopusInitErr error

	opusDecoderCreate  func(fs int32, channels int32, errOut uintptr) uintptr
	opusDecodeFloat    func(st uintptr, data uintptr, length int32, pcm uintptr, frameSize int32, decodeFEC int32) int32
	opusDecoderDestroy func(st uintptr)
	opusStrerror       func(code int32) uintptr
)

func loadLibopus() error {
	libopusOnce.Do(func() {
		var lastErr error
		for _, path := range libopusPaths() {
			handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err != nil {
				lastErr = err
				continue
			}
			purego.RegisterLibFunc(&opusDecoderCreate, handle, "opus_decoder_create")
			purego.RegisterLibFunc(&opusDecodeFloat, handle, "opus_decode_float")
			purego.RegisterLibFunc(&opusDecoderDestroy, handle, "opus_decoder_destroy")
			purego.RegisterLibFunc(&opusStrerror, handle, "opus_strerror")
			return
		}
		if lastErr == nil {
			lastErr = errors.New("no candidate paths")
		}
		libopusInitErr = fmt.Errorf("opus: load libopus: %w", lastErr)
	})
	return libopusInitErr
}

// libopusPaths lists candidate library names, WEBMPLAY_OPUS_LIB first.
func libopusPaths() []string {
	var paths []string
	if p := os.Getenv("WEBMPLAY_OPUS_LIB"); p != "" {
		paths = append(paths, p)
	}
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			"libopus.0.dylib",
			"/opt/homebrew/lib/libopus.0.dylib",
			"/usr/local/lib/libopus.0.dylib",
		)
	default:
		paths = append(paths,
			"libopus.so.0",
			"libopus.so",
			"/usr/lib/x86_64-linux-gnu/libopus.so.0",
			"/usr/lib/aarch64-linux-gnu/libopus.so.0",
			"/usr/local/lib/libopus.so.0",
		)
	}
	return paths
}

// OpusAvailable reports whether libopus could be loaded.
func OpusAvailable() bool {
	return loadLibopus() == nil
}

type libopusDecoder struct {
	st       uintptr
	channels int
}

func newLibopusDecoder(channels int) (*libopusDecoder, error) {
	if err := loadLibopus(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	d := &libopusDecoder{channels: channels}
	if err := d.create(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *libopusDecoder) create() error {
	var code int32
	st := opusDecoderCreate(opusRate, int32(d.channels), uintptr(unsafe.Pointer(&code)))
	runtime.KeepAlive(&code)
	if st == 0 || code != 0 {
		return fmt.Errorf("opus: create decoder: %s (%d)", opusErrorString(code), code)
	}
	d.st = st
	return nil
}

func (d *libopusDecoder) decode(packet []byte, pcm []float32) (int, error) {
	if d.st == 0 {
		return 0, Fatal(errors.New("opus: decoder closed"))
	}
	var data uintptr
	if len(packet) > 0 {
		data = uintptr(unsafe.Pointer(&packet[0]))
	}
	n := opusDecodeFloat(d.st, data, int32(len(packet)), uintptr(unsafe.Pointer(&pcm[0])), int32(len(pcm)/d.channels), 0)
	runtime.KeepAlive(packet)
	runtime.KeepAlive(pcm)
	if n < 0 {
		return 0, classifyOpusError(n, opusErrorString(n))
	}
	return int(n), nil
}

// reset recreates the decoder. OPUS_RESET_STATE goes through the variadic
// opus_decoder_ctl, which purego cannot call portably.
func (d *libopusDecoder) reset() error {
	d.close()
	if err := d.create(); err != nil {
		return Fatal(err)
	}
	return nil
}

func (d *libopusDecoder) close() {
	if d.st != 0 {
		opusDecoderDestroy(d.st)
		d.st = 0
	}
}

func opusErrorString(code int32) string {
	if opusStrerror == nil {
		return "unknown error"
	}
	if s := cString(opusStrerror(code)); s != "" {
		return s
	}
	return "unknown error"
}
