//go:build !darwin && !linux

package codec

import "fmt"

func OpusAvailable() bool { return false }

func newLibopusDecoder(int) (opusBackend, error) {
	return nil, fmt.Errorf("%w: libopus loading is not available on this platform", ErrUnsupported)
}
