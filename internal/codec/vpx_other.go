//go:build !darwin && !linux

package codec

import "fmt"

func VPXAvailable() bool { return false }

func openLibvpx(string) (vpxContext, error) {
	return nil, fmt.Errorf("%w: libvpx loading is not available on this platform", ErrUnsupported)
}
