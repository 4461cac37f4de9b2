package codec

import "errors"

var errBadCodecPrivate = errors.New("codec: malformed codec private data")

// splitXiphHeaders unpacks CodecPrivate data stored as a Xiph-laced list
// of header packets, as Vorbis tracks do.
func splitXiphHeaders(b []byte) ([][]byte, error) {
	if len(b) < 1 {
		return nil, errBadCodecPrivate
	}
	count := int(b[0]) + 1
	b = b[1:]
	sizes := make([]int, count)
	for i := 0; i < count-1; i++ {
		for {
			if len(b) == 0 {
				return nil, errBadCodecPrivate
			}
			sizes[i] += int(b[0])
			c := b[0]
			b = b[1:]
			if c != 0xFF {
				break
			}
		}
	}
	used := 0
	for _, s := range sizes[:count-1] {
		used += s
	}
	if used > len(b) {
		return nil, errBadCodecPrivate
	}
	sizes[count-1] = len(b) - used

	out := make([][]byte, count)
	for i, s := range sizes {
		out[i] = b[:s:s]
		b = b[s:]
	}
	return out, nil
}
