package webm

import "time"

// Block is one SimpleBlock or BlockGroup with its frames already unlaced.
type Block struct {
	Track    uint64
	Time     time.Duration
	Duration time.Duration
	Keyframe bool
	Frames   [][]byte
	Offset   int64
}

const (
	laceNone  = 0
	laceXiph  = 1
	laceFixed = 2
	laceEBML  = 3
)

// parseBlockPayload splits a (Simple)Block payload into track number,
// relative timecode, flags and frames.
func parseBlockPayload(b []byte, offset int64) (uint64, int16, byte, [][]byte, error) {
	track, n, ok := readVint(b)
	if !ok || len(b) < n+3 {
		return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "short header"}
	}
	timecode := int16(uint16(b[n])<<8 | uint16(b[n+1]))
	flags := b[n+2]
	rest := b[n+3:]

	lacing := (flags >> 1) & 0x03
	if lacing == laceNone {
		return track, timecode, flags, [][]byte{rest}, nil
	}
	if len(rest) == 0 {
		return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "missing lace count"}
	}
	count := int(rest[0]) + 1
	rest = rest[1:]

	sizes := make([]int, count)
	switch lacing {
	case laceXiph:
		for i := 0; i < count-1; i++ {
			size := 0
			for {
				if len(rest) == 0 {
					return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "truncated xiph lace"}
				}
				c := rest[0]
				rest = rest[1:]
				size += int(c)
				if c != 0xFF {
					break
				}
			}
			sizes[i] = size
		}
	case laceEBML:
		first, l, ok := readVint(rest)
		if !ok {
			return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "bad ebml lace size"}
		}
		rest = rest[l:]
		sizes[0] = int(first)
		for i := 1; i < count-1; i++ {
			raw, l, ok := readVint(rest)
			if !ok {
				return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "bad ebml lace delta"}
			}
			rest = rest[l:]
			bias := int64(1)<<(7*l-1) - 1
			sizes[i] = sizes[i-1] + int(int64(raw)-bias)
			if sizes[i] < 0 {
				return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "negative ebml lace size"}
			}
		}
	case laceFixed:
		if len(rest)%count != 0 {
			return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "fixed lace size mismatch"}
		}
		for i := range sizes {
			sizes[i] = len(rest) / count
		}
	}

	if lacing != laceFixed {
		used := 0
		for _, s := range sizes[:count-1] {
			used += s
		}
		if used > len(rest) {
			return 0, 0, 0, nil, &BlockError{Offset: offset, Reason: "lace sizes exceed payload"}
		}
		sizes[count-1] = len(rest) - used
	}

	frames := make([][]byte, count)
	for i, s := range sizes {
		frames[i] = rest[:s:s]
		rest = rest[s:]
	}
	return track, timecode, flags, frames, nil
}
