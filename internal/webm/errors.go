package webm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedContainer means the EBML header or DocType did not match.
	ErrUnsupportedContainer = errors.New("webm: unsupported container")

	// ErrTruncated means the data ends inside an element. The parser has
	// rewound to the start of that element, so the call can be retried once
	// more bytes are available.
	ErrTruncated = errors.New("webm: truncated element")

	// ErrCorrupt means an element header could not be decoded. Stream
	// positioning is lost.
	ErrCorrupt = errors.New("webm: corrupt stream")
)

// BlockError reports a malformed SimpleBlock or Block. The element has been
// consumed and the next call continues with the following element.
type BlockError struct {
	Offset int64
	Reason string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("webm: bad block at offset %d: %s", e.Offset, e.Reason)
}

func corruptf(offset int64, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrCorrupt, offset, fmt.Sprintf(format, args...))
}
