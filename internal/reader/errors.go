package reader

import (
	"errors"
	"fmt"
)

// ErrorKind classifies reader failures.
type ErrorKind int

const (
	// DemuxError is malformed or truncated container data.
	DemuxError ErrorKind = iota + 1
	// DecodeError is a packet the codec rejected.
	DecodeError
	// ConfigError is a missing or unsupported track or codec setup.
	ConfigError
)

func (k ErrorKind) String() string {
	switch k {
	case DemuxError:
		return "demux"
	case DecodeError:
		return "decode"
	case ConfigError:
		return "config"
	}
	return "unknown"
}

var (
	ErrClosed      = errors.New("reader: closed")
	ErrNotOpen     = errors.New("reader: container not initialized")
	ErrNoTracks    = errors.New("reader: no supported audio or video track")
)

// Error is returned by every failing reader call. A fatal error has moved
// the reader to Closed.
type Error struct {
	Kind  ErrorKind
	Fatal bool
	Err   error
}

func (e *Error) Error() string {
	if e.Fatal {
		return fmt.Sprintf("reader: fatal %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("reader: %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, fatal bool, err error) *Error {
	return &Error{Kind: kind, Fatal: fatal, Err: err}
}
