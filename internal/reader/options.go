package reader

import (
	"log/slog"

	"github.com/olivier-w/webmplay/internal/codec"
)

// AudioSink receives every decoded audio chunk along with the stream
// position, in samples, at which the chunk ends. Clear is called when
// decoding restarts after a seek.
type AudioSink interface {
	QueueWrittenAudioData(data []float32, endTimeSampleOffset uint64)
	Clear()
}

type Option func(*Reader)

func WithLogger(log *slog.Logger) Option {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

func WithAudioSink(s AudioSink) Option {
	return func(r *Reader) { r.sink = s }
}

// WithDecoderFactory replaces codec.Default.
func WithDecoderFactory(f codec.Factory) Option {
	return func(r *Reader) {
		if f != nil {
			r.factory = f
		}
	}
}
