package player

import (
	"io"
	"log/slog"

	"github.com/olivier-w/webmplay/internal/audioavail"
	"github.com/olivier-w/webmplay/internal/codec"
	"github.com/olivier-w/webmplay/internal/reader"
)

type config struct {
	log         *slog.Logger
	volume      float64
	frameBuffer int
	maxEvents   int
	factory     codec.Factory
	onEvent     []audioavail.Handler
	onFrame     func(*reader.VideoData)
}

func defaultConfig() config {
	return config{
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		volume:    1,
		maxEvents: audioavail.DefaultMaxPendingEvents,
	}
}

// Option configures a Player.
type Option func(*config)

func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// WithVolume sets the starting volume, clamped to 0.0 - 1.0.
func WithVolume(v float64) Option {
	return func(c *config) { c.volume = v }
}

// WithFrameBufferLength sets the number of samples per audio-available
// event. Zero keeps the default of 1024 frames.
func WithFrameBufferLength(n int) Option {
	return func(c *config) { c.frameBuffer = n }
}

func WithMaxPendingEvents(n int) Option {
	return func(c *config) { c.maxEvents = n }
}

// WithAudioAvailable registers a handler for audio-available events. It
// runs on the player's dispatch goroutine. Multiple handlers run in order.
func WithAudioAvailable(h audioavail.Handler) Option {
	return func(c *config) {
		if h != nil {
			c.onEvent = append(c.onEvent, h)
		}
	}
}

// WithVideoFrame registers a callback invoked each time a frame is shown.
func WithVideoFrame(fn func(*reader.VideoData)) Option {
	return func(c *config) { c.onFrame = fn }
}

func WithDecoderFactory(f codec.Factory) Option {
	return func(c *config) { c.factory = f }
}
