package reader

import (
	"image"
	"time"
)

// AudioData is one decoded audio packet. Samples are interleaved float32.
type AudioData struct {
	// Offset is the byte offset of the block the samples came from.
	Offset   int64
	Time     time.Duration
	Duration time.Duration
	Frames   int
	Channels int
	Samples  []float32
}

func (a *AudioData) Start() time.Duration { return a.Time }

func (a *AudioData) End() time.Duration { return a.Time + a.Duration }

func (a *AudioData) Size() int { return len(a.Samples) * 4 }

// VideoData is one decoded video frame. A Duplicate frame repeats the
// previous picture and shares its Picture.
type VideoData struct {
	Offset    int64
	Time      time.Duration
	EndTime   time.Duration
	Keyframe  bool
	Duplicate bool
	Picture   *image.YCbCr
}

func (v *VideoData) Start() time.Duration { return v.Time }

func (v *VideoData) End() time.Duration { return v.EndTime }

func (v *VideoData) Size() int {
	if v.Picture == nil || v.Duplicate {
		return 0
	}
	return len(v.Picture.Y) + len(v.Picture.Cb) + len(v.Picture.Cr)
}
