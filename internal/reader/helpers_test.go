package reader

import (
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/olivier-w/webmplay/internal/codec"
	"github.com/olivier-w/webmplay/internal/webm"
	wt "github.com/olivier-w/webmplay/internal/webm/webmtest"
)

// Packets whose first byte is one of these make the stub decoders fail.
const (
	badPacket   = 0xEE
	fatalPacket = 0xFF
)

// stubAudio emits packet[0] frames per packet, each sample set to the
// packet's second byte.
type stubAudio struct {
	rate, channels int
	resets         int
	closed         bool
}

func (s *stubAudio) Decode(packet []byte) ([]float32, error) {
	switch packet[0] {
	case badPacket:
		return nil, codec.Recoverable(errors.New("bad packet"))
	case fatalPacket:
		return nil, codec.Fatal(errors.New("decoder state lost"))
	}
	out := make([]float32, int(packet[0])*s.channels)
	if len(packet) > 1 {
		for i := range out {
			out[i] = float32(packet[1])
		}
	}
	return out, nil
}

func (s *stubAudio) Reset() error    { s.resets++; return nil }
func (s *stubAudio) SampleRate() int { return s.rate }
func (s *stubAudio) Channels() int   { return s.channels }
func (s *stubAudio) Close() error    { s.closed = true; return nil }

type stubVideo struct {
	decoded []byte
	skipped []byte
	resets  int
}

func (s *stubVideo) Decode(frame []byte, keyframe bool) (*codec.Picture, error) {
	switch frame[0] {
	case badPacket:
		return nil, codec.Recoverable(errors.New("bad frame"))
	case fatalPacket:
		return nil, codec.Fatal(errors.New("decoder state lost"))
	}
	s.decoded = append(s.decoded, frame[0])
	return &codec.Picture{Image: image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420), Keyframe: keyframe}, nil
}

func (s *stubVideo) Skip(frame []byte, keyframe bool) error {
	s.skipped = append(s.skipped, frame[0])
	return nil
}

func (s *stubVideo) Reset() error { s.resets++; return nil }
func (s *stubVideo) Close() error { return nil }

// stubFactory accepts A_VORBIS and V_VP8 and reports everything else as
// unsupported.
type stubFactory struct {
	audio     *stubAudio
	video     *stubVideo
	audioErr  error
	openCalls int
}

func newStubFactory() *stubFactory {
	return &stubFactory{video: &stubVideo{}}
}

func (f *stubFactory) NewAudioDecoder(p codec.AudioParams) (codec.AudioDecoder, error) {
	f.openCalls++
	if p.CodecID != codec.IDVorbis {
		return nil, fmt.Errorf("%w: %s", codec.ErrUnsupported, p.CodecID)
	}
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	f.audio = &stubAudio{rate: p.SampleRate, channels: p.Channels}
	return f.audio, nil
}

func (f *stubFactory) NewVideoDecoder(p codec.VideoParams) (codec.VideoDecoder, error) {
	f.openCalls++
	if p.CodecID != codec.IDVP8 {
		return nil, fmt.Errorf("%w: %s", codec.ErrUnsupported, p.CodecID)
	}
	return f.video, nil
}

// recordingSink records what the reader writes to the audio sink.
type recordingSink struct {
	ends   []uint64
	total  int
	clears int
}

func (s *recordingSink) QueueWrittenAudioData(data []float32, end uint64) {
	s.ends = append(s.ends, end)
	s.total += len(data)
}

func (s *recordingSink) Clear() { s.clears++ }

var (
	audioTrack = wt.Track{Number: 1, Type: webm.TrackAudio, CodecID: codec.IDVorbis, SampleRate: 1000, Channels: 1}
	videoTrack = wt.Track{Number: 2, Type: webm.TrackVideo, CodecID: codec.IDVP8, Width: 64, Height: 48}
)

// av is one cluster of mono test media: audio packets of 10 frames
// every 10 ms and video every 20 ms, keyframe first.
func av(timecode uint64) wt.Cluster {
	return wt.Cluster{Timecode: timecode, Blocks: [][]byte{
		wt.SimpleBlock(2, 0, true, []byte{byte(timecode)}),
		wt.SimpleBlock(1, 0, true, []byte{10, byte(timecode)}),
		wt.SimpleBlock(1, 10, true, []byte{10, byte(timecode + 10)}),
		wt.SimpleBlock(2, 20, false, []byte{byte(timecode + 20)}),
		wt.SimpleBlock(1, 20, true, []byte{10, byte(timecode + 20)}),
		wt.SimpleBlock(1, 30, true, []byte{10, byte(timecode + 30)}),
	}}
}

func sampleFile() wt.File {
	return wt.File{
		Duration: 80,
		Title:    "Clip",
		Tracks:   []wt.Track{audioTrack, videoTrack},
		Clusters: []wt.Cluster{av(0), av(40)},
		Cues:     true,
		CueTrack: 2,
	}
}

func openReader(t *testing.T, f wt.File, opts ...Option) (*Reader, *stubFactory) {
	t.Helper()
	factory := newStubFactory()
	opts = append([]Option{WithDecoderFactory(factory)}, opts...)
	r := New(wt.NewSource(f.Bytes()), opts...)
	if err := r.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := r.ReadMetadata(); err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	return r, factory
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// drainAudio decodes audio until end of stream and returns the start times.
func drainAudio(t *testing.T, r *Reader) []time.Duration {
	t.Helper()
	for range 1000 {
		res := r.DecodeAudioData()
		if res.Kind == EndOfStream {
			break
		}
		if res.Kind == Failed {
			t.Fatalf("unexpected failure: %v", res.Err)
		}
	}
	var times []time.Duration
	for {
		a, ok := r.AudioQueue().PopFront()
		if !ok {
			return times
		}
		times = append(times, a.Time)
	}
}
