package player

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/olivier-w/webmplay/internal/audioavail"
	"github.com/olivier-w/webmplay/internal/dispatch"
	"github.com/olivier-w/webmplay/internal/reader"
)

func stereoQueue(chunks ...*reader.AudioData) *reader.MediaQueue[*reader.AudioData] {
	q := reader.NewMediaQueue[*reader.AudioData]()
	for _, c := range chunks {
		q.Push(c)
	}
	return q
}

func sampleAt(p []byte, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
}

func TestPCMStreamReadsWholeFramesAsFloat32(t *testing.T) {
	q := stereoQueue(&reader.AudioData{
		Time:     100 * time.Millisecond,
		Frames:   2,
		Channels: 2,
		Samples:  []float32{0.5, -0.25, 1, 0},
	})
	s := newPCMStream(q, 2, 1000, 0)

	buf := make([]byte, 12)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected one aligned frame (8 bytes), got %d", n)
	}
	if got := sampleAt(buf, 0); got != 0.5 {
		t.Fatalf("expected first sample 0.5, got %v", got)
	}
	if got := sampleAt(buf, 1); got != -0.25 {
		t.Fatalf("expected second sample -0.25, got %v", got)
	}
	if got := s.Position(); got != 101*time.Millisecond {
		t.Fatalf("expected position 101ms, got %v", got)
	}

	buf = make([]byte, 64)
	n, _ = s.Read(buf)
	if n != 8 {
		t.Fatalf("expected remaining frame (8 bytes), got %d", n)
	}
	if got := sampleAt(buf, 0); got != 1 {
		t.Fatalf("expected sample 1, got %v", got)
	}
	if got := s.Position(); got != 102*time.Millisecond {
		t.Fatalf("expected position 102ms, got %v", got)
	}
}

func TestPCMStreamUnderrunPlaysSilenceWithoutMovingClock(t *testing.T) {
	s := newPCMStream(stereoQueue(), 2, 1000, 250*time.Millisecond)

	buf := bytes.Repeat([]byte{0xAA}, 16)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected silence to fill the buffer, got %d bytes", n)
	}
	if !bytes.Equal(buf, make([]byte, 16)) {
		t.Fatalf("expected zeroed buffer, got %v", buf)
	}
	if got := s.Position(); got != 250*time.Millisecond {
		t.Fatalf("expected clock to stay at 250ms, got %v", got)
	}
	if s.Consumed() {
		t.Fatal("unfinished queue should not be consumed")
	}
}

func TestPCMStreamConsumedAfterFinishedQueueDrains(t *testing.T) {
	q := stereoQueue(&reader.AudioData{Frames: 1, Channels: 1, Samples: []float32{0.1}})
	q.Finish()
	s := newPCMStream(q, 1, 1000, 0)

	s.Read(make([]byte, 4))
	if s.Consumed() {
		t.Fatal("stream consumed before the empty pop")
	}
	s.Read(make([]byte, 4))
	if !s.Consumed() {
		t.Fatal("expected stream consumed after finished queue ran out")
	}
}

func TestPCMStreamFlushMovesClock(t *testing.T) {
	q := stereoQueue(&reader.AudioData{Frames: 4, Channels: 1, Samples: []float32{1, 2, 3, 4}})
	s := newPCMStream(q, 1, 1000, 0)
	s.Read(make([]byte, 8))

	s.Flush(3 * time.Second)
	if got := s.Position(); got != 3*time.Second {
		t.Fatalf("expected position 3s after flush, got %v", got)
	}

	q.Push(&reader.AudioData{Time: 3 * time.Second, Frames: 1, Channels: 1, Samples: []float32{9}})
	buf := make([]byte, 4)
	s.Read(buf)
	if got := sampleAt(buf, 0); got != 9 {
		t.Fatalf("flush should drop the old chunk, read %v", got)
	}
}

func TestBytesToDuration(t *testing.T) {
	s := newPCMStream(stereoQueue(), 2, 48000, 0)
	if got := s.bytesToDuration(48000 * 8); got != time.Second {
		t.Fatalf("expected 1s, got %v", got)
	}
	if got := framesToDuration(10, 0); got != 0 {
		t.Fatalf("expected 0 for unknown rate, got %v", got)
	}
}

func TestPauseSetsPausedWithoutToggle(t *testing.T) {
	p := &Player{}
	p.Pause()
	if !p.paused {
		t.Fatal("expected pause to set paused state")
	}
	p.Pause()
	if !p.Paused() {
		t.Fatal("second pause should keep paused state")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	p := &Player{}
	p.SetVolume(1.5)
	if p.Volume() != 1 {
		t.Fatalf("expected volume clamped to 1, got %v", p.Volume())
	}
	p.AdjustVolume(-3)
	if p.Volume() != 0 {
		t.Fatalf("expected volume clamped to 0, got %v", p.Volume())
	}
}

func TestSeekToKeepsLatestRequest(t *testing.T) {
	p := &Player{seekCh: make(chan time.Duration, 1)}
	p.SeekTo(time.Second)
	p.SeekTo(2 * time.Second)

	select {
	case got := <-p.seekCh:
		if got != 2*time.Second {
			t.Fatalf("expected latest seek 2s, got %v", got)
		}
	default:
		t.Fatal("expected a pending seek")
	}
}

func TestPresentVideoDropsLateFrames(t *testing.T) {
	p := &Player{rd: reader.New(bytes.NewReader(nil))}
	vq := p.rd.VideoQueue()
	vq.Push(&reader.VideoData{Time: 0, EndTime: 20 * time.Millisecond})
	vq.Push(&reader.VideoData{Time: 20 * time.Millisecond, EndTime: 40 * time.Millisecond})
	vq.Push(&reader.VideoData{Time: 40 * time.Millisecond, EndTime: 60 * time.Millisecond, Duplicate: true})
	vq.Push(&reader.VideoData{Time: 60 * time.Millisecond, EndTime: 80 * time.Millisecond})

	var shown []time.Duration
	p.onFrame = func(v *reader.VideoData) { shown = append(shown, v.Time) }
	p.presentVideo(45 * time.Millisecond)

	if len(shown) != 1 || shown[0] != 40*time.Millisecond {
		t.Fatalf("expected only the 40ms frame shown, got %v", shown)
	}
	if got := p.late.Load(); got != 2 {
		t.Fatalf("expected 2 late frames, got %d", got)
	}
	if got := p.duplicates.Load(); got != 1 {
		t.Fatalf("expected 1 duplicate, got %d", got)
	}
	if f := p.Frame(); f == nil || f.Time != 40*time.Millisecond {
		t.Fatalf("expected current frame at 40ms, got %+v", f)
	}
	if vq.Len() != 1 {
		t.Fatalf("future frame should stay queued, queue has %d", vq.Len())
	}
}

func TestFinishDrainsEventsOnce(t *testing.T) {
	var got []audioavail.Event
	p := &Player{
		tasks:   dispatch.New(),
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:    make(chan struct{}),
		onEvent: []audioavail.Handler{func(ev audioavail.Event) { got = append(got, ev) }},
	}
	p.events = audioavail.New(p.tasks, p.deliver, audioavail.WithFrameBufferLength(4))
	p.events.Init(1, 1000)
	p.events.QueueWrittenAudioData([]float32{1, 2, 3}, 3)

	p.finish(3 * time.Millisecond)
	p.finish(3 * time.Millisecond)

	select {
	case <-p.Done():
	default:
		t.Fatal("expected done to be closed")
	}
	if n := p.tasks.RunPending(); n != 1 {
		t.Fatalf("expected one drained event, ran %d", n)
	}
	if len(got) != 1 || got[0].Time != 3*time.Millisecond {
		t.Fatalf("unexpected drained events: %+v", got)
	}
	if s := got[0].Samples; len(s) != 4 || s[2] != 3 || s[3] != 0 {
		t.Fatalf("expected zero-padded window, got %v", got[0].Samples)
	}
	if p.delivered.Load() != 1 {
		t.Fatalf("expected delivered count 1, got %d", p.delivered.Load())
	}
}

func TestMetadataFromInfo(t *testing.T) {
	info := reader.Info{
		Title: "Segment Title",
		Tags:  map[string]string{"ARTIST": " Band ", "ALBUM": "LP"},
	}
	m := MetadataFromInfo(info, "/music/clip.webm")
	if m.Title != "Segment Title" || m.Artist != "Band" || m.Album != "LP" {
		t.Fatalf("unexpected metadata: %+v", m)
	}

	info.Tags["TITLE"] = "Tagged"
	if m := MetadataFromInfo(info, "/music/clip.webm"); m.Title != "Tagged" {
		t.Fatalf("expected TITLE tag to win, got %q", m.Title)
	}

	if m := MetadataFromInfo(reader.Info{}, "/music/clip.webm"); m.Title != "clip" {
		t.Fatalf("expected filename fallback, got %q", m.Title)
	}
}

func TestFinishYieldsToPendingSeek(t *testing.T) {
	p := &Player{
		tasks:  dispatch.New(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:   make(chan struct{}),
		seekCh: make(chan time.Duration, 1),
	}
	p.events = audioavail.New(p.tasks, p.deliver, audioavail.WithFrameBufferLength(4))
	p.events.Init(1, 1000)
	p.events.QueueWrittenAudioData([]float32{1, 2}, 2)

	// End of stream was seen, then a seek arrived before finish ran.
	p.SeekTo(0)
	p.finish(2 * time.Millisecond)

	select {
	case <-p.Done():
		t.Fatal("done closed although a seek was pending")
	default:
	}
	if p.drained || p.events.Buffered() != 2 {
		t.Fatalf("expected no drain, drained=%v buffered=%d", p.drained, p.events.Buffered())
	}

	p.seeking.Store(false)
	p.finish(2 * time.Millisecond)
	select {
	case <-p.Done():
	default:
		t.Fatal("expected done after the seek completed")
	}
}
