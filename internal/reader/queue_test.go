package reader

import (
	"testing"
	"time"
)

func audioAt(start, dur int) *AudioData {
	return &AudioData{Time: ms(start), Duration: ms(dur), Samples: make([]float32, dur)}
}

func TestMediaQueueOrder(t *testing.T) {
	q := NewMediaQueue[*AudioData]()
	q.Push(audioAt(10, 10))
	q.Push(audioAt(20, 10))
	q.PushFront(audioAt(0, 10))

	if last, _ := q.Peek(); last.Time != ms(20) {
		t.Fatalf("expected last element at 20ms, got %v", last.Time)
	}
	if q.Duration() != ms(30) {
		t.Fatalf("expected 30ms span, got %v", q.Duration())
	}
	if after := q.ElementsAfter(ms(5)); len(after) != 2 || after[0].Time != ms(10) {
		t.Fatalf("expected 2 elements after 5ms, got %d", len(after))
	}
	var seen []time.Duration
	q.ForEach(func(a *AudioData) { seen = append(seen, a.Time) })
	for i, want := range []time.Duration{0, ms(10), ms(20)} {
		if seen[i] != want {
			t.Fatalf("expected %v at %d, got %v", want, i, seen[i])
		}
	}
	if q.MemoryInUse() != 3*10*4 {
		t.Fatalf("expected 120 bytes, got %d", q.MemoryInUse())
	}

	for _, want := range []time.Duration{0, ms(10), ms(20)} {
		a, ok := q.PopFront()
		if !ok || a.Time != want {
			t.Fatalf("expected %v, got %+v", want, a)
		}
	}
	if _, ok := q.PopFront(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestMediaQueueEndOfStream(t *testing.T) {
	q := NewMediaQueue[*AudioData]()
	q.Push(audioAt(0, 10))
	q.Finish()
	if !q.IsFinished() || q.AtEndOfStream() {
		t.Fatal("expected finished queue with data left")
	}
	select {
	case <-q.Changed():
	default:
		t.Fatal("expected change signal")
	}
	q.PopFront()
	if !q.AtEndOfStream() {
		t.Fatal("expected end of stream once drained")
	}
	q.Reset()
	if q.IsFinished() || q.Len() != 0 {
		t.Fatal("expected reset to clear data and finished flag")
	}
}

func TestNormalizeRanges(t *testing.T) {
	got := normalizeRanges([]TimeRange{
		{ms(50), ms(60)},
		{0, ms(10)},
		{ms(10), ms(20)},
		{ms(55), ms(70)},
		{ms(30), ms(30)},
	})
	want := []TimeRange{{0, ms(20)}, {ms(50), ms(70)}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestResultHelpers(t *testing.T) {
	if moreData().Terminal() || moreData().Retry() {
		t.Fatal("expected more data to be neither terminal nor retryable")
	}
	if !endOfStream().Terminal() {
		t.Fatal("expected end of stream to be terminal")
	}
	soft := failed(newError(DemuxError, false, nil))
	if !soft.Retry() || soft.Terminal() {
		t.Fatal("expected non-fatal failure to be retryable")
	}
	hard := failed(newError(DecodeError, true, nil))
	if hard.Retry() || !hard.Terminal() {
		t.Fatal("expected fatal failure to be terminal")
	}
}

func TestFrameConversions(t *testing.T) {
	if got := framesToDuration(48000*3600*30+24000, 48000); got != 30*time.Hour+500*time.Millisecond {
		t.Fatalf("unexpected duration %v", got)
	}
	if got := durationToFrames(1500*time.Millisecond, 44100); got != 66150 {
		t.Fatalf("expected 66150 frames, got %d", got)
	}
}
