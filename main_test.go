package main

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/olivier-w/webmplay/internal/codec"
	"github.com/olivier-w/webmplay/internal/webm"
	wt "github.com/olivier-w/webmplay/internal/webm/webmtest"
)

type stubAudio struct{ rate, channels int }

func (s *stubAudio) Decode(packet []byte) ([]float32, error) {
	return make([]float32, int(packet[0])*s.channels), nil
}
func (s *stubAudio) Reset() error    { return nil }
func (s *stubAudio) SampleRate() int { return s.rate }
func (s *stubAudio) Channels() int   { return s.channels }
func (s *stubAudio) Close() error    { return nil }

type stubVideo struct{}

func (stubVideo) Decode(frame []byte, keyframe bool) (*codec.Picture, error) {
	return &codec.Picture{Image: image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420), Keyframe: keyframe}, nil
}
func (stubVideo) Skip(frame []byte, keyframe bool) error { return nil }
func (stubVideo) Reset() error                           { return nil }
func (stubVideo) Close() error                           { return nil }

type stubFactory struct{}

func (stubFactory) NewAudioDecoder(p codec.AudioParams) (codec.AudioDecoder, error) {
	if p.CodecID != codec.IDVorbis {
		return nil, fmt.Errorf("%w: %s", codec.ErrUnsupported, p.CodecID)
	}
	return &stubAudio{rate: p.SampleRate, channels: p.Channels}, nil
}

func (stubFactory) NewVideoDecoder(p codec.VideoParams) (codec.VideoDecoder, error) {
	if p.CodecID != codec.IDVP8 {
		return nil, fmt.Errorf("%w: %s", codec.ErrUnsupported, p.CodecID)
	}
	return stubVideo{}, nil
}

func cluster(tc uint64) wt.Cluster {
	return wt.Cluster{Timecode: tc, Blocks: [][]byte{
		wt.SimpleBlock(2, 0, true, []byte{1}),
		wt.SimpleBlock(1, 0, true, []byte{10}),
		wt.SimpleBlock(1, 10, true, []byte{10}),
		wt.SimpleBlock(2, 20, false, []byte{2}),
		wt.SimpleBlock(1, 20, true, []byte{10}),
		wt.SimpleBlock(1, 30, true, []byte{10}),
	}}
}

func testFile(cues bool) wt.File {
	return wt.File{
		Duration: 80,
		Title:    "Clip",
		Tracks: []wt.Track{
			{Number: 1, Type: webm.TrackAudio, CodecID: codec.IDVorbis, SampleRate: 1000, Channels: 1},
			{Number: 2, Type: webm.TrackVideo, CodecID: codec.IDVP8, Width: 64, Height: 48},
		},
		Clusters: []wt.Cluster{cluster(0), cluster(40)},
		Cues:     cues,
		CueTrack: 2,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProbeStreamDecodesWholeFile(t *testing.T) {
	var out bytes.Buffer
	opts := options{maxEvents: 100}
	sum, err := probeStream(&out, wt.NewSource(testFile(true).Bytes()), "clip.webm", opts, discardLogger(), stubFactory{})
	if err != nil {
		t.Fatalf("probeStream: %v", err)
	}
	if sum.audioChunks != 8 || sum.audioFrames != 80 || sum.videoFrames != 4 {
		t.Fatalf("unexpected decode counts %+v", sum)
	}
	// 80 samples never fill a 1024-sample window, so only the drain delivers.
	if sum.events != 1 || sum.eventSamples != 1024 || sum.dropped != 0 {
		t.Fatalf("unexpected event counts %+v", sum)
	}
	for _, want := range []string{
		"title:    Clip",
		"audio:    A_VORBIS 1 kHz mono",
		"video:    V_VP8 64x48",
		"cues:     2",
		"decoded:  8 audio chunks (80 frames), 4 video frames (0 duplicates)",
		"events:   1 delivered (1024 samples), 0 dropped",
		"end:      80ms\n",
	} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected output to contain %q:\n%s", want, out.String())
		}
	}
}

func TestProbeStreamDispatchesFullWindows(t *testing.T) {
	opts := options{maxEvents: 100, frameBuffer: 20}
	sum, err := probeStream(io.Discard, wt.NewSource(testFile(true).Bytes()), "clip.webm", opts, discardLogger(), stubFactory{})
	if err != nil {
		t.Fatalf("probeStream: %v", err)
	}
	if sum.events != 4 || sum.eventSamples != 80 {
		t.Fatalf("expected 4 full windows, got %+v", sum)
	}
}

func TestProbeStreamStopsOnTruncatedFile(t *testing.T) {
	full := testFile(false).Bytes()
	var out bytes.Buffer
	sum, err := probeStream(&out, wt.NewSource(full[:len(full)-3]), "cut.webm", options{maxEvents: 100}, discardLogger(), stubFactory{})
	if err != nil {
		t.Fatalf("probeStream: %v", err)
	}
	if !sum.truncated || sum.audioChunks != 7 {
		t.Fatalf("expected truncated probe with 7 audio chunks, got %+v", sum)
	}
	if !strings.Contains(out.String(), "(truncated)") {
		t.Fatalf("expected truncation note:\n%s", out.String())
	}
}

func TestProbeStreamRejectsNonWebM(t *testing.T) {
	_, err := probeStream(io.Discard, bytes.NewReader([]byte("ID3\x03\x00\x00\x00\x00\x00\x00")), "song.mp3", options{maxEvents: 100}, discardLogger(), stubFactory{})
	if err == nil {
		t.Fatal("expected an error for a non-WebM file")
	}
}

func TestParseFlags(t *testing.T) {
	t.Setenv("WEBMPLAY_LOG", "play.log")
	opts, args, err := parseFlags([]string{"-probe", "-volume", "0.5", "clip.webm"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if !opts.probe || opts.volume != 0.5 || opts.maxEvents != 100 || opts.frameBuffer != 0 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.logPath != "play.log" {
		t.Fatalf("expected log path from environment, got %q", opts.logPath)
	}
	if len(args) != 1 || args[0] != "clip.webm" {
		t.Fatalf("unexpected args %v", args)
	}

	if _, _, err := parseFlags([]string{"-frame-buffer", "100", "clip.webm"}); err == nil {
		t.Fatal("expected error for a frame buffer below 512")
	}
	if _, _, err := parseFlags([]string{"-frame-buffer", "4096", "clip.webm"}); err != nil {
		t.Fatalf("expected 4096 to be accepted: %v", err)
	}
	if _, _, err := parseFlags([]string{"-max-events", "0", "clip.webm"}); err == nil {
		t.Fatal("expected error for zero max events")
	}
}
