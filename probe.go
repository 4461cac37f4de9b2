package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/olivier-w/webmplay/internal/audioavail"
	"github.com/olivier-w/webmplay/internal/codec"
	"github.com/olivier-w/webmplay/internal/dispatch"
	"github.com/olivier-w/webmplay/internal/player"
	"github.com/olivier-w/webmplay/internal/reader"
	"github.com/olivier-w/webmplay/internal/util"
)

// probeRetries is how many decode rounds without progress end the probe
// on a truncated file.
const probeRetries = 3

type probeSummary struct {
	audioChunks  int
	audioFrames  int
	videoFrames  int
	duplicates   int
	events       int
	eventSamples int
	dropped      uint64
	end          time.Duration
	truncated    bool
}

func probe(out io.Writer, path string, opts options, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = probeStream(out, f, path, opts, log, codec.Default)
	return err
}

// probeStream prints the stream layout, then decodes every packet on the
// calling goroutine. Audio-available events are dispatched as decoding
// passes them and delivered by draining the task queue synchronously.
func probeStream(out io.Writer, src io.ReadSeeker, name string, opts options, log *slog.Logger, factory codec.Factory) (probeSummary, error) {
	var sum probeSummary
	tasks := dispatch.New()
	mgrOpts := []audioavail.Option{
		audioavail.WithMaxPendingEvents(opts.maxEvents),
		audioavail.WithLogger(log.With("component", "audioavail")),
	}
	if opts.frameBuffer > 0 {
		mgrOpts = append(mgrOpts, audioavail.WithFrameBufferLength(opts.frameBuffer))
	}
	mgr := audioavail.New(tasks, func(ev audioavail.Event) {
		sum.events++
		sum.eventSamples += len(ev.Samples)
	}, mgrOpts...)

	rd := reader.New(src,
		reader.WithLogger(log.With("component", "reader")),
		reader.WithAudioSink(mgr),
		reader.WithDecoderFactory(factory),
	)
	defer rd.Close()

	if err := rd.Init(); err != nil {
		return sum, err
	}
	info, err := rd.ReadMetadata()
	if err != nil {
		return sum, err
	}
	if info.HasAudio {
		mgr.Init(info.AudioChannels, info.AudioRate)
	}

	meta := player.MetadataFromInfo(info, name)
	fmt.Fprintf(out, "file:     %s\n", name)
	fmt.Fprintf(out, "title:    %s\n", meta.Title)
	if meta.Artist != "" {
		fmt.Fprintf(out, "artist:   %s\n", meta.Artist)
	}
	fmt.Fprintf(out, "duration: %s (%v)\n", util.FormatDuration(info.Duration), info.Duration)
	if info.HasAudio {
		fmt.Fprintf(out, "audio:    %s %s %s\n", info.AudioCodec, util.FormatRate(info.AudioRate), util.FormatChannels(info.AudioChannels))
	}
	if info.HasVideo {
		fmt.Fprintf(out, "video:    %s %dx%d\n", info.VideoCodec, info.Width, info.Height)
	}
	fmt.Fprintf(out, "cues:     %d\n", rd.Cues())

	start, _, err := rd.FindStartTime()
	if err != nil {
		return sum, err
	}
	fmt.Fprintf(out, "start:    %v\n", start)
	if ranges, err := rd.GetBuffered(start); err == nil {
		fmt.Fprintf(out, "buffered: %s\n", util.FormatRanges(ranges))
	}

	audioDone, videoDone := !info.HasAudio, !info.HasVideo
	idle := 0
	for !(audioDone && videoDone) {
		progressed := false
		if !audioDone {
			res := rd.DecodeAudioData()
			if res.Kind == reader.MoreData {
				progressed = true
			} else if res.Terminal() {
				if res.Err != nil {
					return sum, res.Err
				}
				audioDone = true
			}
		}
		if !videoDone {
			skip := false
			res := rd.DecodeVideoFrame(&skip, 0)
			if res.Kind == reader.MoreData {
				progressed = true
			} else if res.Terminal() {
				if res.Err != nil {
					return sum, res.Err
				}
				videoDone = true
			}
		}

		sum.collect(rd)
		mgr.DispatchPendingEvents(sum.end)
		tasks.RunPending()

		if progressed {
			idle = 0
			continue
		}
		if idle++; idle >= probeRetries {
			log.Warn("file ends mid-element, stopping", "position", sum.end)
			sum.truncated = true
			break
		}
	}

	mgr.Drain(sum.end)
	tasks.RunPending()
	sum.dropped = mgr.Dropped()

	fmt.Fprintf(out, "decoded:  %d audio chunks (%d frames), %d video frames (%d duplicates)\n",
		sum.audioChunks, sum.audioFrames, sum.videoFrames, sum.duplicates)
	fmt.Fprintf(out, "events:   %d delivered (%d samples), %d dropped\n", sum.events, sum.eventSamples, sum.dropped)
	fmt.Fprintf(out, "end:      %v", sum.end)
	if sum.truncated {
		fmt.Fprint(out, " (truncated)")
	}
	fmt.Fprintln(out)
	return sum, nil
}

// collect empties the reader's queues into the summary.
func (s *probeSummary) collect(rd *reader.Reader) {
	for a, ok := rd.AudioQueue().PopFront(); ok; a, ok = rd.AudioQueue().PopFront() {
		s.audioChunks++
		s.audioFrames += a.Frames
		s.end = max(s.end, a.End())
	}
	for v, ok := rd.VideoQueue().PopFront(); ok; v, ok = rd.VideoQueue().PopFront() {
		s.videoFrames++
		if v.Duplicate {
			s.duplicates++
		}
		s.end = max(s.end, v.End())
	}
}
