// Package reader decodes the audio and video tracks of a WebM file into
// timed queues for playback.
//
// A Reader is not safe for concurrent use. One goroutine owns the decode
// calls (DecodeAudioData, DecodeVideoFrame, Seek); the queues it fills and
// GetBuffered may be used from others.
package reader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/olivier-w/webmplay/internal/codec"
	"github.com/olivier-w/webmplay/internal/webm"
)

// maxVideoDimension bounds the frame size accepted from track headers.
const maxVideoDimension = 16384

type Reader struct {
	src     io.ReadSeeker
	log     *slog.Logger
	factory codec.Factory
	sink    AudioSink

	state  State
	size   int64
	parser *webm.Parser
	demux  *webm.Demuxer
	info   Info

	audioTrack webm.TrackInfo
	videoTrack webm.TrackInfo
	audioDec   codec.AudioDecoder
	videoDec   codec.VideoDecoder
	rate       int64
	channels   int

	// audioStartFrame is the frame position of the first sample after the
	// last (re)sync, or -1 before any audio has been decoded.
	audioStartFrame int64
	audioFrames     int64
	// discarding keeps audio decoded for a seek away from the sink.
	discarding bool

	lastVideoTime time.Duration
	haveVideoTime bool

	audioQueue *MediaQueue[*AudioData]
	videoQueue *MediaQueue[*VideoData]
}

func New(src io.ReadSeeker, opts ...Option) *Reader {
	r := &Reader{
		src:             src,
		log:             slog.With("component", "reader"),
		factory:         codec.Default,
		audioStartFrame: -1,
		audioQueue:      NewMediaQueue[*AudioData](),
		videoQueue:      NewMediaQueue[*VideoData](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init opens the container. A truncated header can be retried once more of
// the file is present.
func (r *Reader) Init() error {
	if r.state == Closed {
		return closedError()
	}
	if r.parser != nil {
		return nil
	}
	size, err := r.src.Seek(0, io.SeekEnd)
	if err != nil {
		return r.fail(ConfigError, fmt.Errorf("measure source: %w", err))
	}
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return r.fail(ConfigError, fmt.Errorf("rewind source: %w", err))
	}
	r.size = size

	p, err := webm.Open(r.src)
	switch {
	case err == nil:
	case errors.Is(err, webm.ErrTruncated):
		return newError(DemuxError, false, err)
	case errors.Is(err, webm.ErrCorrupt):
		return r.fail(DemuxError, err)
	default:
		return r.fail(ConfigError, err)
	}
	r.parser = p
	r.demux = webm.NewDemuxer(p)
	r.log.Debug("container opened", "doctype", p.DocType(), "size", size)
	return nil
}

// ReadMetadata reads the segment headers and opens a decoder for the first
// usable video track and the first usable audio track.
func (r *Reader) ReadMetadata() (Info, error) {
	switch {
	case r.state == Closed:
		return Info{}, closedError()
	case r.parser == nil:
		return Info{}, r.fail(ConfigError, ErrNotOpen)
	case r.state != Uninitialized:
		return r.info, nil
	}

	if err := r.parser.ReadHeaders(); err != nil {
		switch {
		case errors.Is(err, webm.ErrTruncated):
			return Info{}, newError(DemuxError, false, err)
		case errors.Is(err, webm.ErrCorrupt):
			return Info{}, r.fail(DemuxError, err)
		}
		return Info{}, r.fail(ConfigError, err)
	}

	for _, t := range r.parser.Tracks() {
		if err := r.openTrack(t); err != nil {
			return Info{}, r.fail(ConfigError, err)
		}
	}
	if r.audioDec == nil && r.videoDec == nil {
		return Info{}, r.fail(ConfigError, ErrNoTracks)
	}

	info := Info{
		Duration: r.parser.Duration(),
		Title:    r.parser.Title(),
		Tags:     r.parser.Tags(),
	}
	if r.audioDec != nil {
		r.rate = int64(r.audioDec.SampleRate())
		r.channels = r.audioDec.Channels()
		if r.rate <= 0 || r.channels <= 0 {
			return Info{}, r.fail(ConfigError, fmt.Errorf("audio track %d: %d Hz with %d channels", r.audioTrack.Number, r.rate, r.channels))
		}
		r.demux.Select(webm.TrackAudio, r.audioTrack.Number)
		info.HasAudio = true
		info.AudioRate = int(r.rate)
		info.AudioChannels = r.channels
		info.AudioCodec = r.audioTrack.CodecID
	}
	if r.videoDec != nil {
		r.demux.Select(webm.TrackVideo, r.videoTrack.Number)
		info.HasVideo = true
		info.VideoCodec = r.videoTrack.CodecID
		info.Width = r.videoTrack.PixelWidth
		info.Height = r.videoTrack.PixelHeight
		info.DisplayWidth = r.videoTrack.DisplayWidth
		info.DisplayHeight = r.videoTrack.DisplayHeight
	}
	r.info = info
	r.state = MetadataRead
	r.log.Info("metadata read",
		"audio", info.AudioCodec, "rate", info.AudioRate, "channels", info.AudioChannels,
		"video", info.VideoCodec, "width", info.Width, "height", info.Height,
		"duration", info.Duration)
	return info, nil
}

// openTrack opens a decoder for t if its kind has none yet. Unsupported
// tracks are skipped; any other decoder failure is returned.
func (r *Reader) openTrack(t webm.TrackInfo) error {
	log := r.log.With("track", t.Number, "codec", t.CodecID)
	if !t.Enabled || t.Encoded {
		log.Info("skipping disabled or encoded track")
		return nil
	}
	switch t.Type {
	case webm.TrackVideo:
		if r.videoDec != nil {
			return nil
		}
		if t.PixelWidth <= 0 || t.PixelHeight <= 0 || t.PixelWidth > maxVideoDimension || t.PixelHeight > maxVideoDimension {
			log.Warn("skipping video track with invalid size", "width", t.PixelWidth, "height", t.PixelHeight)
			return nil
		}
		dec, err := r.factory.NewVideoDecoder(codec.VideoParams{
			CodecID: t.CodecID,
			Width:   t.PixelWidth,
			Height:  t.PixelHeight,
		})
		if errors.Is(err, codec.ErrUnsupported) {
			log.Info("skipping unsupported video track", "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("video track %d: %w", t.Number, err)
		}
		r.videoDec = dec
		r.videoTrack = t
	case webm.TrackAudio:
		if r.audioDec != nil {
			return nil
		}
		dec, err := r.factory.NewAudioDecoder(codec.AudioParams{
			CodecID:    t.CodecID,
			Private:    t.CodecPrivate,
			SampleRate: int(t.SampleRate),
			Channels:   t.Channels,
			CodecDelay: t.CodecDelay,
		})
		if errors.Is(err, codec.ErrUnsupported) {
			log.Info("skipping unsupported audio track", "err", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("audio track %d: %w", t.Number, err)
		}
		r.audioDec = dec
		r.audioTrack = t
	}
	return nil
}

// DecodeAudioData decodes the next audio packet into the audio queue and
// hands the samples to the audio sink.
func (r *Reader) DecodeAudioData() Result {
	if res, ok := r.checkDecode(); !ok {
		return res
	}
	if r.audioDec == nil {
		r.audioQueue.Finish()
		return endOfStream()
	}

	pkt, err := r.demux.NextPacket(webm.TrackAudio)
	if err == io.EOF {
		r.audioQueue.Finish()
		r.markDraining()
		return endOfStream()
	}
	if err != nil {
		return r.demuxFailure(err)
	}

	samples, err := r.audioDec.Decode(pkt.Data)
	if err != nil {
		return r.decodeFailure("audio", pkt, err)
	}
	frames := int64(len(samples) / r.channels)
	if frames == 0 {
		return moreData()
	}

	if pkt.HasTimestamp {
		tsFrame := max(0, durationToFrames(pkt.Timestamp-r.audioTrack.CodecDelay, r.rate))
		switch {
		case r.audioStartFrame < 0:
			r.audioStartFrame = tsFrame
		case tsFrame > r.audioStartFrame+r.audioFrames:
			r.log.Debug("audio gap, resyncing",
				"expected", framesToDuration(r.audioStartFrame+r.audioFrames, r.rate),
				"got", framesToDuration(tsFrame, r.rate))
			r.audioStartFrame = tsFrame
			r.audioFrames = 0
		}
	} else if r.audioStartFrame < 0 {
		r.audioStartFrame = 0
	}

	startFrame := r.audioStartFrame + r.audioFrames
	endFrame := startFrame + frames
	r.audioFrames += frames

	if r.sink != nil && !r.discarding {
		r.sink.QueueWrittenAudioData(samples, uint64(endFrame)*uint64(r.channels))
	}
	start := framesToDuration(startFrame, r.rate)
	r.audioQueue.Push(&AudioData{
		Offset:   pkt.Offset,
		Time:     start,
		Duration: framesToDuration(endFrame, r.rate) - start,
		Frames:   int(frames),
		Channels: r.channels,
		Samples:  samples,
	})
	return moreData()
}

// DecodeVideoFrame decodes the next video packet into the video queue.
// While *keyframeSkip is set, packets are dropped until a keyframe at or
// after timeThreshold, which clears it. Frames before timeThreshold are
// passed to the decoder's Skip and not queued.
func (r *Reader) DecodeVideoFrame(keyframeSkip *bool, timeThreshold time.Duration) Result {
	if res, ok := r.checkDecode(); !ok {
		return res
	}
	if r.videoDec == nil {
		r.videoQueue.Finish()
		return endOfStream()
	}

	pkt, err := r.demux.NextPacket(webm.TrackVideo)
	if err == io.EOF {
		r.videoQueue.Finish()
		r.markDraining()
		return endOfStream()
	}
	if err != nil {
		return r.demuxFailure(err)
	}

	// The next packet's timestamp is this frame's end time.
	ts := pkt.Timestamp
	var end time.Duration
	next, err := r.demux.NextPacket(webm.TrackVideo)
	switch {
	case err == nil:
		end = next.Timestamp
		r.demux.PushFront(webm.TrackVideo, next)
	case err == io.EOF:
		end = ts
		if r.haveVideoTime && ts > r.lastVideoTime {
			end = ts + (ts - r.lastVideoTime)
		}
	default:
		r.demux.PushFront(webm.TrackVideo, pkt)
		return r.demuxFailure(err)
	}
	r.lastVideoTime = ts
	r.haveVideoTime = true

	if keyframeSkip != nil && *keyframeSkip {
		if !pkt.Keyframe || ts < timeThreshold {
			return moreData()
		}
		*keyframeSkip = false
	}

	if ts < timeThreshold {
		if err := r.videoDec.Skip(pkt.Data, pkt.Keyframe); err != nil {
			return r.decodeFailure("video", pkt, err)
		}
		return moreData()
	}

	pic, err := r.videoDec.Decode(pkt.Data, pkt.Keyframe)
	if err != nil {
		return r.decodeFailure("video", pkt, err)
	}
	r.videoQueue.Push(&VideoData{
		Offset:    pkt.Offset,
		Time:      ts,
		EndTime:   end,
		Keyframe:  pkt.Keyframe,
		Duplicate: pic.Duplicate,
		Picture:   pic.Image,
	})
	return moreData()
}

func (r *Reader) checkDecode() (Result, bool) {
	switch r.state {
	case Closed:
		return failed(closedError()), false
	case Uninitialized:
		return failed(newError(ConfigError, false, ErrNotOpen)), false
	case MetadataRead:
		r.state = Decoding
	}
	return Result{}, true
}

func (r *Reader) markDraining() {
	if r.state == Decoding {
		r.state = Draining
	}
}

func (r *Reader) demuxFailure(err error) Result {
	var be *webm.BlockError
	switch {
	case errors.Is(err, webm.ErrTruncated):
		return failed(newError(DemuxError, false, err))
	case errors.As(err, &be):
		r.log.Warn("skipping malformed block", "offset", be.Offset, "reason", be.Reason)
		return failed(newError(DemuxError, false, err))
	}
	return failed(r.fail(DemuxError, err))
}

func (r *Reader) decodeFailure(kind string, pkt *webm.Packet, err error) Result {
	if codec.IsFatal(err) {
		return failed(r.fail(DecodeError, fmt.Errorf("%s packet at %v: %w", kind, pkt.Timestamp, err)))
	}
	r.log.Debug("skipping undecodable packet", "kind", kind, "time", pkt.Timestamp, "err", err)
	return moreData()
}

// fail closes the reader and returns a fatal error of kind.
func (r *Reader) fail(kind ErrorKind, err error) *Error {
	r.log.Error("reader failed", "kind", kind, "err", err)
	r.shutdown()
	return newError(kind, true, err)
}

func closedError() *Error {
	return newError(ConfigError, true, ErrClosed)
}

// Seek moves decoding to target. start and end bound the stream and
// current is the position before the seek; they are used for clamping and
// logging only.
func (r *Reader) Seek(target, start, end, current time.Duration) error {
	switch {
	case r.state == Closed:
		return closedError()
	case r.state == Uninitialized:
		return newError(ConfigError, false, ErrNotOpen)
	}
	if end > start {
		target = lo.Clamp(target, start, end)
	}
	r.log.Debug("seek", "target", target, "from", current)

	r.state = Seeking
	if err := r.ResetDecode(); err != nil {
		return err
	}

	offset := r.parser.FirstCluster()
	if cp, ok := r.parser.Cues().Floor(target); ok {
		offset = cp.ClusterOffset
	}
	if offset < 0 {
		r.audioQueue.Finish()
		r.videoQueue.Finish()
		r.state = Draining
		return nil
	}
	if err := r.demux.Seek(offset); err != nil {
		return r.fail(DemuxError, err)
	}
	if err := r.DecodeToTarget(target); err != nil {
		return err
	}
	if r.state == Seeking {
		r.state = Decoding
	}
	return nil
}

// ResetDecode drops queued data, demuxer state and codec state, and clears
// the audio sink.
func (r *Reader) ResetDecode() error {
	if r.state == Closed {
		return closedError()
	}
	r.audioQueue.Reset()
	r.videoQueue.Reset()
	if r.demux != nil {
		r.demux.Reset()
	}
	if r.audioDec != nil {
		if err := r.audioDec.Reset(); err != nil {
			return r.fail(DecodeError, fmt.Errorf("reset audio decoder: %w", err))
		}
	}
	if r.videoDec != nil {
		if err := r.videoDec.Reset(); err != nil {
			return r.fail(DecodeError, fmt.Errorf("reset video decoder: %w", err))
		}
	}
	if r.sink != nil {
		r.sink.Clear()
	}
	r.audioStartFrame = -1
	r.audioFrames = 0
	r.haveVideoTime = false
	return nil
}

// DecodeToTarget decodes forward from the current position, discarding
// video frames that end before target and audio before target. The audio
// chunk that spans target is trimmed to start exactly at it. Discarded audio
// never reaches the sink; it is cleared and handed the kept head only.
func (r *Reader) DecodeToTarget(target time.Duration) error {
	r.discarding = true
	defer func() { r.discarding = false }()

	if r.videoDec != nil {
		skip := true
		var last *VideoData
		for {
			for r.videoQueue.Len() == 0 {
				res := r.DecodeVideoFrame(&skip, 0)
				if res.Kind == EndOfStream {
					break
				}
				if res.Kind == Failed {
					return res.Err
				}
			}
			v, ok := r.videoQueue.PeekFront()
			if !ok {
				// Show the last frame when the target is past the end.
				if last != nil {
					r.videoQueue.PushFront(last)
				}
				break
			}
			if v.EndTime > target {
				break
			}
			last, _ = r.videoQueue.PopFront()
		}
	}

	var head *AudioData
	var headEnd int64
	if r.audioDec != nil {
		targetFrame := durationToFrames(target, r.rate)
		for {
			for r.audioQueue.Len() == 0 {
				res := r.DecodeAudioData()
				if res.Kind == EndOfStream {
					break
				}
				if res.Kind == Failed {
					return res.Err
				}
			}
			a, ok := r.audioQueue.PeekFront()
			if !ok {
				break
			}
			startFrame := durationToFrames(a.Time, r.rate)
			endFrame := startFrame + int64(a.Frames)
			if endFrame <= targetFrame {
				r.audioQueue.PopFront()
				continue
			}
			if startFrame >= targetFrame {
				if startFrame > targetFrame {
					r.log.Debug("audio starts after seek target", "target", target, "audio", a.Time)
				}
				head = a
				headEnd = endFrame
				break
			}
			prune := targetFrame - startFrame
			frames := int64(a.Frames) - prune
			r.audioQueue.PopFront()
			head = &AudioData{
				Offset:   a.Offset,
				Time:     target,
				Duration: framesToDuration(frames, r.rate),
				Frames:   int(frames),
				Channels: a.Channels,
				Samples:  a.Samples[prune*int64(a.Channels):],
			}
			headEnd = endFrame
			r.audioQueue.PushFront(head)
			break
		}
	}

	if r.sink != nil {
		r.sink.Clear()
		if head != nil {
			r.sink.QueueWrittenAudioData(head.Samples, uint64(headEnd)*uint64(r.channels))
		}
	}
	return nil
}

// DecodeToFirstAudioData decodes until the audio queue holds data and
// returns its head, or nil at end of stream.
func (r *Reader) DecodeToFirstAudioData() (*AudioData, error) {
	for r.audioQueue.Len() == 0 {
		res := r.DecodeAudioData()
		if res.Kind == EndOfStream {
			return nil, nil
		}
		if res.Kind == Failed {
			return nil, res.Err
		}
	}
	a, _ := r.audioQueue.PeekFront()
	return a, nil
}

// DecodeToFirstVideoData decodes until the video queue holds a frame and
// returns it, or nil at end of stream.
func (r *Reader) DecodeToFirstVideoData() (*VideoData, error) {
	for r.videoQueue.Len() == 0 {
		skip := false
		res := r.DecodeVideoFrame(&skip, 0)
		if res.Kind == EndOfStream {
			return nil, nil
		}
		if res.Kind == Failed {
			return nil, res.Err
		}
	}
	v, _ := r.videoQueue.PeekFront()
	return v, nil
}

// FindStartTime decodes the first frame of each track and returns the
// earliest start time together with the first video frame, if any.
func (r *Reader) FindStartTime() (time.Duration, *VideoData, error) {
	var starts []time.Duration
	var video *VideoData
	if r.videoDec != nil {
		v, err := r.DecodeToFirstVideoData()
		if err != nil {
			return 0, nil, err
		}
		if v != nil {
			video = v
			starts = append(starts, v.Time)
		}
	}
	if r.audioDec != nil {
		a, err := r.DecodeToFirstAudioData()
		if err != nil {
			return 0, nil, err
		}
		if a != nil {
			starts = append(starts, a.Time)
		}
	}
	return lo.Min(starts), video, nil
}

// GetBuffered maps the bytes present in the source to presentation time,
// relative to startTime. It reads only the cluster index, never the
// source, so it may be called while another goroutine decodes.
func (r *Reader) GetBuffered(startTime time.Duration) ([]TimeRange, error) {
	if r.parser == nil {
		return nil, newError(ConfigError, false, ErrNotOpen)
	}
	ranges := []webm.ByteRange{{Start: 0, End: r.size}}
	if rs, ok := r.src.(webm.RangeSource); ok {
		ranges = rs.BufferedRanges()
	}
	clusters := r.parser.Clusters()
	streamEnd := r.info.Duration

	var out []TimeRange
	for _, br := range ranges {
		from, to, ok := clusters.TimeRange(br.Start, br.End, br.End >= r.size, streamEnd)
		if !ok {
			continue
		}
		out = append(out, TimeRange{
			Start: max(0, from-startTime),
			End:   max(0, to-startTime),
		})
	}
	return normalizeRanges(out), nil
}

// Close releases the decoders. The source is left open.
func (r *Reader) Close() error {
	r.shutdown()
	return nil
}

func (r *Reader) shutdown() {
	if r.audioDec != nil {
		r.audioDec.Close()
	}
	if r.videoDec != nil {
		r.videoDec.Close()
	}
	if r.demux != nil {
		r.demux.Reset()
	}
	r.audioQueue.Finish()
	r.videoQueue.Finish()
	r.state = Closed
}

func (r *Reader) State() State { return r.state }

func (r *Reader) Info() Info { return r.info }

func (r *Reader) HasAudio() bool { return r.audioDec != nil }

func (r *Reader) HasVideo() bool { return r.videoDec != nil }

func (r *Reader) AudioQueue() *MediaQueue[*AudioData] { return r.audioQueue }

func (r *Reader) VideoQueue() *MediaQueue[*VideoData] { return r.videoQueue }

func (r *Reader) AudioQueueMemoryInUse() int { return r.audioQueue.MemoryInUse() }

func (r *Reader) VideoQueueMemoryInUse() int { return r.videoQueue.MemoryInUse() }

// Cues returns the number of cue points found in the file.
func (r *Reader) Cues() int {
	if r.parser == nil {
		return 0
	}
	return r.parser.Cues().Len()
}

func framesToDuration(frames, rate int64) time.Duration {
	secs := frames / rate
	rem := frames % rate
	return time.Duration(secs)*time.Second + time.Duration(rem)*time.Second/time.Duration(rate)
}

func durationToFrames(d time.Duration, rate int64) int64 {
	secs := int64(d / time.Second)
	rem := int64(d % time.Second)
	return secs*rate + rem*rate/int64(time.Second)
}
