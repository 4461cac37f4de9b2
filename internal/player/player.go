package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/olivier-w/webmplay/internal/audioavail"
	"github.com/olivier-w/webmplay/internal/dispatch"
	"github.com/olivier-w/webmplay/internal/reader"
)

const (
	// presentInterval is the cadence of event dispatch and frame display.
	presentInterval = 10 * time.Millisecond
	// decodeAhead bounds how much decoded audio is queued.
	decodeAhead = 2 * time.Second
	// maxQueuedFrames bounds the decoded video queue.
	maxQueuedFrames = 30
	// retryDelay and maxRetries govern truncated reads. A file that stays
	// truncated for maxRetries × retryDelay is treated as ended.
	retryDelay = 50 * time.Millisecond
	maxRetries = 40
	// bufferedInterval is how often the buffered ranges are recomputed.
	bufferedInterval = 500 * time.Millisecond
)

var ErrNoAudio = errors.New("player: file has no playable audio track")

// Stats counts what playback has delivered so far.
type Stats struct {
	EventsDelivered  uint64
	EventsDropped    uint64
	FramesShown      uint64
	FramesDuplicated uint64
	FramesLate       uint64
	AudioQueued      time.Duration
	MemoryInUse      int
}

// Player plays the audio of a WebM file through oto and presents its video
// frames and audio-available events against the audio clock.
type Player struct {
	file      *os.File
	rd        *reader.Reader
	info      reader.Info
	events    *audioavail.Manager
	tasks     *dispatch.Queue
	stream    *pcmStream
	otoCtx    *oto.Context
	otoPlayer *oto.Player
	log       *slog.Logger
	onEvent   []audioavail.Handler
	onFrame   func(*reader.VideoData)

	startTime time.Duration
	duration  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	seekCh chan time.Duration

	// decodeDone is set by the decode goroutine once both tracks have
	// ended, and cleared when a seek restarts decoding.
	decodeDone atomic.Bool
	// seeking is set from SeekTo until the decode goroutine has finished
	// the seek, so a stale end of stream is not reported.
	seeking atomic.Bool
	frame      atomic.Pointer[reader.VideoData]
	buffered   atomic.Pointer[[]reader.TimeRange]

	delivered  atomic.Uint64
	shown      atomic.Uint64
	duplicates atomic.Uint64
	late       atomic.Uint64

	mu      sync.Mutex
	volume  float64
	paused  bool
	closed  bool
	drained bool
	done    chan struct{}
	err     error
}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
	otoRate      int
	otoChannels  int
)

// initOto creates the process-wide oto context. oto allows one context per
// process, so every later file must match the first one's format.
func initOto(rate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoRate, otoChannels = rate, channels
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if rate != otoRate || channels != otoChannels {
		return nil, fmt.Errorf("player: audio output is %d Hz × %d, file is %d Hz × %d", otoRate, otoChannels, rate, channels)
	}
	return globalOtoCtx, nil
}

// New opens path, reads its metadata and first frames, and starts playback.
func New(path string, opts ...Option) (*Player, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	p := &Player{
		file:    f,
		tasks:   dispatch.New(),
		log:     cfg.log.With("component", "player"),
		onEvent: cfg.onEvent,
		onFrame: cfg.onFrame,
		volume:  lo.Clamp(cfg.volume, 0, 1),
		seekCh:  make(chan time.Duration, 1),
		done:    make(chan struct{}),
	}
	p.events = audioavail.New(p.tasks, p.deliver,
		audioavail.WithFrameBufferLength(cfg.frameBuffer),
		audioavail.WithMaxPendingEvents(cfg.maxEvents),
		audioavail.WithLogger(cfg.log.With("component", "audioavail")),
	)

	rdOpts := []reader.Option{
		reader.WithLogger(cfg.log.With("component", "reader")),
		reader.WithAudioSink(p.events),
	}
	if cfg.factory != nil {
		rdOpts = append(rdOpts, reader.WithDecoderFactory(cfg.factory))
	}
	p.rd = reader.New(f, rdOpts...)

	if err := p.open(); err != nil {
		p.rd.Close()
		f.Close()
		return nil, err
	}

	ctx, err := initOto(p.info.AudioRate, p.info.AudioChannels)
	if err != nil {
		p.rd.Close()
		f.Close()
		return nil, err
	}
	p.otoCtx = ctx
	p.stream = newPCMStream(p.rd.AudioQueue(), p.info.AudioChannels, p.info.AudioRate, p.startTime)
	p.otoPlayer = ctx.NewPlayer(p.stream)
	p.otoPlayer.SetVolume(p.volume)
	p.otoPlayer.Play()

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.group, p.ctx = errgroup.WithContext(p.ctx)
	p.group.Go(func() error { return p.decodeLoop(p.ctx) })
	p.group.Go(func() error { return p.presentLoop(p.ctx) })
	p.group.Go(func() error {
		if err := p.tasks.Run(p.ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return p, nil
}

func (p *Player) open() error {
	if err := p.rd.Init(); err != nil {
		return err
	}
	info, err := p.rd.ReadMetadata()
	if err != nil {
		return err
	}
	if !info.HasAudio {
		return ErrNoAudio
	}
	p.info = info
	p.events.Init(info.AudioChannels, info.AudioRate)

	start, first, err := p.rd.FindStartTime()
	if err != nil {
		return err
	}
	p.startTime = start
	p.duration = info.Duration
	p.refreshBuffered()
	if first != nil {
		p.frame.Store(first)
	}
	p.log.Info("opened", "path", p.file.Name(), "start", start, "duration", info.Duration)
	return nil
}

// deliver runs on the dispatch goroutine.
func (p *Player) deliver(ev audioavail.Event) {
	p.delivered.Add(1)
	for _, h := range p.onEvent {
		h(ev)
	}
}

// decodeLoop is the only goroutine that calls into the reader after New.
func (p *Player) decodeLoop(ctx context.Context) error {
	aq, vq := p.rd.AudioQueue(), p.rd.VideoQueue()
	var audioEnded, videoEnded bool
	var keyframeSkip bool
	var lastLate uint64
	var lastBuffered time.Time
	retries := 0

	restart := func(target time.Duration) {
		p.seek(target)
		audioEnded, videoEnded = false, !p.rd.HasVideo()
		keyframeSkip = false
		retries = 0
	}
	videoEnded = !p.rd.HasVideo()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-p.seekCh:
			restart(t)
			continue
		default:
		}

		if time.Since(lastBuffered) >= bufferedInterval {
			p.refreshBuffered()
			lastBuffered = time.Now()
		}

		full := aq.Duration() >= decodeAhead && (videoEnded || vq.Len() >= maxQueuedFrames)
		if (audioEnded && videoEnded) || full {
			if audioEnded && videoEnded {
				p.decodeDone.Store(true)
			}
			select {
			case <-ctx.Done():
				return nil
			case t := <-p.seekCh:
				restart(t)
			case <-time.After(presentInterval):
			}
			continue
		}

		var results []reader.Result
		if !audioEnded {
			res := p.rd.DecodeAudioData()
			results = append(results, res)
			audioEnded = res.Terminal()
		}
		if !videoEnded {
			// Frames already behind the clock only need the cheap path.
			var threshold time.Duration
			if vq.Len() == 0 {
				threshold = p.Position()
				// Frames dropped late with nothing queued means video
				// is behind. Jump to the next keyframe.
				if late := p.late.Load(); late > lastLate {
					keyframeSkip = true
					lastLate = late
				}
			}
			res := p.rd.DecodeVideoFrame(&keyframeSkip, threshold)
			results = append(results, res)
			videoEnded = res.Terminal()
		}

		for _, res := range results {
			if res.Kind == reader.Failed && res.Err != nil && res.Err.Fatal {
				p.setErr(res.Err)
				audioEnded, videoEnded = true, true
			}
		}
		if lo.SomeBy(results, func(r reader.Result) bool { return r.Retry() }) &&
			!lo.SomeBy(results, func(r reader.Result) bool { return r.Kind == reader.MoreData }) {
			retries++
			if retries >= maxRetries {
				p.log.Warn("source stayed truncated, ending playback", "err", results[0].Err)
				audioEnded, videoEnded = true, true
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
			continue
		}
		retries = 0
	}
}

func (p *Player) seek(target time.Duration) {
	if p.duration > p.startTime {
		target = lo.Clamp(target, p.startTime, p.duration)
	} else {
		target = max(target, p.startTime)
	}
	current := p.Position()

	p.mu.Lock()
	wasPaused := p.paused
	p.otoPlayer.Pause()
	p.mu.Unlock()

	if err := p.rd.Seek(target, p.startTime, p.duration, current); err != nil {
		p.log.Error("seek failed", "target", target, "err", err)
		p.setErr(err)
	}
	p.stream.Flush(target)
	p.frame.Store(nil)
	p.decodeDone.Store(false)
	defer p.seeking.Store(false)

	// A new oto player drops whatever the old one had buffered.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	_ = p.otoPlayer.Close()
	p.otoPlayer = p.otoCtx.NewPlayer(p.stream)
	p.otoPlayer.SetVolume(p.volume)
	if !wasPaused {
		p.otoPlayer.Play()
	}
}

func (p *Player) presentLoop(ctx context.Context) error {
	ticker := time.NewTicker(presentInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pos := p.Position()
		p.events.DispatchPendingEvents(pos)
		p.presentVideo(pos)

		if p.decodeDone.Load() && !p.seeking.Load() && p.stream.Consumed() {
			p.finish(pos)
		}
	}
}

// presentVideo shows the latest frame due at pos and drops frames that
// ended before it.
func (p *Player) presentVideo(pos time.Duration) {
	vq := p.rd.VideoQueue()
	for {
		v, ok := vq.PeekFront()
		if !ok || v.Time > pos {
			return
		}
		vq.PopFront()
		if v.EndTime <= pos {
			if next, ok := vq.PeekFront(); ok && next.Time <= pos {
				p.late.Add(1)
				continue
			}
		}
		p.frame.Store(v)
		p.shown.Add(1)
		if v.Duplicate {
			p.duplicates.Add(1)
		}
		if p.onFrame != nil {
			p.onFrame(v)
		}
	}
}

// finish flushes the accumulator and closes Done once per end of stream.
// A SeekTo that lands between the end-of-stream check and here wins.
func (p *Player) finish(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drained || p.seeking.Load() {
		return
	}
	p.drained = true
	p.events.Drain(pos)
	close(p.done)
	p.log.Info("playback finished", "position", pos)
}

func (p *Player) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err == nil {
		p.err = err
	}
}

// Err returns the first fatal decode or seek error.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done returns a channel that closes when playback finishes.
func (p *Player) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || !p.paused {
		return
	}
	p.otoPlayer.Play()
	p.paused = false
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.paused {
		return
	}
	if p.otoPlayer != nil {
		p.otoPlayer.Pause()
	}
	p.paused = true
}

// TogglePause toggles between play and pause.
func (p *Player) TogglePause() {
	if p.Paused() {
		p.Play()
	} else {
		p.Pause()
	}
}

func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Position returns the media time currently being heard, which trails the
// stream by whatever oto still has buffered.
func (p *Player) Position() time.Duration {
	pos := p.stream.Position()
	p.mu.Lock()
	buffered := 0
	if p.otoPlayer != nil {
		buffered = p.otoPlayer.BufferedSize()
	}
	p.mu.Unlock()
	return max(p.startTime, pos-p.stream.bytesToDuration(buffered))
}

func (p *Player) Duration() time.Duration { return p.duration }

func (p *Player) StartTime() time.Duration { return p.startTime }

// SeekTo asks the decode goroutine to move to t. A newer request replaces
// one that has not been picked up yet. Seeking after the end re-arms Done.
func (p *Player) SeekTo(t time.Duration) {
	p.mu.Lock()
	p.seeking.Store(true)
	if p.drained {
		p.drained = false
		p.done = make(chan struct{})
	}
	p.mu.Unlock()

	for {
		select {
		case p.seekCh <- t:
			return
		default:
		}
		select {
		case <-p.seekCh:
		default:
		}
	}
}

// Seek moves playback by delta from the current position.
func (p *Player) Seek(delta time.Duration) {
	p.SeekTo(p.Position() + delta)
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets volume, clamped to 0.0 - 1.0.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = lo.Clamp(v, 0, 1)
	if p.otoPlayer != nil {
		p.otoPlayer.SetVolume(p.volume)
	}
}

// AdjustVolume adjusts volume by delta.
func (p *Player) AdjustVolume(delta float64) {
	p.SetVolume(p.Volume() + delta)
}

func (p *Player) Info() reader.Info { return p.info }

// Frame returns the video frame currently on screen, if any.
func (p *Player) Frame() *reader.VideoData { return p.frame.Load() }

// Buffered returns the playable time ranges relative to the start time,
// as last computed by the decode goroutine.
func (p *Player) Buffered() []reader.TimeRange {
	if r := p.buffered.Load(); r != nil {
		return *r
	}
	return nil
}

func (p *Player) refreshBuffered() {
	ranges, err := p.rd.GetBuffered(p.startTime)
	if err != nil {
		p.log.Debug("buffered ranges unavailable", "err", err)
		return
	}
	p.buffered.Store(&ranges)
}

func (p *Player) Stats() Stats {
	aq := p.rd.AudioQueue()
	return Stats{
		EventsDelivered:  p.delivered.Load(),
		EventsDropped:    p.events.Dropped(),
		FramesShown:      p.shown.Load(),
		FramesDuplicated: p.duplicates.Load(),
		FramesLate:       p.late.Load(),
		AudioQueued:      aq.Duration(),
		MemoryInUse:      p.rd.AudioQueueMemoryInUse() + p.rd.VideoQueueMemoryInUse(),
	}
}

// Close stops playback, waits for the goroutines and releases the file.
func (p *Player) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.otoPlayer.Pause()
	p.mu.Unlock()

	p.cancel()
	p.tasks.Close()
	if err := p.group.Wait(); err != nil {
		p.log.Warn("player goroutine failed", "err", err)
	}

	p.mu.Lock()
	_ = p.otoPlayer.Close()
	p.mu.Unlock()
	p.rd.Close()
	p.file.Close()
}
