package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/webmplay/internal/audioavail"
	"github.com/olivier-w/webmplay/internal/media"
	"github.com/olivier-w/webmplay/internal/player"
	"github.com/olivier-w/webmplay/internal/ui"
	"github.com/olivier-w/webmplay/internal/visualizer"
)

const (
	minFrameBuffer = 512
	maxFrameBuffer = 16384
	// ringFrames is how many frames of recent audio the visualizers keep.
	ringFrames = 8192
)

type options struct {
	frameBuffer int
	maxEvents   int
	probe       bool
	logPath     string
	volume      float64
}

func parseFlags(args []string) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("webmplay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&o.frameBuffer, "frame-buffer", 0, "samples per audio-available event (512-16384, default 1024 per channel)")
	fs.IntVar(&o.maxEvents, "max-events", 100, "pending audio-available events kept before the oldest are dropped")
	fs.BoolVar(&o.probe, "probe", false, "print stream information and decode headlessly")
	fs.StringVar(&o.logPath, "log", os.Getenv("WEBMPLAY_LOG"), "write logs to this file")
	fs.Float64Var(&o.volume, "volume", 1, "starting volume (0.0-1.0)")
	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	if o.frameBuffer != 0 && (o.frameBuffer < minFrameBuffer || o.frameBuffer > maxFrameBuffer) {
		return o, nil, fmt.Errorf("-frame-buffer must be between %d and %d", minFrameBuffer, maxFrameBuffer)
	}
	if o.maxEvents <= 0 {
		return o, nil, fmt.Errorf("-max-events must be positive")
	}
	return o, fs.Args(), nil
}

func main() {
	opts, args, err := parseFlags(os.Args[1:])
	if err != nil || len(args) != 1 {
		if err != nil && err != flag.ErrHelp {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		fmt.Fprintln(os.Stderr, "usage: webmplay [-probe] [-frame-buffer n] [-max-events n] [-volume v] [-log file] file.webm")
		os.Exit(2)
	}
	path := args[0]

	if err := checkFile(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := newLogger(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if opts.probe {
		if err := probe(os.Stdout, path, opts, log); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := play(path, opts, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// checkFile rejects directories and files that are neither named nor
// shaped like WebM.
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if media.IsSupportedExt(ext) {
		return nil
	}
	ok, err := media.Sniff(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("unsupported format %s (supported: %s)", ext, media.SupportedExtsList())
	}
	return nil
}

// newLogger writes to the -log file when given. Probe mode logs to stderr;
// the TUI otherwise discards logs so the screen stays intact.
func newLogger(opts options) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if os.Getenv("WEBMPLAY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	switch {
	case opts.logPath != "":
		f, err := os.OpenFile(opts.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log: %w", err)
		}
		return slog.New(slog.NewTextHandler(f, hopts)), func() { f.Close() }, nil
	case opts.probe:
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), func() {}, nil
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
}

func play(path string, opts options, log *slog.Logger) error {
	ring := visualizer.NewRingBuffer(ringFrames * 2)

	p, err := player.New(path,
		player.WithLogger(log),
		player.WithVolume(opts.volume),
		player.WithFrameBufferLength(opts.frameBuffer),
		player.WithMaxPendingEvents(opts.maxEvents),
		player.WithAudioAvailable(func(ev audioavail.Event) { ring.Write(ev.Samples) }),
	)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	defer p.Close()

	meta := player.MetadataFromInfo(p.Info(), path)
	model := ui.New(p, meta, ring)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}
	return p.Err()
}
