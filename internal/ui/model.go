package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/webmplay/internal/player"
	"github.com/olivier-w/webmplay/internal/reader"
	"github.com/olivier-w/webmplay/internal/util"
	"github.com/olivier-w/webmplay/internal/video"
	"github.com/olivier-w/webmplay/internal/visualizer"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.05
	vizHeight  = 8
	// vizFrames is how much recent audio each visualizer update sees.
	vizFrames = 2048
)

// Playback is the part of *player.Player the UI drives.
type Playback interface {
	TogglePause()
	Paused() bool
	Seek(delta time.Duration)
	SeekTo(t time.Duration)
	AdjustVolume(delta float64)
	Volume() float64
	Position() time.Duration
	StartTime() time.Duration
	Duration() time.Duration
	Buffered() []reader.TimeRange
	Stats() player.Stats
	Frame() *reader.VideoData
	Info() reader.Info
	Err() error
	Done() <-chan struct{}
	Close()
}

// Model is the Bubbletea model for the webmplay TUI.
type Model struct {
	player   Playback
	metadata player.Metadata
	info     reader.Info
	elapsed  time.Duration
	duration time.Duration
	volume   float64
	paused   bool
	loop     bool
	width    int
	height   int
	quitting bool

	ring      *visualizer.RingBuffer
	vizs      []visualizer.Visualizer
	vizIdx    int
	screen    *video.Screen
	showVideo bool
	showStats bool

	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model
}

// New creates a new Model. ring receives audio-available samples and feeds
// the visualizers.
func New(p Playback, meta player.Metadata, ring *visualizer.RingBuffer) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = timeStyle

	info := p.Info()
	return Model{
		player:    p,
		metadata:  meta,
		info:      info,
		duration:  p.Duration() - p.StartTime(),
		volume:    p.Volume(),
		ring:      ring,
		vizs:      visualizer.Modes(),
		screen:    video.NewScreen(),
		showVideo: info.HasVideo,
		keys:      newKeyMap(info.HasVideo),
		help:      newHelp(),
		progress: progress.New(
			progress.WithScaledGradient(accentFrom, accentTo),
			progress.WithoutPercentage(),
		),
		spinner: s,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick, checkDone(m.player), tea.SetWindowTitle(windowTitle(m.metadata.Title, false)))
}

func checkDone(p Playback) tea.Cmd {
	done := p.Done()
	return func() tea.Msg {
		<-done
		return playbackEndedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.elapsed = max(m.player.Position()-m.player.StartTime(), 0)
		m.volume = m.player.Volume()
		m.paused = m.player.Paused()
		if !m.paused {
			m.updateVisualizer()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case playbackEndedMsg:
		if m.loop && m.player.Err() == nil {
			m.player.SeekTo(m.player.StartTime())
			m.elapsed = 0
			return m, checkDone(m.player)
		}
		m.elapsed = m.duration
		m.quitting = true
		m.player.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.player.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	case key.Matches(msg, m.keys.Pause):
		m.player.TogglePause()
		m.paused = m.player.Paused()
		return m, tea.SetWindowTitle(windowTitle(m.metadata.Title, m.paused))
	case key.Matches(msg, m.keys.Back):
		m.player.Seek(-seekStep)
	case key.Matches(msg, m.keys.Forward):
		m.player.Seek(seekStep)
	case key.Matches(msg, m.keys.Restart):
		m.player.SeekTo(m.player.StartTime())
	case key.Matches(msg, m.keys.VolUp):
		m.player.AdjustVolume(volumeStep)
		m.volume = m.player.Volume()
	case key.Matches(msg, m.keys.VolDown):
		m.player.AdjustVolume(-volumeStep)
		m.volume = m.player.Volume()
	case key.Matches(msg, m.keys.Viz):
		m.vizIdx = (m.vizIdx + 1) % len(m.vizs)
		m.showVideo = false
	case key.Matches(msg, m.keys.Video):
		m.showVideo = !m.showVideo
	case key.Matches(msg, m.keys.Loop):
		m.loop = !m.loop
	case key.Matches(msg, m.keys.Stats):
		m.showStats = !m.showStats
	}
	return m, nil
}

func (m *Model) updateVisualizer() {
	if m.ring == nil || m.showVideo || len(m.vizs) == 0 {
		return
	}
	ch := max(m.info.AudioChannels, 1)
	samples := m.ring.Read(vizFrames * ch)
	if len(samples) == 0 {
		return
	}
	m.vizs[m.vizIdx].Update(samples, ch, m.contentWidth()-4, vizHeight)
}

func (m Model) contentWidth() int {
	if m.width < 30 {
		return 50
	}
	return m.width
}

// videoHeight leaves room for the text lines around the picture.
func (m Model) videoHeight() int {
	return max(m.height-14, vizHeight)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.contentWidth()

	header := headerStyle.Render("webmplay")
	title := titleStyle.Render(m.metadata.Title)

	subtitle := ""
	if m.metadata.Artist != "" && m.metadata.Album != "" {
		subtitle = artistStyle.Render(fmt.Sprintf("%s - %s", m.metadata.Artist, m.metadata.Album))
	} else if m.metadata.Artist != "" {
		subtitle = artistStyle.Render(m.metadata.Artist)
	} else if m.metadata.Album != "" {
		subtitle = artistStyle.Render(m.metadata.Album)
	}

	elapsed := util.FormatDuration(m.elapsed)
	duration := util.FormatDuration(m.duration)
	barWidth := max(w-len(elapsed)-len(duration)-6, 10)
	m.progress.Width = barWidth
	progressLine := fmt.Sprintf("%s %s %s",
		timeStyle.Render(elapsed), m.progress.ViewAs(progressRatio(m.elapsed, m.duration)), timeStyle.Render(duration))
	bufferedLine := fmt.Sprintf("%s %s",
		spaces(len(elapsed)), bufferedStyle.Render(renderBufferedBar(m.player.Buffered(), m.duration, barWidth)))

	statusIcon := "▶"
	statusText := "playing"
	if m.paused {
		statusIcon = "❚❚"
		statusText = "paused"
	}
	stats := m.player.Stats()
	if !m.paused && stats.AudioQueued == 0 && m.elapsed < m.duration {
		statusIcon = m.spinner.View()
		statusText = "buffering"
	}
	leftText := fmt.Sprintf("%s  %s", statusIcon, statusText)
	if m.loop {
		leftText += "  [loop]"
	}
	if !m.showVideo && len(m.vizs) > 0 {
		leftText += "  " + m.vizs[m.vizIdx].Name()
	}
	volStr := renderVolumePercent(m.volume)
	gap := max(w-lipgloss.Width(leftText)-len(volStr)-4, 2)
	statusLine := fmt.Sprintf("%s%s%s", statusStyle.Render(leftText), spaces(gap), statusStyle.Render(volStr))

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + header + "\n")
	b.WriteString("\n")
	b.WriteString("  " + title + "\n")
	if subtitle != "" {
		b.WriteString("  " + subtitle + "\n")
	}
	if codecs := codecLine(m.info); codecs != "" {
		b.WriteString("  " + codecStyle.Render(codecs) + "\n")
	}
	b.WriteString("\n")
	if visual := m.visualView(w); visual != "" {
		for _, line := range strings.Split(visual, "\n") {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("  " + progressLine + "\n")
	b.WriteString("  " + bufferedLine + "\n")
	b.WriteString("\n")
	b.WriteString("  " + statusLine + "\n")
	if m.showStats {
		b.WriteString("  " + helpStyle.Render(statsLine(stats, m.info.HasVideo)) + "\n")
	}
	if err := m.player.Err(); err != nil {
		b.WriteString("  " + errorStyle.Render(err.Error()) + "\n")
	}
	b.WriteString("\n")
	m.help.Width = w - 4
	b.WriteString("  " + m.help.View(m.keys) + "\n")

	return b.String()
}

func (m Model) visualView(w int) string {
	if m.showVideo {
		frame := m.player.Frame()
		if frame == nil || frame.Picture == nil {
			return ""
		}
		return m.screen.View(frame.Picture, m.info.DisplayWidth, m.info.DisplayHeight, w-4, m.videoHeight())
	}
	if len(m.vizs) == 0 {
		return ""
	}
	return m.vizs[m.vizIdx].View()
}

func windowTitle(title string, paused bool) string {
	if paused {
		return "⏸ " + title + " — webmplay"
	}
	return "▶ " + title + " — webmplay"
}
