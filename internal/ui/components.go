package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/olivier-w/webmplay/internal/player"
	"github.com/olivier-w/webmplay/internal/reader"
	"github.com/olivier-w/webmplay/internal/util"
)

func renderVolumePercent(vol float64) string {
	return fmt.Sprintf("vol %d%%", int(vol*100+0.5))
}

// renderBufferedBar marks each cell whose midpoint falls in a buffered
// range. Ranges are relative to the start time, like elapsed.
func renderBufferedBar(ranges []reader.TimeRange, total time.Duration, width int) string {
	width = max(width, 10)
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	var sb strings.Builder
	for i := range width {
		mid := time.Duration((float64(i) + 0.5) / float64(width) * float64(total))
		in := lo.ContainsBy(ranges, func(r reader.TimeRange) bool {
			return mid >= r.Start && mid < r.End
		})
		if in {
			sb.WriteString("▓")
		} else {
			sb.WriteString("░")
		}
	}
	return sb.String()
}

// codecLine describes the selected tracks, e.g.
// "V_VP8 640×360 · A_VORBIS 48 kHz stereo".
func codecLine(info reader.Info) string {
	var parts []string
	if info.HasVideo {
		w, h := info.DisplayWidth, info.DisplayHeight
		if w == 0 || h == 0 {
			w, h = info.Width, info.Height
		}
		parts = append(parts, fmt.Sprintf("%s %d×%d", info.VideoCodec, w, h))
	}
	if info.HasAudio {
		parts = append(parts, fmt.Sprintf("%s %s %s", info.AudioCodec,
			util.FormatRate(info.AudioRate), util.FormatChannels(info.AudioChannels)))
	}
	return strings.Join(parts, " · ")
}

func statsLine(s player.Stats, hasVideo bool) string {
	line := fmt.Sprintf("events %d", s.EventsDelivered)
	if s.EventsDropped > 0 {
		line += fmt.Sprintf(" (%d dropped)", s.EventsDropped)
	}
	if hasVideo {
		line += fmt.Sprintf(" · frames %d shown, %d dup, %d late", s.FramesShown, s.FramesDuplicated, s.FramesLate)
	}
	line += fmt.Sprintf(" · queued %.1fs, %s", s.AudioQueued.Seconds(), util.FormatBytes(s.MemoryInUse))
	return line
}

func progressRatio(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return lo.Clamp(float64(elapsed)/float64(total), 0, 1)
}

func spaces(n int) string {
	return strings.Repeat(" ", max(n, 0))
}
