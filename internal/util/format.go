package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/olivier-w/webmplay/internal/reader"
)

// FormatDuration formats a duration as m:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	m := total / 60
	s := total % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatRanges formats time ranges as "m:ss-m:ss, ...", or "none".
func FormatRanges(ranges []reader.TimeRange) string {
	if len(ranges) == 0 {
		return "none"
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = FormatDuration(r.Start) + "-" + FormatDuration(r.End)
	}
	return strings.Join(parts, ", ")
}

// FormatRate formats a sample rate in kHz, e.g. "48 kHz" or "22.05 kHz".
func FormatRate(hz int) string {
	s := fmt.Sprintf("%.2f", float64(hz)/1000)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + " kHz"
}

// FormatChannels names common channel layouts.
func FormatChannels(n int) string {
	switch n {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	}
	return fmt.Sprintf("%d ch", n)
}

// FormatBytes formats a byte count with a binary unit.
func FormatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
