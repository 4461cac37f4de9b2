package reader

import (
	"slices"
	"time"
)

// Info describes the tracks selected by ReadMetadata.
type Info struct {
	HasAudio      bool
	HasVideo      bool
	AudioRate     int
	AudioChannels int
	AudioCodec    string
	VideoCodec    string
	Width         int
	Height        int
	DisplayWidth  int
	DisplayHeight int
	Duration      time.Duration
	Title         string
	Tags          map[string]string
}

// TimeRange is a half-open span of presentation time.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// normalizeRanges sorts ranges and merges the ones that touch or overlap.
func normalizeRanges(ranges []TimeRange) []TimeRange {
	ranges = slices.DeleteFunc(ranges, func(r TimeRange) bool { return r.End <= r.Start })
	slices.SortFunc(ranges, func(a, b TimeRange) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	var out []TimeRange
	for _, r := range ranges {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, r.End)
			continue
		}
		out = append(out, r)
	}
	return out
}
