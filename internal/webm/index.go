package webm

import (
	"sync"
	"time"

	"github.com/huandu/skiplist"
)

// CuePoint maps a presentation time to the cluster that contains it.
type CuePoint struct {
	Time          time.Duration
	Track         uint64
	ClusterOffset int64
}

// CueIndex holds cue points ordered by time. Keys are stored negated so
// that Find yields the latest cue at or before a target time.
type CueIndex struct {
	mu   sync.Mutex
	list *skiplist.SkipList
}

func NewCueIndex() *CueIndex {
	return &CueIndex{list: skiplist.New(skiplist.Int64)}
}

// Add records cp. A later cue with the same time replaces the earlier one.
func (c *CueIndex) Add(cp CuePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Set(-int64(cp.Time), cp)
}

// Floor returns the last cue whose time is at or before t.
func (c *CueIndex) Floor(t time.Duration) (CuePoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el := c.list.Find(-int64(t))
	if el == nil {
		return CuePoint{}, false
	}
	return el.Value.(CuePoint), true
}

func (c *CueIndex) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Points returns the cue points in ascending time order.
func (c *CueIndex) Points() []CuePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CuePoint, c.list.Len())
	i := len(out) - 1
	for el := c.list.Front(); el != nil; el = el.Next() {
		out[i] = el.Value.(CuePoint)
		i--
	}
	return out
}

// ByteRange is a half-open range of available source bytes.
type ByteRange struct {
	Start int64
	End   int64
}

// RangeSource is implemented by sources that know which bytes are present,
// such as a partially downloaded file.
type RangeSource interface {
	BufferedRanges() []ByteRange
}

// ClusterIndex maps cluster byte offsets to cluster start times. It is fed
// by cues and by clusters as they are parsed, and may be read from another
// goroutine while the parser writes to it.
type ClusterIndex struct {
	mu   sync.Mutex
	list *skiplist.SkipList
}

func NewClusterIndex() *ClusterIndex {
	return &ClusterIndex{list: skiplist.New(skiplist.Int64)}
}

func (c *ClusterIndex) Add(offset int64, t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Set(offset, t)
}

func (c *ClusterIndex) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// TimeRange returns the span of presentation time covered by the clusters
// that start inside [start, end). A cluster counts as complete when the next
// known cluster starts exactly at end, or when complete is set and no cluster
// follows, in which case the range runs to streamEnd.
func (c *ClusterIndex) TimeRange(start, end int64, complete bool, streamEnd time.Duration) (time.Duration, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	first := c.list.Find(start)
	if first == nil || first.Key().(int64) >= end {
		return 0, 0, false
	}
	from := first.Value.(time.Duration)

	last := first
	for el := first.Next(); el != nil && el.Key().(int64) < end; el = el.Next() {
		last = el
	}

	var to time.Duration
	switch next := last.Next(); {
	case next != nil && next.Key().(int64) == end:
		to = next.Value.(time.Duration)
	case next == nil && complete && streamEnd > from:
		to = streamEnd
	default:
		to = last.Value.(time.Duration)
	}
	if to <= from {
		return 0, 0, false
	}
	return from, to, true
}
