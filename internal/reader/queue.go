package reader

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// Timed is decoded media with a presentation interval.
type Timed interface {
	Start() time.Duration
	End() time.Duration
	Size() int
}

// MediaQueue is a FIFO of decoded data shared between the decode goroutine
// and its consumers. It is safe for concurrent use.
type MediaQueue[T Timed] struct {
	mu       sync.Mutex
	items    []T
	finished bool
	changed  chan struct{}
}

func NewMediaQueue[T Timed]() *MediaQueue[T] {
	return &MediaQueue[T]{changed: make(chan struct{}, 1)}
}

func (q *MediaQueue[T]) signal() {
	select {
	case q.changed <- struct{}{}:
	default:
	}
}

// Changed is signalled after a push or Finish. One signal may cover
// several changes.
func (q *MediaQueue[T]) Changed() <-chan struct{} { return q.changed }

func (q *MediaQueue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
	q.signal()
}

func (q *MediaQueue[T]) PushFront(v T) {
	q.mu.Lock()
	q.items = append([]T{v}, q.items...)
	q.mu.Unlock()
	q.signal()
}

func (q *MediaQueue[T]) PopFront() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

func (q *MediaQueue[T]) PeekFront() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Peek returns the most recently pushed element.
func (q *MediaQueue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[len(q.items)-1], true
}

func (q *MediaQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Reset drops all elements and clears the finished flag.
func (q *MediaQueue[T]) Reset() {
	q.mu.Lock()
	q.items = nil
	q.finished = false
	q.mu.Unlock()
}

// Finish marks that no more elements will be pushed until Reset.
func (q *MediaQueue[T]) Finish() {
	q.mu.Lock()
	q.finished = true
	q.mu.Unlock()
	q.signal()
}

func (q *MediaQueue[T]) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

// AtEndOfStream reports a finished queue that has been fully consumed.
func (q *MediaQueue[T]) AtEndOfStream() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished && len(q.items) == 0
}

// Duration is the span from the first element's start to the last
// element's end.
func (q *MediaQueue[T]) Duration() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return 0
	}
	return q.items[len(q.items)-1].End() - q.items[0].Start()
}

// ElementsAfter returns the elements starting after t, oldest first.
func (q *MediaQueue[T]) ElementsAfter(t time.Duration) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return lo.Filter(q.items, func(v T, _ int) bool { return v.Start() > t })
}

// ForEach calls fn for every element in order. fn must not use the queue.
func (q *MediaQueue[T]) ForEach(fn func(T)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, v := range q.items {
		fn(v)
	}
}

// MemoryInUse sums Size over the queued elements.
func (q *MediaQueue[T]) MemoryInUse() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return lo.SumBy(q.items, func(v T) int { return v.Size() })
}
