// Package dispatch runs posted tasks in order on a single goroutine.
package dispatch

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of tasks. Post never blocks, so it is safe to
// call while holding other locks. Tasks run on whichever goroutine calls Run
// or RunPending.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
}

func New() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Post appends task. Tasks posted after Close are dropped.
func (q *Queue) Post(task func()) {
	if task == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	tasks := q.tasks
	q.tasks = nil
	return tasks
}

// RunPending runs every task queued so far on the calling goroutine and
// returns how many ran. Tasks posted while it runs wait for the next call.
func (q *Queue) RunPending() int {
	tasks := q.take()
	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Run executes tasks as they are posted until ctx is done or the queue is
// closed. Tasks already queued at Close still run.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.RunPending()

		q.mu.Lock()
		closed := q.closed && len(q.tasks) == 0
		q.mu.Unlock()
		if closed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting tasks and wakes Run so it can return.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}
