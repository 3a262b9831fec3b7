// Package capture moves raw frames from packet sources to the processing pipeline.
package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueClosed is returned by blocking enqueues once the queue is closed.
var ErrQueueClosed = errors.New("capture queue closed")

// Frame is one captured link-layer frame.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Queue is a bounded FIFO between capture goroutines and the pipeline.
// Enqueue never blocks; frames that do not fit are dropped and counted.
type Queue struct {
	frames   chan Frame
	done     chan struct{}
	closed   atomic.Bool
	once     sync.Once
	dropped  atomic.Uint64
	enqueued atomic.Uint64
}

// NewQueue creates a queue holding at most capacity frames.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		frames: make(chan Frame, capacity),
		done:   make(chan struct{}),
	}
}

// Enqueue adds f to the queue. It returns false when the frame was dropped
// because the queue is full or closed.
func (q *Queue) Enqueue(f Frame) bool {
	if q.closed.Load() {
		return false
	}
	select {
	case q.frames <- f:
		q.enqueued.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// EnqueueWait adds f, waiting for free space. Offline sources use it so that
// replaying a file never loses frames.
func (q *Queue) EnqueueWait(ctx context.Context, f Frame) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.frames <- f:
		q.enqueued.Add(1)
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue waits up to timeout for a frame. It returns false on timeout, or
// once the queue is closed and every remaining frame has been handed out.
func (q *Queue) Dequeue(timeout time.Duration) (Frame, bool) {
	select {
	case f := <-q.frames:
		return f, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-q.frames:
		return f, true
	case <-q.done:
		// closed: hand out what is left without waiting
		select {
		case f := <-q.frames:
			return f, true
		default:
			return Frame{}, false
		}
	case <-timer.C:
		return Frame{}, false
	}
}

// Close rejects further enqueues. Frames already queued can still be dequeued.
// The channel itself stays open so that concurrent producers never panic.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.closed.Store(true)
		close(q.done)
	})
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	return q.closed.Load()
}

// Len returns the number of frames waiting.
func (q *Queue) Len() int {
	return len(q.frames)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.frames)
}

// Dropped returns the number of frames rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Enqueued returns the number of frames accepted.
func (q *Queue) Enqueued() uint64 {
	return q.enqueued.Load()
}
