// Package capture pulls PCM frames from an audio device into a bounded
// hand-off queue.
//
// The audio driver invokes its callback on a real-time thread, so the
// callback must never block. Frames are copied into a [FrameQueue] that
// evicts the oldest frame when full; a slow consumer loses the oldest audio
// rather than stalling the driver.
package capture

import (
	"context"
	"sync"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
)

// FrameQueue is a bounded FIFO of audio frames with drop-oldest overflow.
// Push never blocks; Pop blocks until a frame arrives or the context ends.
// Safe for one producer and one consumer running concurrently.
type FrameQueue struct {
	mu      sync.Mutex
	frames  []audio.Frame
	head    int
	count   int
	dropped uint64

	// notify wakes a blocked Pop after a Push. Buffered so Push never
	// blocks on it.
	notify chan struct{}
}

// NewFrameQueue creates a queue holding at most capacity frames.
// capacity must be positive.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		panic("capture: frame queue capacity must be positive")
	}
	return &FrameQueue{
		frames: make([]audio.Frame, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends f to the queue. When the queue is full the oldest frame is
// evicted and the dropped counter incremented. Never blocks.
func (q *FrameQueue) Push(f audio.Frame) {
	q.mu.Lock()
	if q.count == len(q.frames) {
		q.head = (q.head + 1) % len(q.frames)
		q.count--
		q.dropped++
	}
	q.frames[(q.head+q.count)%len(q.frames)] = f
	q.count++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest frame, blocking until one is available
// or ctx is done.
func (q *FrameQueue) Pop(ctx context.Context) (audio.Frame, error) {
	for {
		q.mu.Lock()
		if q.count > 0 {
			f := q.frames[q.head]
			q.frames[q.head] = audio.Frame{}
			q.head = (q.head + 1) % len(q.frames)
			q.count--
			q.mu.Unlock()
			return f, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-ctx.Done():
			return audio.Frame{}, ctx.Err()
		}
	}
}

// TryPop removes and returns the oldest frame without blocking.
// The second return is false when the queue is empty.
func (q *FrameQueue) TryPop() (audio.Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return audio.Frame{}, false
	}
	f := q.frames[q.head]
	q.frames[q.head] = audio.Frame{}
	q.head = (q.head + 1) % len(q.frames)
	q.count--
	return f, true
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns the total number of frames evicted since creation.
func (q *FrameQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
