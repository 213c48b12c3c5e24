package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/TarDeb/Smart-Meeting-Assistant/internal/device"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
)

// Stream is an open audio capture stream.
type Stream interface {
	// Start begins delivering frames to the callback.
	Start() error

	// Stop halts frame delivery. Safe to call once after Start. May block
	// until an in-flight callback returns.
	Stop() error

	// Close releases the stream. The callback is not invoked after Close
	// returns.
	Close() error
}

// ErrorSource is an optional Stream capability: streams that can die
// asynchronously report the failure on the channel. Streams without it fail
// only through Stop/Close return values.
type ErrorSource interface {
	Errors() <-chan error
}

// StreamOpener opens a capture stream on a resolved device. The callback
// receives one frame of interleaved samples per driver period and must not
// block or retain the slice.
type StreamOpener interface {
	Open(sel device.Selection, format audio.Format, frameSize int, callback func(samples []int16)) (Stream, error)
}

// State is the engine lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateOpening   State = "opening"
	StateStreaming State = "streaming"
	StateStopping  State = "stopping"
	StateClosed    State = "closed"
	StateFailed    State = "failed"
)

// Config holds the engine's capture parameters.
type Config struct {
	// Format is the sample rate and channel count to open the device with.
	Format audio.Format

	// FrameSize is the number of samples per channel per driver callback.
	FrameSize int

	// QueueCapacity bounds the frame hand-off queue.
	QueueCapacity int

	// LevelWindow is the number of recent frames averaged by Level.
	LevelWindow int
}

// Engine owns one capture stream and the hand-off queue feeding the chunker.
// Frames are stamped with an ascending sequence number in callback order.
// Engines are single-use: Idle → Opening → Streaming → Stopping → Closed,
// with Failed reachable from Opening and Streaming.
type Engine struct {
	opener StreamOpener
	cfg    Config
	queue  *FrameQueue
	errs   chan error

	mu      sync.Mutex
	state   State
	stream  Stream
	done    chan struct{}
	nextSeq uint64

	// levelFrames is a ring of the most recent frames for Level.
	levelFrames []audio.Frame
	levelNext   int
	levelCount  int
}

// NewEngine creates an engine that opens streams through opener.
func NewEngine(opener StreamOpener, cfg Config) *Engine {
	if cfg.LevelWindow <= 0 {
		cfg.LevelWindow = 5
	}
	return &Engine{
		opener:      opener,
		cfg:         cfg,
		queue:       NewFrameQueue(cfg.QueueCapacity),
		errs:        make(chan error, 1),
		state:       StateIdle,
		levelFrames: make([]audio.Frame, cfg.LevelWindow),
	}
}

// Start opens the capture stream on the selected device and begins filling
// the queue. Returns an error unless the engine is idle; an open or start
// failure moves it to StateFailed.
func (e *Engine) Start(sel device.Selection) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return fmt.Errorf("capture: engine is %s, not idle", e.state)
	}
	e.state = StateOpening
	e.done = make(chan struct{})
	e.mu.Unlock()

	stream, err := e.opener.Open(sel, e.cfg.Format, e.cfg.FrameSize, e.onFrame)
	if err != nil {
		e.setState(StateFailed)
		return fmt.Errorf("capture: open stream on %q: %w", sel.Device.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		e.setState(StateFailed)
		return fmt.Errorf("capture: start stream on %q: %w", sel.Device.Name, err)
	}

	e.mu.Lock()
	e.stream = stream
	e.state = StateStreaming
	e.mu.Unlock()

	if src, ok := stream.(ErrorSource); ok {
		go e.watch(src)
	}
	return nil
}

// Stop halts the stream and releases it. Frames already queued remain
// available to Pop. A no-op unless the engine is streaming.
//
// The stream is stopped outside the lock: Pa_StopStream blocks until the
// in-flight callback returns, and the callback takes the same lock.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateStreaming {
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	stream := e.stream
	e.stream = nil
	close(e.done)
	e.mu.Unlock()

	var errs []error
	if err := stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("capture: stop stream: %w", err))
	}
	if err := stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("capture: close stream: %w", err))
	}
	e.setState(StateClosed)
	return errors.Join(errs...)
}

// watch moves the engine to StateFailed when the stream reports an
// asynchronous failure, and forwards the error to Errors.
func (e *Engine) watch(src ErrorSource) {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()

	select {
	case err, ok := <-src.Errors():
		if !ok {
			return
		}
		e.mu.Lock()
		if e.state != StateStreaming {
			e.mu.Unlock()
			return
		}
		e.state = StateFailed
		stream := e.stream
		e.stream = nil
		close(e.done)
		e.mu.Unlock()

		_ = stream.Close()
		e.errs <- fmt.Errorf("capture: stream failed: %w", err)
	case <-done:
	}
}

// Errors reports a fatal stream failure after a successful Start. At most
// one error is ever sent; the channel is never closed.
func (e *Engine) Errors() <-chan error {
	return e.errs
}

// onFrame runs on the driver callback thread. It copies the samples,
// stamps the sequence, and hands off without blocking.
func (e *Engine) onFrame(samples []int16) {
	f := audio.Frame{
		Samples:  append([]int16(nil), samples...),
		Channels: e.cfg.Format.Channels,
	}

	e.mu.Lock()
	if e.state != StateOpening && e.state != StateStreaming {
		e.mu.Unlock()
		return
	}
	f.Seq = e.nextSeq
	e.nextSeq++
	e.levelFrames[e.levelNext] = f
	e.levelNext = (e.levelNext + 1) % len(e.levelFrames)
	if e.levelCount < len(e.levelFrames) {
		e.levelCount++
	}
	e.mu.Unlock()

	e.queue.Push(f)
}

// Pop returns the oldest queued frame, blocking until one arrives or ctx
// ends.
func (e *Engine) Pop(ctx context.Context) (audio.Frame, error) {
	return e.queue.Pop(ctx)
}

// TryPop returns the oldest queued frame without blocking.
func (e *Engine) TryPop() (audio.Frame, bool) {
	return e.queue.TryPop()
}

// Level reports the average input level over the recent frame window,
// scaled 0 to 100.
func (e *Engine) Level() float64 {
	e.mu.Lock()
	frames := make([]audio.Frame, 0, e.levelCount)
	for i := range e.levelCount {
		idx := (e.levelNext - e.levelCount + i + len(e.levelFrames)) % len(e.levelFrames)
		frames = append(frames, e.levelFrames[idx])
	}
	e.mu.Unlock()
	return audio.LevelOfFrames(frames)
}

// Dropped returns the number of frames evicted from the hand-off queue.
func (e *Engine) Dropped() uint64 {
	return e.queue.Dropped()
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether the stream is delivering frames.
func (e *Engine) Running() bool {
	return e.State() == StateStreaming
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
