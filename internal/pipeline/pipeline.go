// Package pipeline runs concurrent speech recognition over audio chunks and
// reassembles the results in capture order.
//
// A pool of workers pulls chunks from a bounded input queue. Each chunk is
// tried against the primary backend; only an unreachable primary diverts the
// chunk to the fallback backend. Unrecognized audio and per-chunk timeouts
// become empty results rather than errors, so one bad chunk never stalls the
// transcript. A reorder stage releases results in ascending chunk sequence
// regardless of worker completion order.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TarDeb/Smart-Meeting-Assistant/internal/observe"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/resilience"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
)

// Result is one chunk's transcription, released in sequence order.
type Result struct {
	// Seq is the chunk sequence number.
	Seq uint64

	// Text is the normalized transcription. Empty means the chunk carried
	// no recognizable speech or its recognition was abandoned.
	Text string

	// Backend names the backend that produced Text, or is empty when no
	// backend answered.
	Backend string

	// StartOffset and EndOffset are the chunk's sample-per-channel
	// positions in the session audio.
	StartOffset int64
	EndOffset   int64

	// SampleRate is the chunk's sample rate, for offset-to-time math.
	SampleRate int
}

// Config holds pipeline tuning.
type Config struct {
	// Workers is the number of concurrent recognition workers. Default: 3,
	// clamped to [2, 4].
	Workers int

	// ChunkTimeout bounds one chunk's recognition across both backends.
	// Default: 15s.
	ChunkTimeout time.Duration

	// QueueSize bounds the chunk input queue. Default: 64.
	QueueSize int
}

// Pipeline transcribes chunks concurrently and emits ordered results.
type Pipeline struct {
	primary  recognizer.Backend
	fallback recognizer.Backend // nil when not configured
	breaker  *resilience.Breaker
	cfg      Config
	metrics  *observe.Metrics
	log      *slog.Logger

	in      chan audio.Chunk
	results chan Result
}

// Option is a functional option for Pipeline.
type Option func(*Pipeline)

// WithMetrics installs the metrics sink. Defaults to the global instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger installs the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithBreaker installs the circuit breaker guarding the primary backend.
// By default a breaker with standard settings is created.
func WithBreaker(b *resilience.Breaker) Option {
	return func(p *Pipeline) { p.breaker = b }
}

// New creates a Pipeline over the given backends. fallback may be nil.
func New(primary recognizer.Backend, fallback recognizer.Backend, cfg Config, opts ...Option) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.Workers < 2 {
		cfg.Workers = 2
	}
	if cfg.Workers > 4 {
		cfg.Workers = 4
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = 15 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	p := &Pipeline{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		in:       make(chan audio.Chunk, cfg.QueueSize),
		results:  make(chan Result, cfg.QueueSize),
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.breaker == nil {
		p.breaker = resilience.New(resilience.Config{Name: primary.Name()})
	}
	return p
}

// Submit queues a chunk for recognition. Blocks when the queue is full.
// Must not be called after CloseInput.
func (p *Pipeline) Submit(chunk audio.Chunk) {
	p.in <- chunk
}

// CloseInput signals that no more chunks will arrive. Run returns once the
// queued chunks are done.
func (p *Pipeline) CloseInput() {
	close(p.in)
}

// Results returns the ordered result stream. Closed when Run returns.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// Run processes chunks until the input is closed and drained, or ctx is
// cancelled. It always closes the result channel before returning.
func (p *Pipeline) Run(ctx context.Context) error {
	unordered := make(chan Result, p.cfg.QueueSize)

	g, ctx := errgroup.WithContext(ctx)
	for range p.cfg.Workers {
		g.Go(func() error {
			for {
				select {
				case chunk, ok := <-p.in:
					if !ok {
						return nil
					}
					unordered <- p.transcribe(ctx, chunk)
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		})
	}

	// The collector owns the reorder state; it is the only reader of
	// unordered and the only writer of results.
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		defer close(p.results)
		ro := newReorder()
		for res := range unordered {
			for _, ready := range ro.add(res) {
				p.results <- ready
			}
		}
		if n := ro.buffered(); n > 0 {
			p.log.Warn("discarding results with missing predecessors", "count", n)
		}
	}()

	err := g.Wait()
	close(unordered)
	<-collectorDone
	return err
}

// transcribe bounds one chunk's recognition by the chunk timeout and always
// returns a result, empty-texted on failure. The backend calls run in their
// own goroutine: a backend that never observes cancellation (the native
// whisper bindings cannot interrupt an inference) must not hold the worker
// or the chunk's sequence slot past the deadline. Its late answer is
// discarded.
func (p *Pipeline) transcribe(ctx context.Context, chunk audio.Chunk) Result {
	res := Result{
		Seq:         chunk.Seq,
		StartOffset: chunk.StartOffset,
		EndOffset:   chunk.EndOffset,
		SampleRate:  chunk.SampleRate,
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.ChunkTimeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- p.recognize(cctx, chunk, res)
	}()

	select {
	case r := <-done:
		return r
	case <-cctx.Done():
		p.metrics.RecordRecognitionError(ctx, p.primary.Name(), "abandoned")
		p.log.Warn("chunk abandoned; backend still running at deadline",
			"seq", chunk.Seq)
		return res
	}
}

// recognize runs one chunk through the backend policy.
func (p *Pipeline) recognize(ctx context.Context, chunk audio.Chunk, res Result) Result {
	if p.breaker.Allow() {
		text, err := p.call(ctx, p.primary, chunk)
		switch {
		case err == nil:
			p.breaker.Record(nil)
			res.Text = text
			res.Backend = p.primary.Name()
			return res
		case errors.Is(err, recognizer.ErrUnrecognized):
			// The backend answered; silence is not an availability failure.
			p.breaker.Record(nil)
			return res
		case errors.Is(err, context.DeadlineExceeded):
			p.breaker.Record(err)
			p.log.Warn("chunk abandoned after timeout",
				"seq", chunk.Seq, "backend", p.primary.Name())
			return res
		case errors.Is(err, recognizer.ErrUnreachable):
			p.breaker.Record(err)
			// Fall through to the fallback backend below.
		default:
			p.breaker.Record(err)
			p.log.Warn("chunk failed on primary backend",
				"seq", chunk.Seq, "backend", p.primary.Name(), "error", err)
			return res
		}
	}

	if p.fallback == nil {
		p.log.Warn("primary unreachable and no fallback configured", "seq", chunk.Seq)
		return res
	}

	text, err := p.call(ctx, p.fallback, chunk)
	switch {
	case err == nil:
		res.Text = text
		res.Backend = p.fallback.Name()
	case errors.Is(err, recognizer.ErrUnrecognized):
	default:
		p.log.Warn("chunk failed on fallback backend",
			"seq", chunk.Seq, "backend", p.fallback.Name(), "error", err)
	}
	return res
}

// call invokes one backend with metrics accounting and normalizes the text.
func (p *Pipeline) call(ctx context.Context, b recognizer.Backend, chunk audio.Chunk) (string, error) {
	start := time.Now()
	text, err := b.Transcribe(ctx, chunk.Samples, chunk.SampleRate, chunk.Channels)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		p.metrics.RecordRecognition(ctx, b.Name(), "ok", elapsed)
	case errors.Is(err, recognizer.ErrUnrecognized):
		p.metrics.RecordRecognition(ctx, b.Name(), "unrecognized", elapsed)
	case errors.Is(err, context.DeadlineExceeded):
		p.metrics.RecordRecognition(ctx, b.Name(), "timeout", elapsed)
		p.metrics.RecordRecognitionError(ctx, b.Name(), "timeout")
	case errors.Is(err, recognizer.ErrUnreachable):
		p.metrics.RecordRecognition(ctx, b.Name(), "unreachable", elapsed)
		p.metrics.RecordRecognitionError(ctx, b.Name(), "unreachable")
	default:
		p.metrics.RecordRecognition(ctx, b.Name(), "error", elapsed)
		p.metrics.RecordRecognitionError(ctx, b.Name(), "error")
	}

	if err != nil {
		return "", err
	}
	return recognizer.Normalize(text), nil
}
