// Package session owns the recording lifecycle: resolving the audio source,
// running capture, chunking, and recognition, and finalizing the transcript.
//
// A session moves through an explicit state machine. Capture failures are
// fatal to the session; recognition failures of individual chunks are
// absorbed by the pipeline and never change the session state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TarDeb/Smart-Meeting-Assistant/internal/capture"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/chunker"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/device"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/observe"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/pipeline"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/transcript"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
)

// State is the session lifecycle phase.
type State string

const (
	// StateIdle means no session is active.
	StateIdle State = "idle"

	// StateResolving means the audio source cascade is running.
	StateResolving State = "resolving"

	// StateRecording means capture and recognition are live.
	StateRecording State = "recording"

	// StateStopping means Stop was called and in-flight chunks are
	// draining.
	StateStopping State = "stopping"

	// StateFinalized means the transcript is complete.
	StateFinalized State = "finalized"

	// StateFailed means capture could not start or died.
	StateFailed State = "failed"
)

// ErrNotRecording is returned by Stop when no recording is in progress.
var ErrNotRecording = errors.New("session: not recording")

// ErrBusy is returned by Start when a session is already active.
var ErrBusy = errors.New("session: already recording")

// PipelineFactory builds a fresh recognition pipeline for one session.
// Pipelines are single-use; their input closes when the session stops.
type PipelineFactory func() *pipeline.Pipeline

// Config holds per-session settings.
type Config struct {
	// Source names the desired capture source.
	Source device.Request

	// Capture sizes the engine's format, frames, and hand-off queue.
	Capture capture.Config

	// Chunker sizes the recognition windows.
	Chunker chunker.Config

	// StopGrace bounds how long Stop waits for in-flight chunks.
	StopGrace time.Duration

	// DumpChunkDir, when non-empty, writes each chunk as a WAV file for
	// debugging.
	DumpChunkDir string
}

// Snapshot is a point-in-time view of the controller for the status
// endpoint.
type Snapshot struct {
	State         State         `json:"state"`
	SessionID     string        `json:"session_id,omitempty"`
	Device        string        `json:"device,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
	StartedAt     time.Time     `json:"started_at,omitzero"`
	Duration      time.Duration `json:"duration_ns,omitempty"`
	Level         float64       `json:"level"`
	ChunksEmitted uint64        `json:"chunks_emitted"`
	DroppedFrames uint64        `json:"dropped_frames"`
	Segments      int           `json:"segments"`
	Transcript    string        `json:"transcript,omitempty"`
}

// Controller runs at most one recording session at a time.
type Controller struct {
	catalog     device.Catalog
	opener      capture.StreamOpener
	newPipeline PipelineFactory
	cfg         Config
	metrics     *observe.Metrics
	log         *slog.Logger

	mu   sync.Mutex
	st   State
	sess *activeSession
}

// activeSession holds the moving parts of one recording.
type activeSession struct {
	id         string
	startedAt  time.Time
	selection  device.Selection
	sampleRate int
	engine     *capture.Engine
	chk        *chunker.Chunker
	pipe       *pipeline.Pipeline
	store      *transcript.Store

	feedCancel context.CancelFunc
	pipeCancel context.CancelFunc
	feedDone   chan struct{}
	collDone   chan struct{}

	// samples counts captured samples per channel, for duration math.
	samples atomic.Int64
	emitted atomic.Uint64
}

// Option is a functional option for Controller.
type Option func(*Controller)

// WithMetrics installs the metrics sink. Defaults to the global instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger installs the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// NewController creates a Controller. newPipeline is invoked once per
// Start.
func NewController(catalog device.Catalog, opener capture.StreamOpener, newPipeline PipelineFactory, cfg Config, opts ...Option) *Controller {
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 30 * time.Second
	}
	c := &Controller{
		catalog:     catalog,
		opener:      opener,
		newPipeline: newPipeline,
		cfg:         cfg,
		st:          StateIdle,
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Start resolves the audio source and begins recording. Returns ErrBusy if
// a session is already active. A failure to open the device moves the
// controller to StateFailed and is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.st == StateRecording || c.st == StateStopping || c.st == StateResolving {
		c.mu.Unlock()
		return ErrBusy
	}
	c.st = StateResolving
	c.mu.Unlock()

	sel, err := device.Resolve(ctx, c.catalog, c.cfg.Source)
	if err != nil {
		c.setState(StateFailed)
		return fmt.Errorf("session: resolve source: %w", err)
	}
	for _, w := range sel.Warnings {
		c.log.Warn("audio source degraded", "warning", string(w), "device", sel.Device.Name)
	}

	// The resolved channel count and rate override the configured format;
	// the chunker must agree with what the device actually delivers.
	capCfg := c.cfg.Capture
	capCfg.Format.Channels = sel.Channels
	chkCfg := c.cfg.Chunker
	chkCfg.Format.Channels = sel.Channels
	if sel.SampleRate > 0 {
		capCfg.Format.SampleRate = sel.SampleRate
		chkCfg.Format.SampleRate = sel.SampleRate
	}

	sess := &activeSession{
		id:         uuid.NewString(),
		startedAt:  time.Now(),
		selection:  sel,
		sampleRate: capCfg.Format.SampleRate,
		engine:     capture.NewEngine(c.opener, capCfg),
		chk:        chunker.New(chkCfg),
		pipe:       c.newPipeline(),
		store:      transcript.NewStore(),
		feedDone:   make(chan struct{}),
		collDone:   make(chan struct{}),
	}

	if err := sess.engine.Start(sel); err != nil {
		c.setState(StateFailed)
		return fmt.Errorf("session: start capture: %w", err)
	}

	// The feed loop and the pipeline stop at different times: Stop cancels
	// the feed first, drains the queue, and only tears the pipeline down
	// after the grace period.
	feedCtx, feedCancel := context.WithCancel(context.Background())
	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	sess.feedCancel = feedCancel
	sess.pipeCancel = pipeCancel

	go func() {
		if err := sess.pipe.Run(pipeCtx); err != nil && !errors.Is(err, context.Canceled) {
			c.log.Error("pipeline stopped", "error", err)
		}
	}()
	go c.feed(feedCtx, sess)
	go c.collect(sess)
	go c.watchCapture(feedCtx, sess)

	c.mu.Lock()
	c.sess = sess
	c.st = StateRecording
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, 1)
	c.log.Info("recording started",
		"session_id", sess.id,
		"device", sel.Device.Name,
		"channels", sel.Channels,
		"sample_rate", capCfg.Format.SampleRate)
	return nil
}

// feed moves frames from the capture queue through the chunker into the
// pipeline until ctx is cancelled.
func (c *Controller) feed(ctx context.Context, sess *activeSession) {
	defer close(sess.feedDone)
	for {
		f, err := sess.engine.Pop(ctx)
		if err != nil {
			return
		}
		sess.samples.Add(int64(f.SamplesPerChannel()))
		for _, chunk := range sess.chk.Add(f) {
			c.submit(ctx, sess, chunk)
		}
	}
}

// submit hands one chunk to the pipeline with accounting.
func (c *Controller) submit(ctx context.Context, sess *activeSession, chunk audio.Chunk) {
	sess.emitted.Add(1)
	c.metrics.ChunksEmitted.Add(ctx, 1)
	if c.cfg.DumpChunkDir != "" {
		c.dumpChunk(sess, chunk)
	}
	sess.pipe.Submit(chunk)
}

// watchCapture aborts the session when the capture stream dies after a
// successful start. The engine is already closed by then; the session fails
// and must be restarted.
func (c *Controller) watchCapture(ctx context.Context, sess *activeSession) {
	select {
	case err := <-sess.engine.Errors():
		c.mu.Lock()
		if c.sess != sess || c.st != StateRecording {
			c.mu.Unlock()
			return
		}
		c.st = StateFailed
		c.sess = nil
		c.mu.Unlock()

		c.log.Error("capture failed; session aborted",
			"session_id", sess.id, "error", err)

		sess.feedCancel()
		<-sess.feedDone
		sess.pipe.CloseInput()
		sess.pipeCancel()
		c.metrics.ActiveSessions.Add(context.Background(), -1)
	case <-ctx.Done():
	}
}

// collect appends ordered pipeline results to the transcript store.
func (c *Controller) collect(sess *activeSession) {
	defer close(sess.collDone)
	for res := range sess.pipe.Results() {
		rate := res.SampleRate
		if rate <= 0 {
			rate = 1
		}
		sess.store.Append(transcript.Segment{
			Seq:     res.Seq,
			Text:    res.Text,
			Backend: res.Backend,
			Start:   time.Duration(res.StartOffset) * time.Second / time.Duration(rate),
			End:     time.Duration(res.EndOffset) * time.Second / time.Duration(rate),
		})
	}
}

// Stop ends the recording, drains in-flight chunks within the grace
// period, and returns the finished transcript.
func (c *Controller) Stop(ctx context.Context) (transcript.Final, error) {
	c.mu.Lock()
	if c.st != StateRecording {
		c.mu.Unlock()
		return transcript.Final{}, ErrNotRecording
	}
	sess := c.sess
	c.st = StateStopping
	c.mu.Unlock()

	c.log.Info("stopping recording", "session_id", sess.id)

	// Halt the driver first so the queue stops growing, then let the feed
	// loop finish before draining what remains.
	if err := sess.engine.Stop(); err != nil {
		c.log.Warn("capture stop", "error", err)
	}
	sess.feedCancel()
	<-sess.feedDone

	for {
		f, ok := sess.engine.TryPop()
		if !ok {
			break
		}
		sess.samples.Add(int64(f.SamplesPerChannel()))
		for _, chunk := range sess.chk.Add(f) {
			c.submit(ctx, sess, chunk)
		}
	}
	if final := sess.chk.Flush(); final != nil {
		c.submit(ctx, sess, *final)
	}
	sess.pipe.CloseInput()

	// Give in-flight recognition a bounded chance to finish, then tear the
	// pipeline down either way.
	select {
	case <-sess.collDone:
	case <-time.After(c.cfg.StopGrace):
		c.log.Warn("stop grace elapsed; abandoning in-flight chunks",
			"session_id", sess.id)
	case <-ctx.Done():
	}
	sess.pipeCancel()

	duration := c.capturedDuration(sess)
	final := sess.store.Finalize(sess.id, sess.startedAt, duration, sess.engine.Dropped())

	if dropped := sess.engine.Dropped(); dropped > 0 {
		c.metrics.FramesDropped.Add(ctx, int64(dropped))
		c.log.Warn("frames dropped during session",
			"session_id", sess.id, "dropped", dropped)
	}

	c.mu.Lock()
	c.st = StateFinalized
	c.sess = nil
	c.mu.Unlock()

	c.metrics.ActiveSessions.Add(ctx, -1)
	c.log.Info("recording finalized",
		"session_id", sess.id,
		"duration", duration,
		"segments", final.Stats.Segments,
		"words", final.Stats.Words)
	return final, nil
}

// capturedDuration converts counted samples to audio time.
func (c *Controller) capturedDuration(sess *activeSession) time.Duration {
	if sess.sampleRate <= 0 {
		return 0
	}
	return time.Duration(sess.samples.Load()) * time.Second / time.Duration(sess.sampleRate)
}

// Level reports the live input level, 0 to 100. Zero when not recording.
func (c *Controller) Level() float64 {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return 0
	}
	return sess.engine.Level()
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Live returns a snapshot for the status endpoint.
func (c *Controller) Live() Snapshot {
	c.mu.Lock()
	st := c.st
	sess := c.sess
	c.mu.Unlock()

	snap := Snapshot{State: st}
	if sess == nil {
		return snap
	}
	snap.SessionID = sess.id
	snap.Device = sess.selection.Device.Name
	for _, w := range sess.selection.Warnings {
		snap.Warnings = append(snap.Warnings, string(w))
	}
	snap.StartedAt = sess.startedAt
	snap.Duration = c.capturedDuration(sess)
	snap.Level = sess.engine.Level()
	snap.ChunksEmitted = sess.emitted.Load()
	snap.DroppedFrames = sess.engine.Dropped()
	snap.Segments = sess.store.Len()
	snap.Transcript = sess.store.Text()
	return snap
}

// dumpChunk writes one chunk as a WAV file for debugging. Failures are
// logged, never fatal.
func (c *Controller) dumpChunk(sess *activeSession, chunk audio.Chunk) {
	data, err := audio.EncodeChunk(chunk)
	if err != nil {
		c.log.Warn("encode debug chunk", "seq", chunk.Seq, "error", err)
		return
	}
	if err := os.MkdirAll(c.cfg.DumpChunkDir, 0o755); err != nil {
		c.log.Warn("create debug chunk dir", "error", err)
		return
	}
	name := fmt.Sprintf("%s_chunk_%06d.wav", sess.id[:8], chunk.Seq)
	if err := os.WriteFile(filepath.Join(c.cfg.DumpChunkDir, name), data, 0o644); err != nil {
		c.log.Warn("write debug chunk", "seq", chunk.Seq, "error", err)
	}
}
