// Package chunker slices the capture frame stream into fixed-length windows
// for recognition.
//
// Window length is accounted in buffered samples per channel, never in wall
// clock time, so a stalled driver produces late chunks rather than empty
// ones. Chunks carry an ascending sequence number; an optional overlap
// carries the tail of each window into the next so words straddling a
// boundary are heard by both chunks.
package chunker

import (
	"sync"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
)

// Config sizes the chunk windows.
type Config struct {
	// Format is the capture sample rate and channel count.
	Format audio.Format

	// WindowSeconds is the window length. Ignored when WindowFrames is
	// positive.
	WindowSeconds float64

	// WindowFrames, when positive, sizes windows as a fixed count of
	// capture frames instead of a duration. FrameSize must then also be
	// set.
	WindowFrames int

	// FrameSize is the samples per channel per capture frame. Only used
	// with WindowFrames.
	FrameSize int

	// OverlapSeconds is the window tail carried into the next chunk.
	// Zero disables overlap.
	OverlapSeconds float64
}

// windowSamples returns the window length in samples per channel.
func (c Config) windowSamples() int {
	if c.WindowFrames > 0 {
		return c.WindowFrames * c.FrameSize
	}
	return int(c.WindowSeconds * float64(c.Format.SampleRate))
}

// overlapSamples returns the overlap length in samples per channel.
func (c Config) overlapSamples() int {
	return int(c.OverlapSeconds * float64(c.Format.SampleRate))
}

// Chunker accumulates frames and emits fixed-length chunks. Safe for one
// producer; Add and Flush must not race each other.
type Chunker struct {
	cfg     Config
	window  int // samples per channel per chunk
	overlap int // samples per channel carried over

	mu      sync.Mutex
	pending []int16 // interleaved buffered samples
	nextSeq uint64
	offset  int64 // absolute sample-per-channel offset of pending[0]
	emitted uint64
}

// New creates a Chunker. Config must describe a positive window.
func New(cfg Config) *Chunker {
	return &Chunker{
		cfg:     cfg,
		window:  cfg.windowSamples(),
		overlap: cfg.overlapSamples(),
	}
}

// Add buffers one capture frame and returns any chunks that completed.
// Most calls return nil; a full window returns one chunk, and a frame
// larger than the window can return several.
func (c *Chunker) Add(f audio.Frame) []audio.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, f.Samples...)

	var chunks []audio.Chunk
	windowInterleaved := c.window * c.cfg.Format.Channels
	for len(c.pending) >= windowInterleaved {
		chunks = append(chunks, c.emit(c.pending[:windowInterleaved]))

		keep := c.overlap * c.cfg.Format.Channels
		advance := windowInterleaved - keep
		if advance <= 0 {
			advance = windowInterleaved
		}
		c.pending = c.pending[advance:]
		c.offset += int64(advance / c.cfg.Format.Channels)
	}
	return chunks
}

// Flush emits whatever is buffered as one final short chunk. Returns nil
// when nothing is buffered or only overlap remains. Call once when capture
// stops so trailing speech shorter than a window is not lost.
func (c *Chunker) Flush() *audio.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := len(c.pending) - c.overlap*c.cfg.Format.Channels
	if len(c.pending) == 0 || (c.emitted > 0 && fresh <= 0) {
		c.pending = nil
		return nil
	}

	chunk := c.emit(c.pending)
	c.offset += int64(len(c.pending) / c.cfg.Format.Channels)
	c.pending = nil
	return &chunk
}

// emit builds a chunk from interleaved samples. Caller holds the lock.
func (c *Chunker) emit(samples []int16) audio.Chunk {
	perChannel := int64(len(samples) / c.cfg.Format.Channels)
	chunk := audio.Chunk{
		Seq:         c.nextSeq,
		Samples:     append([]int16(nil), samples...),
		SampleRate:  c.cfg.Format.SampleRate,
		Channels:    c.cfg.Format.Channels,
		StartOffset: c.offset,
		EndOffset:   c.offset + perChannel,
	}
	c.nextSeq++
	c.emitted++
	return chunk
}

// Emitted returns the number of chunks produced so far.
func (c *Chunker) Emitted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emitted
}
