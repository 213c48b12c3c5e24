// Package audio defines the PCM types flowing through the capture and
// transcription pipeline, plus helpers for format conversion, level metering,
// and the canonical RIFF/WAVE container used to hand chunks to recognition
// backends.
//
// The two central types are:
//
//   - [Frame] — one driver-callback block of interleaved 16-bit PCM, the
//     atomic unit of transport between the capture engine and the scheduler.
//   - [Chunk] — a bounded, sequence-numbered window over the frame stream,
//     the unit submitted to a recognition backend.
//
// This package lives under pkg/ because recognition backends implemented
// outside this repository are expected to consume [Chunk] values.
package audio

import "time"

// Format describes the sample rate and channel count of a PCM stream.
type Format struct {
	// SampleRate in Hz (e.g., 44100 for meeting capture).
	SampleRate int

	// Channels: 1 for microphone capture, 2 for loopback capture.
	Channels int
}

// Frame is a single fixed-size block of interleaved signed 16-bit PCM as
// delivered by the audio driver callback. Frames are owned exclusively by the
// hand-off queue between capture and scheduling; consumers must not retain
// the Samples slice after handing the frame on.
type Frame struct {
	// Samples holds interleaved little-endian int16 PCM.
	Samples []int16

	// Channels is the interleave factor of Samples.
	Channels int

	// Seq is the monotonic capture sequence assigned by the engine.
	// It is never reused within a session, including for evicted frames.
	Seq uint64
}

// SamplesPerChannel returns the per-channel sample count of the frame.
func (f Frame) SamplesPerChannel() int {
	if f.Channels <= 0 {
		return len(f.Samples)
	}
	return len(f.Samples) / f.Channels
}

// Chunk is a window over the captured frame stream, tagged with a monotonic
// per-session sequence number. Chunks are what the transcription pipeline
// submits to recognition backends.
type Chunk struct {
	// Seq is the monotonic chunk sequence number, strictly increasing and
	// never reused within a session. The transcript is ordered by Seq.
	Seq uint64

	// Samples is the concatenation of the consumed frames' PCM data,
	// interleaved when Channels > 1.
	Samples []int16

	// SampleRate in Hz, matching the resolved capture device.
	SampleRate int

	// Channels is the interleave factor of Samples.
	Channels int

	// StartOffset and EndOffset are absolute samples-per-channel offsets of
	// this window within the session's capture stream. EndOffset - StartOffset
	// equals len(Samples)/Channels for non-overlapping windows.
	StartOffset int64
	EndOffset   int64
}

// Duration returns the playback duration of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	perChannel := len(c.Samples) / c.Channels
	return time.Duration(perChannel) * time.Second / time.Duration(c.SampleRate)
}
