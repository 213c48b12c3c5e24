// Package recognizer defines the Backend interface for batch speech
// recognition services.
//
// A backend wraps a recognition service (the OpenAI transcription API, a
// whisper.cpp server, or the in-process whisper.cpp bindings) and exposes a
// uniform synchronous call: PCM in, text out. Failure modes are an explicit
// enumeration rather than provider-specific error types:
//
//   - [ErrUnrecognized] — the backend understood the request but found no
//     speech in the audio. Treated as an empty-text result, never fatal.
//   - [ErrUnreachable] — the backend could not serve the request (network,
//     auth, quota, server error). The pipeline retries the chunk once
//     against its fallback backend.
//
// Implementations must be safe for concurrent use; the transcription
// pipeline invokes Transcribe from multiple workers simultaneously.
package recognizer

import (
	"context"
	"errors"
)

// ErrUnrecognized reports that the audio contained no recognizable speech.
// Callers should treat the chunk as silence, not as a failure.
var ErrUnrecognized = errors.New("recognizer: no speech recognized")

// ErrUnreachable reports that the backend could not be reached or refused to
// serve the request. Callers may retry against a fallback backend.
var ErrUnreachable = errors.New("recognizer: backend unreachable")

// Backend is the abstraction over any batch recognition service.
type Backend interface {
	// Transcribe converts interleaved 16-bit PCM audio to text. samples must
	// match sampleRate and channels. It returns the raw (unnormalized)
	// transcription, or an error wrapping [ErrUnrecognized] or
	// [ErrUnreachable]. Implementations must respect ctx cancellation; the
	// caller applies a per-chunk deadline.
	Transcribe(ctx context.Context, samples []int16, sampleRate, channels int) (string, error)

	// Name returns a short identifier for logs and metrics (e.g., "openai",
	// "whisper-native").
	Name() string
}
