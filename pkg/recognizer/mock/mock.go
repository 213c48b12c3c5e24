// Package mock provides a test double for the recognizer.Backend interface.
package mock

import (
	"context"
	"sync"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
)

// Compile-time assertion that Backend implements recognizer.Backend.
var _ recognizer.Backend = (*Backend)(nil)

// Call records a single Transcribe invocation.
type Call struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Backend is a configurable recognizer.Backend for tests. All fields may be
// set before use; methods are safe for concurrent use.
type Backend struct {
	// BackendName is returned by Name. Defaults to "mock".
	BackendName string

	// TranscribeFunc, when non-nil, is invoked by Transcribe. When nil,
	// Transcribe returns Text and Err.
	TranscribeFunc func(ctx context.Context, samples []int16, sampleRate, channels int) (string, error)

	// Text and Err are the canned result used when TranscribeFunc is nil.
	Text string
	Err  error

	mu    sync.Mutex
	calls []Call
}

// Transcribe records the call and returns the configured result.
func (b *Backend) Transcribe(ctx context.Context, samples []int16, sampleRate, channels int) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, Call{
		Samples:    append([]int16(nil), samples...),
		SampleRate: sampleRate,
		Channels:   channels,
	})
	b.mu.Unlock()

	if b.TranscribeFunc != nil {
		return b.TranscribeFunc(ctx, samples, sampleRate, channels)
	}
	return b.Text, b.Err
}

// Name returns BackendName, or "mock" when unset.
func (b *Backend) Name() string {
	if b.BackendName == "" {
		return "mock"
	}
	return b.BackendName
}

// Calls returns a copy of all recorded Transcribe invocations.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallCount returns the number of Transcribe invocations so far.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}
