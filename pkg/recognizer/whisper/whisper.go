// Package whisper provides an offline recognition backend using the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.
//
// whisper.cpp runs entirely in-process, so this backend never returns
// recognizer.ErrUnreachable. It is the fallback of choice when the primary
// network backend is down.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
)

// modelSampleRate is the sample rate whisper.cpp models are trained on.
// Input at any other rate is resampled before inference.
const modelSampleRate = 16000

// Compile-time assertion that Backend implements recognizer.Backend.
var _ recognizer.Backend = (*Backend)(nil)

// Backend runs whisper.cpp inference in-process. The model is loaded once
// and shared; each Transcribe call creates its own whisper context, so the
// backend is safe for concurrent use.
type Backend struct {
	model    whisperlib.Model
	language string

	mu     sync.Mutex
	closed bool
}

// Option is a functional option for configuring a Backend.
type Option func(*Backend)

// WithLanguage sets the language code for transcription (e.g., "en", "de").
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(b *Backend) { b.language = lang }
}

// New creates a Backend that loads the whisper.cpp model from the given file
// path. The caller must call Close when the backend is no longer needed.
func New(modelPath string, opts ...Option) (*Backend, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	b := &Backend{
		model:    model,
		language: "en",
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Close releases the whisper model. Transcribe calls after Close fail.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.model.Close()
}

// Transcribe downmixes the samples to mono, resamples to the model rate and
// runs whisper.cpp inference. Inference producing no text maps to
// recognizer.ErrUnrecognized.
func (b *Backend) Transcribe(ctx context.Context, samples []int16, sampleRate, channels int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("whisper: context already cancelled: %w", err)
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", errors.New("whisper: backend is closed")
	}
	b.mu.Unlock()

	mono := samples
	if channels == 2 {
		mono = audio.StereoToMono(samples)
	}
	mono = audio.ResampleMono(mono, sampleRate, modelSampleRate)
	floats := audio.Int16ToFloat32(mono)

	// Each whisper context is NOT thread-safe, but the model can be shared
	// across goroutines.
	wctx, err := b.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	if err := wctx.SetLanguage(b.language); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", b.language, "error", err)
	}

	if err := wctx.Process(floats, nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("whisper: %w", recognizer.ErrUnrecognized)
	}
	return strings.Join(parts, " "), nil
}

// Name implements recognizer.Backend.
func (b *Backend) Name() string { return "whisper-native" }
