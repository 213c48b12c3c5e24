// Package openai provides a recognition backend using the OpenAI audio
// transcription API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
)

// Compile-time assertion that Backend implements recognizer.Backend.
var _ recognizer.Backend = (*Backend)(nil)

// Backend transcribes audio chunks through the OpenAI transcription endpoint.
type Backend struct {
	client   oai.Client
	model    oai.AudioModel
	language string
}

// config holds optional configuration for the backend.
type config struct {
	baseURL  string
	model    string
	language string
	timeout  time.Duration
}

// Option is a functional option for Backend.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. This allows pointing
// the backend at an API-compatible server.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the transcription model. Defaults to whisper-1.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithLanguage sets the ISO-639-1 language code sent with each request
// (e.g., "en", "de"). When empty the service auto-detects.
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI transcription Backend.
func New(apiKey string, opts ...Option) (*Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	// Client-side retries are disabled; the pipeline applies its own
	// fallback policy per chunk.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	model := oai.AudioModelWhisper1
	if cfg.model != "" {
		model = oai.AudioModel(cfg.model)
	}

	return &Backend{
		client:   oai.NewClient(reqOpts...),
		model:    model,
		language: cfg.language,
	}, nil
}

// Transcribe encodes the samples as a WAV file and submits it to the
// transcription endpoint. API and transport failures map to
// recognizer.ErrUnreachable; a response with no text maps to
// recognizer.ErrUnrecognized.
func (b *Backend) Transcribe(ctx context.Context, samples []int16, sampleRate, channels int) (string, error) {
	wavData, err := audio.EncodeWAV(samples, audio.Format{SampleRate: sampleRate, Channels: channels})
	if err != nil {
		return "", fmt.Errorf("openai: encode wav: %w", err)
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wavData), "chunk.wav", "audio/wav"),
		Model: b.model,
	}
	if b.language != "" {
		params.Language = oai.String(b.language)
	}

	resp, err := b.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("openai: transcription canceled: %w", ctx.Err())
		}
		return "", fmt.Errorf("openai: transcription request failed: %v: %w", err, recognizer.ErrUnreachable)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("openai: %w", recognizer.ErrUnrecognized)
	}
	return text, nil
}

// Name implements recognizer.Backend.
func (b *Backend) Name() string { return "openai" }
