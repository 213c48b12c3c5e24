// Package whisperserver provides a recognition backend that talks to a
// running whisper-server binary over its REST API (POST /inference).
package whisperserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
)

// Compile-time assertion that Backend implements recognizer.Backend.
var _ recognizer.Backend = (*Backend)(nil)

// Backend submits audio chunks to a whisper.cpp HTTP server for batch
// inference.
type Backend struct {
	serverURL  string
	model      string
	language   string
	httpClient *http.Client
}

// Option is a functional option for configuring a Backend.
type Option func(*Backend)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with.
func WithModel(model string) Option {
	return func(b *Backend) {
		b.model = model
	}
}

// WithLanguage sets the language code sent to the whisper.cpp server
// (e.g., "en", "de"). When empty the server auto-detects.
func WithLanguage(lang string) Option {
	return func(b *Backend) {
		b.language = lang
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = client
	}
}

// New creates a Backend that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Backend, error) {
	if serverURL == "" {
		return nil, errors.New("whisperserver: serverURL must not be empty")
	}
	b := &Backend{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(b)
	}
	return b, nil
}

// Transcribe encodes the samples as a WAV file and POSTs it to the
// /inference endpoint as multipart/form-data. Transport failures and non-200
// responses map to recognizer.ErrUnreachable; an empty transcription maps to
// recognizer.ErrUnrecognized.
func (b *Backend) Transcribe(ctx context.Context, samples []int16, sampleRate, channels int) (string, error) {
	wavData, err := audio.EncodeWAV(samples, audio.Format{SampleRate: sampleRate, Channels: channels})
	if err != nil {
		return "", fmt.Errorf("whisperserver: encode wav: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisperserver: create form file: %w", err)
	}
	if _, err := fw.Write(wavData); err != nil {
		return "", fmt.Errorf("whisperserver: write wav data: %w", err)
	}

	if b.language != "" {
		if err := mw.WriteField("language", b.language); err != nil {
			return "", fmt.Errorf("whisperserver: write language field: %w", err)
		}
	}
	if b.model != "" {
		if err := mw.WriteField("model", b.model); err != nil {
			return "", fmt.Errorf("whisperserver: write model field: %w", err)
		}
	}

	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisperserver: close multipart writer: %w", err)
	}

	endpoint := b.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisperserver: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("whisperserver: request canceled: %w", ctx.Err())
		}
		return "", fmt.Errorf("whisperserver: http request: %v: %w", err, recognizer.ErrUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisperserver: server returned HTTP %d: %w", resp.StatusCode, recognizer.ErrUnreachable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisperserver: read response body: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("whisperserver: parse JSON response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", fmt.Errorf("whisperserver: %w", recognizer.ErrUnrecognized)
	}
	return text, nil
}

// Name implements recognizer.Backend.
func (b *Backend) Name() string { return "whisper-server" }
