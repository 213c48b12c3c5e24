// Package config provides the configuration schema and loader for the
// meeting transcription service.
package config

import "time"

// LogLevel controls log verbosity for the service.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SourceMode selects which audio signal a session captures.
type SourceMode string

const (
	// SourceMicrophone captures the default input device.
	SourceMicrophone SourceMode = "microphone"

	// SourceSystem captures system playback via a loopback device.
	SourceSystem SourceMode = "system"

	// SourceBoth captures system playback mixed with the microphone where
	// the loopback device carries both (e.g., Stereo Mix).
	SourceBoth SourceMode = "both"
)

// IsValid reports whether m is a recognised source mode.
func (m SourceMode) IsValid() bool {
	switch m {
	case SourceMicrophone, SourceSystem, SourceBoth:
		return true
	}
	return false
}

// OutputFormat selects how a finished transcript is persisted.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputBoth OutputFormat = "both"
)

// IsValid reports whether f is a recognised output format.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputText, OutputJSON, OutputBoth:
		return true
	}
	return false
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Audio       AudioConfig       `yaml:"audio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Output      OutputConfig      `yaml:"output"`
}

// ServerConfig holds network and logging settings for the status endpoint.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics server listens on
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig holds capture and chunking settings.
type AudioConfig struct {
	// Source selects the captured signal: microphone, system, or both.
	Source SourceMode `yaml:"source"`

	// DeviceName pins capture to a specific device by substring match.
	// When empty the source resolution cascade picks the device.
	DeviceName string `yaml:"device_name"`

	// SampleRate is the capture sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`

	// FrameSize is the number of samples per channel delivered by one
	// driver callback.
	FrameSize int `yaml:"frame_size"`

	// QueueCapacityFrames bounds the capture hand-off queue. When full,
	// the oldest frame is evicted.
	QueueCapacityFrames int `yaml:"queue_capacity_frames"`

	// WindowSeconds is the chunk window length in seconds.
	WindowSeconds float64 `yaml:"window_seconds"`

	// WindowFrames, when positive, overrides WindowSeconds and sizes chunk
	// windows as a fixed frame count.
	WindowFrames int `yaml:"window_frames"`

	// OverlapSeconds carries the tail of each chunk into the next to avoid
	// clipping words at window boundaries. Zero disables overlap.
	OverlapSeconds float64 `yaml:"overlap_seconds"`

	// LevelWindowFrames is the number of recent frames averaged for the
	// live input level reading.
	LevelWindowFrames int `yaml:"level_window_frames"`

	// DumpChunkDir, when non-empty, writes each emitted chunk as a WAV
	// file into the directory for debugging.
	DumpChunkDir string `yaml:"dump_chunk_dir"`
}

// BackendEntry configures a single recognition backend.
type BackendEntry struct {
	// Name selects the backend implementation: "openai", "whisper-server",
	// or "whisper-native".
	Name string `yaml:"name"`

	// APIKey is the authentication key for hosted backends.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default endpoint, or names the
	// whisper-server address.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend.
	Model string `yaml:"model"`

	// ModelPath is the whisper.cpp model file path for whisper-native.
	ModelPath string `yaml:"model_path"`

	// Language is the expected speech language code (e.g., "en").
	Language string `yaml:"language"`
}

// RecognitionConfig holds the backend pair and pipeline settings.
type RecognitionConfig struct {
	// Primary is the backend every chunk is tried against first.
	Primary BackendEntry `yaml:"primary"`

	// Fallback handles chunks whose primary attempt was unreachable.
	// Optional; when unset, unreachable chunks become empty results.
	Fallback *BackendEntry `yaml:"fallback"`

	// Workers is the number of concurrent transcription workers.
	Workers int `yaml:"workers"`

	// ChunkTimeout bounds one chunk's recognition across both backends,
	// in seconds.
	ChunkTimeout float64 `yaml:"chunk_timeout"` // seconds

	// StopGrace bounds how long Stop waits for in-flight chunks, in
	// seconds.
	StopGrace float64 `yaml:"stop_grace"` // seconds
}

// GetChunkTimeout returns the per-chunk recognition timeout as a
// time.Duration.
func (r *RecognitionConfig) GetChunkTimeout() time.Duration {
	return time.Duration(r.ChunkTimeout * float64(time.Second))
}

// GetStopGrace returns the stop grace period as a time.Duration.
func (r *RecognitionConfig) GetStopGrace() time.Duration {
	return time.Duration(r.StopGrace * float64(time.Second))
}

// OutputConfig holds transcript persistence settings.
type OutputConfig struct {
	// Directory is where finished transcripts are written.
	Directory string `yaml:"directory"`

	// Format selects text, json, or both.
	Format OutputFormat `yaml:"format"`
}

// Default returns a Config populated with the documented defaults. Loading a
// file overlays onto this.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
		},
		Audio: AudioConfig{
			Source:              SourceMicrophone,
			SampleRate:          44100,
			FrameSize:           1024,
			QueueCapacityFrames: 256,
			WindowSeconds:       1.0,
			LevelWindowFrames:   5,
		},
		Recognition: RecognitionConfig{
			Workers:      3,
			ChunkTimeout: 15,
			StopGrace:    30,
		},
		Output: OutputConfig{
			Directory: ".",
			Format:    OutputText,
		},
	}
}
