package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidBackendNames lists the recognition backend names [Validate] accepts.
var ValidBackendNames = []string{"openai", "whisper-server", "whisper-native"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Audio
	if cfg.Audio.Source != "" && !cfg.Audio.Source.IsValid() {
		errs = append(errs, fmt.Errorf("audio.source %q is invalid; valid values: microphone, system, both", cfg.Audio.Source))
	}
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_size %d must be positive", cfg.Audio.FrameSize))
	}
	if cfg.Audio.QueueCapacityFrames <= 0 {
		errs = append(errs, fmt.Errorf("audio.queue_capacity_frames %d must be positive", cfg.Audio.QueueCapacityFrames))
	}
	if cfg.Audio.WindowFrames < 0 {
		errs = append(errs, fmt.Errorf("audio.window_frames %d must not be negative", cfg.Audio.WindowFrames))
	}
	if cfg.Audio.WindowFrames == 0 && cfg.Audio.WindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.window_seconds %.2f must be positive when window_frames is unset", cfg.Audio.WindowSeconds))
	}
	if cfg.Audio.OverlapSeconds < 0 {
		errs = append(errs, fmt.Errorf("audio.overlap_seconds %.2f must not be negative", cfg.Audio.OverlapSeconds))
	}
	if cfg.Audio.WindowFrames == 0 && cfg.Audio.OverlapSeconds >= cfg.Audio.WindowSeconds && cfg.Audio.OverlapSeconds > 0 {
		errs = append(errs, fmt.Errorf("audio.overlap_seconds %.2f must be shorter than window_seconds %.2f", cfg.Audio.OverlapSeconds, cfg.Audio.WindowSeconds))
	}
	if cfg.Audio.LevelWindowFrames <= 0 {
		errs = append(errs, fmt.Errorf("audio.level_window_frames %d must be positive", cfg.Audio.LevelWindowFrames))
	}

	// Recognition
	errs = append(errs, validateBackend("recognition.primary", &cfg.Recognition.Primary)...)
	if cfg.Recognition.Fallback != nil {
		errs = append(errs, validateBackend("recognition.fallback", cfg.Recognition.Fallback)...)
	} else {
		slog.Warn("recognition.fallback is not configured; chunks failing the primary backend become silence")
	}
	if cfg.Recognition.Workers < 1 {
		errs = append(errs, fmt.Errorf("recognition.workers %d must be at least 1", cfg.Recognition.Workers))
	}
	if cfg.Recognition.ChunkTimeout <= 0 {
		errs = append(errs, fmt.Errorf("recognition.chunk_timeout %.2f must be positive", cfg.Recognition.ChunkTimeout))
	}
	if cfg.Recognition.StopGrace <= 0 {
		errs = append(errs, fmt.Errorf("recognition.stop_grace %.2f must be positive", cfg.Recognition.StopGrace))
	}

	// Output
	if cfg.Output.Format != "" && !cfg.Output.Format.IsValid() {
		errs = append(errs, fmt.Errorf("output.format %q is invalid; valid values: text, json, both", cfg.Output.Format))
	}
	if cfg.Output.Directory == "" {
		errs = append(errs, errors.New("output.directory is required"))
	}

	return errors.Join(errs...)
}

// validateBackend checks one backend entry. prefix names the entry in error
// messages.
func validateBackend(prefix string, e *BackendEntry) []error {
	var errs []error
	if e.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		return errs
	}
	if !slices.Contains(ValidBackendNames, e.Name) {
		errs = append(errs, fmt.Errorf("%s.name %q is invalid; valid values: openai, whisper-server, whisper-native", prefix, e.Name))
		return errs
	}
	switch e.Name {
	case "openai":
		if e.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for the openai backend", prefix))
		}
	case "whisper-server":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for the whisper-server backend", prefix))
		}
	case "whisper-native":
		if e.ModelPath == "" {
			errs = append(errs, fmt.Errorf("%s.model_path is required for the whisper-native backend", prefix))
		}
	}
	return errs
}
