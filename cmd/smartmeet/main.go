// Command smartmeet records a meeting from a live audio source and produces
// a timestamped transcript via hosted or local speech recognition.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TarDeb/Smart-Meeting-Assistant/internal/capture"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/chunker"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/config"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/device"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/health"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/observe"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/pipeline"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/resilience"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/session"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/transcript"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
	openaibackend "github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer/openai"
	whispernative "github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer/whisper"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer/whisperserver"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "print the available audio devices and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "smartmeet: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "smartmeet: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Audio driver ──────────────────────────────────────────────────────────
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize audio driver", "err", err)
		return 1
	}
	defer func() {
		if err := portaudio.Terminate(); err != nil {
			slog.Warn("audio driver terminate", "err", err)
		}
	}()

	catalog := device.NewPortAudioCatalog()

	if *listDevices {
		return printDevices(catalog)
	}

	slog.Info("smartmeet starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"source", cfg.Audio.Source,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "smartmeet",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialize telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Recognition backends ──────────────────────────────────────────────────
	primary, err := buildBackend(cfg.Recognition.Primary)
	if err != nil {
		slog.Error("failed to build primary backend", "err", err)
		return 1
	}
	defer closeBackend(primary)

	var fallback recognizer.Backend
	if cfg.Recognition.Fallback != nil {
		fallback, err = buildBackend(*cfg.Recognition.Fallback)
		if err != nil {
			slog.Error("failed to build fallback backend", "err", err)
			return 1
		}
		defer closeBackend(fallback)
		slog.Info("recognition backends ready",
			"primary", primary.Name(), "fallback", fallback.Name())
	} else {
		slog.Info("recognition backend ready", "primary", primary.Name())
	}

	// ── Session controller ────────────────────────────────────────────────────
	format := audio.Format{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   1, // the source cascade picks the real channel count
	}
	factory := func() *pipeline.Pipeline {
		return pipeline.New(primary, fallback,
			pipeline.Config{
				Workers:      cfg.Recognition.Workers,
				ChunkTimeout: cfg.Recognition.GetChunkTimeout(),
			},
			pipeline.WithMetrics(metrics),
			pipeline.WithBreaker(resilience.New(resilience.Config{Name: primary.Name()})),
		)
	}
	controller := session.NewController(catalog, capture.NewPortAudioOpener(), factory,
		session.Config{
			Source: device.Request{
				Mode:       device.Mode(cfg.Audio.Source),
				DeviceName: cfg.Audio.DeviceName,
				SampleRate: cfg.Audio.SampleRate,
			},
			Capture: capture.Config{
				Format:        format,
				FrameSize:     cfg.Audio.FrameSize,
				QueueCapacity: cfg.Audio.QueueCapacityFrames,
				LevelWindow:   cfg.Audio.LevelWindowFrames,
			},
			Chunker: chunker.Config{
				Format:         format,
				WindowSeconds:  cfg.Audio.WindowSeconds,
				WindowFrames:   cfg.Audio.WindowFrames,
				FrameSize:      cfg.Audio.FrameSize,
				OverlapSeconds: cfg.Audio.OverlapSeconds,
			},
			StopGrace:    cfg.Recognition.GetStopGrace(),
			DumpChunkDir: cfg.Audio.DumpChunkDir,
		},
		session.WithMetrics(metrics),
	)

	// ── HTTP server ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	h := health.New(health.Checker{
		Name: "audio-device",
		Check: func(ctx context.Context) error {
			_, err := catalog.DefaultInput(ctx)
			return err
		},
	})
	h.SetStatusFunc(func() any { return controller.Live() })
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("status server listening", "addr", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("status server error", "err", err)
		}
	}()

	// ── Recording ─────────────────────────────────────────────────────────────
	if err := controller.Start(ctx); err != nil {
		slog.Error("failed to start recording", "err", err)
		return 1
	}

	<-ctx.Done()
	stop()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Recognition.GetStopGrace()+5*time.Second)
	defer cancel()

	final, err := controller.Stop(stopCtx)
	if err != nil {
		slog.Error("failed to stop recording", "err", err)
		return 1
	}

	paths, err := transcript.Save(cfg.Output.Directory, transcript.Format(cfg.Output.Format), final)
	if err != nil {
		slog.Error("failed to save transcript", "err", err)
		return 1
	}
	for _, p := range paths {
		fmt.Printf("transcript written: %s\n", p)
	}

	if err := server.Shutdown(stopCtx); err != nil {
		slog.Warn("status server shutdown", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// ── Backend wiring ────────────────────────────────────────────────────────────

// buildBackend constructs the recognition backend named by entry. The entry
// has already passed config validation, so required fields are present.
func buildBackend(entry config.BackendEntry) (recognizer.Backend, error) {
	switch entry.Name {
	case "openai":
		var opts []openaibackend.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaibackend.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openaibackend.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, openaibackend.WithLanguage(entry.Language))
		}
		return openaibackend.New(entry.APIKey, opts...)

	case "whisper-server":
		var opts []whisperserver.Option
		if entry.Model != "" {
			opts = append(opts, whisperserver.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisperserver.WithLanguage(entry.Language))
		}
		return whisperserver.New(entry.BaseURL, opts...)

	case "whisper-native":
		var opts []whispernative.Option
		if entry.Language != "" {
			opts = append(opts, whispernative.WithLanguage(entry.Language))
		}
		return whispernative.New(entry.ModelPath, opts...)

	default:
		return nil, fmt.Errorf("unknown recognition backend %q", entry.Name)
	}
}

// closeBackend releases backend resources where the implementation holds any
// (the native whisper model keeps CGO state).
func closeBackend(b recognizer.Backend) {
	if c, ok := b.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("backend close", "backend", b.Name(), "err", err)
		}
	}
}

// ── Device listing ────────────────────────────────────────────────────────────

func printDevices(catalog device.Catalog) int {
	devices, err := catalog.Devices(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "smartmeet: list devices: %v\n", err)
		return 1
	}

	fmt.Printf("%-5s %-40s %-4s %-4s %-9s %s\n", "IDX", "NAME", "IN", "OUT", "RATE", "HOST API")
	for _, d := range devices {
		api := d.HostAPI
		if d.HostAPILoopback {
			api += " (loopback capable)"
		}
		fmt.Printf("%-5d %-40s %-4d %-4d %-9.0f %s\n",
			d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, api)
	}
	return 0
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
