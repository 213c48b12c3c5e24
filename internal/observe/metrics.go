// Package observe provides observability primitives for the transcription
// service: OpenTelemetry metrics and the SDK provider setup.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/TarDeb/Smart-Meeting-Assistant"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// RecognitionDuration tracks per-chunk transcription latency. Use with
	// attributes:
	//   attribute.String("backend", ...), attribute.String("status", ...)
	RecognitionDuration metric.Float64Histogram

	// RecognitionRequests counts backend transcription calls. Use with
	// attributes:
	//   attribute.String("backend", ...), attribute.String("status", ...)
	RecognitionRequests metric.Int64Counter

	// RecognitionErrors counts backend failures. Use with attributes:
	//   attribute.String("backend", ...), attribute.String("kind", ...)
	RecognitionErrors metric.Int64Counter

	// ChunksEmitted counts audio chunks handed to the pipeline.
	ChunksEmitted metric.Int64Counter

	// FramesDropped counts capture frames evicted from the hand-off queue.
	FramesDropped metric.Int64Counter

	// ActiveSessions tracks the number of live recording sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// batch recognition calls.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecognitionDuration, err = m.Float64Histogram("smartmeet.recognition.duration",
		metric.WithDescription("Latency of per-chunk speech recognition."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecognitionRequests, err = m.Int64Counter("smartmeet.recognition.requests",
		metric.WithDescription("Total recognition calls by backend and status."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionErrors, err = m.Int64Counter("smartmeet.recognition.errors",
		metric.WithDescription("Total recognition failures by backend and kind."),
	); err != nil {
		return nil, err
	}
	if met.ChunksEmitted, err = m.Int64Counter("smartmeet.chunks.emitted",
		metric.WithDescription("Total audio chunks handed to the pipeline."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("smartmeet.frames.dropped",
		metric.WithDescription("Total capture frames evicted from the hand-off queue."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("smartmeet.active_sessions",
		metric.WithDescription("Number of live recording sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRecognition records one backend call: its duration histogram sample
// and the request counter with the standard attribute set.
func (m *Metrics) RecordRecognition(ctx context.Context, backend, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	)
	m.RecognitionDuration.Record(ctx, seconds, attrs)
	m.RecognitionRequests.Add(ctx, 1, attrs)
}

// RecordRecognitionError records a backend failure counter increment.
func (m *Metrics) RecordRecognitionError(ctx context.Context, backend, kind string) {
	m.RecognitionErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("kind", kind),
		),
	)
}
