package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordRecognition_RecordsDurationAndRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRecognition(ctx, "openai", "ok", 0.42)
	m.RecordRecognition(ctx, "whisper-native", "error", 1.5)

	rm := collect(t, reader)

	hist := findMetric(rm, "smartmeet.recognition.duration")
	if hist == nil {
		t.Fatal("smartmeet.recognition.duration not found")
	}
	hd, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration data type = %T, want Histogram[float64]", hist.Data)
	}
	if len(hd.DataPoints) != 2 {
		t.Errorf("duration data points = %d, want 2", len(hd.DataPoints))
	}

	reqs := findMetric(rm, "smartmeet.recognition.requests")
	if reqs == nil {
		t.Fatal("smartmeet.recognition.requests not found")
	}
	rd, ok := reqs.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("requests data type = %T, want Sum[int64]", reqs.Data)
	}
	var total int64
	for _, dp := range rd.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("request total = %d, want 2", total)
	}
}

func TestRecordRecognitionError_AttachesAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRecognitionError(ctx, "openai", "unreachable")

	rm := collect(t, reader)
	met := findMetric(rm, "smartmeet.recognition.errors")
	if met == nil {
		t.Fatal("smartmeet.recognition.errors not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("errors data type = %T, want Sum[int64]", met.Data)
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("error data points = %d, want 1", len(sum.DataPoints))
	}
	dp := sum.DataPoints[0]
	if v, ok := dp.Attributes.Value(attribute.Key("backend")); !ok || v.AsString() != "openai" {
		t.Errorf("backend attribute = %v, want openai", v)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("kind")); !ok || v.AsString() != "unreachable" {
		t.Errorf("kind attribute = %v, want unreachable", v)
	}
}

func TestCounters_Accumulate(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ChunksEmitted.Add(ctx, 3)
	m.FramesDropped.Add(ctx, 5)
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	rm := collect(t, reader)

	chunks := findMetric(rm, "smartmeet.chunks.emitted")
	if chunks == nil {
		t.Fatal("smartmeet.chunks.emitted not found")
	}
	if sum := chunks.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 3 {
		t.Errorf("chunks emitted = %d, want 3", sum.DataPoints[0].Value)
	}

	dropped := findMetric(rm, "smartmeet.frames.dropped")
	if dropped == nil {
		t.Fatal("smartmeet.frames.dropped not found")
	}
	if sum := dropped.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 5 {
		t.Errorf("frames dropped = %d, want 5", sum.DataPoints[0].Value)
	}

	sessions := findMetric(rm, "smartmeet.active_sessions")
	if sessions == nil {
		t.Fatal("smartmeet.active_sessions not found")
	}
	if sum := sessions.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 0 {
		t.Errorf("active sessions = %d, want 0", sum.DataPoints[0].Value)
	}
}
