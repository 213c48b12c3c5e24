package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/TarDeb/Smart-Meeting-Assistant/internal/capture"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/chunker"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/device"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/observe"
	"github.com/TarDeb/Smart-Meeting-Assistant/internal/pipeline"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer"
	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/recognizer/mock"
)

type fakeCatalog struct {
	devices []device.Device
}

func (f *fakeCatalog) Devices(_ context.Context) ([]device.Device, error) {
	return f.devices, nil
}

func (f *fakeCatalog) DefaultInput(_ context.Context) (device.Device, error) {
	for _, d := range f.devices {
		if d.IsInput() {
			return d, nil
		}
	}
	return device.Device{}, device.ErrNoInputDevice
}

func (f *fakeCatalog) DefaultOutput(_ context.Context) (device.Device, error) {
	return device.Device{}, errors.New("no output device")
}

type fakeStream struct {
	callback func([]int16)
	startErr error
	errs     chan error
}

func (s *fakeStream) Start() error         { return s.startErr }
func (s *fakeStream) Stop() error          { return nil }
func (s *fakeStream) Close() error         { return nil }
func (s *fakeStream) Errors() <-chan error { return s.errs }

type fakeOpener struct {
	stream *fakeStream
}

func (o *fakeOpener) Open(_ device.Selection, _ audio.Format, _ int, callback func([]int16)) (capture.Stream, error) {
	o.stream.callback = callback
	return o.stream, nil
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

// newTestController wires a controller over fakes: a 100 Hz mono source
// with 10-sample frames and a 0.1 s chunk window (10 samples).
func newTestController(t *testing.T, backend *mock.Backend) (*Controller, *fakeOpener) {
	t.Helper()

	catalog := &fakeCatalog{devices: []device.Device{
		{Index: 0, Name: "Test Microphone", MaxInputChannels: 1, DefaultSampleRate: 100},
	}}
	opener := &fakeOpener{stream: &fakeStream{}}
	metrics := testMetrics(t)

	format := audio.Format{SampleRate: 100, Channels: 1}
	cfg := Config{
		Source: device.Request{Mode: device.ModeMicrophone},
		Capture: capture.Config{
			Format:        format,
			FrameSize:     10,
			QueueCapacity: 64,
			LevelWindow:   5,
		},
		Chunker: chunker.Config{
			Format:        format,
			WindowSeconds: 0.1,
		},
		StopGrace: 5 * time.Second,
	}
	factory := func() *pipeline.Pipeline {
		return pipeline.New(backend, nil,
			pipeline.Config{Workers: 2, ChunkTimeout: time.Second},
			pipeline.WithMetrics(metrics))
	}
	return NewController(catalog, opener, factory, cfg, WithMetrics(metrics)), opener
}

func TestController_FullSession(t *testing.T) {
	backend := &mock.Backend{
		TranscribeFunc: func(ctx context.Context, samples []int16, rate, ch int) (string, error) {
			return fmt.Sprintf("segment %d", samples[0]), nil
		},
	}
	c, opener := newTestController(t, backend)

	if c.State() != StateIdle {
		t.Fatalf("initial state = %v, want idle", c.State())
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.State() != StateRecording {
		t.Fatalf("state = %v, want recording", c.State())
	}

	// Three full windows of audio, tagged so the mock can echo them back.
	for i := range 3 {
		frame := make([]int16, 10)
		frame[0] = int16(i)
		opener.stream.callback(frame)
	}

	final, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.State() != StateFinalized {
		t.Fatalf("state = %v, want finalized", c.State())
	}

	if len(final.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(final.Segments))
	}
	want := []string{"Segment 0.", "Segment 1.", "Segment 2."}
	for i, seg := range final.Segments {
		if seg.Text != want[i] {
			t.Errorf("segment %d = %q, want %q", i, seg.Text, want[i])
		}
	}
	// 30 samples at 100 Hz.
	if final.Duration != 300*time.Millisecond {
		t.Errorf("duration = %v, want 300ms", final.Duration)
	}
	if final.SessionID == "" {
		t.Error("session ID is empty")
	}
}

func TestController_ShortRemainderFlushedOnStop(t *testing.T) {
	backend := &mock.Backend{Text: "tail"}
	c, opener := newTestController(t, backend)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 0.4 of a window; no chunk is emitted until Stop flushes.
	opener.stream.callback(make([]int16, 4))

	final, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(final.Segments) != 1 {
		t.Fatalf("segments = %d, want 1 flushed remainder", len(final.Segments))
	}
	if final.Segments[0].Text != "Tail." {
		t.Errorf("segment = %q, want %q", final.Segments[0].Text, "Tail.")
	}
}

func TestController_SilentChunksLeaveNoSegments(t *testing.T) {
	backend := &mock.Backend{
		TranscribeFunc: func(ctx context.Context, samples []int16, rate, ch int) (string, error) {
			if samples[0] == 1 {
				return "", recognizer.ErrUnrecognized
			}
			return fmt.Sprintf("segment %d", samples[0]), nil
		},
	}
	c, opener := newTestController(t, backend)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := range 3 {
		frame := make([]int16, 10)
		frame[0] = int16(i)
		opener.stream.callback(frame)
	}

	final, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(final.Segments) != 2 {
		t.Fatalf("segments = %d, want 2 (silence is not a segment)", len(final.Segments))
	}
	if final.Segments[0].Text != "Segment 0." || final.Segments[1].Text != "Segment 2." {
		t.Errorf("segments = %q, %q", final.Segments[0].Text, final.Segments[1].Text)
	}
	if final.Stats.Segments != 2 {
		t.Errorf("stats segments = %d, want 2", final.Stats.Segments)
	}
}

func TestController_StreamDeathFailsSession(t *testing.T) {
	c, opener := newTestController(t, &mock.Backend{Text: "x"})
	opener.stream.errs = make(chan error, 1)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	opener.stream.errs <- errors.New("device unplugged")

	deadline := time.After(time.Second)
	for c.State() != StateFailed {
		select {
		case <-deadline:
			t.Fatal("session never failed after stream death")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if _, err := c.Stop(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop err = %v, want ErrNotRecording after failure", err)
	}
}

func TestController_StartWhileRecordingFails(t *testing.T) {
	c, _ := newTestController(t, &mock.Backend{Text: "x"})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop(context.Background())

	if err := c.Start(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start err = %v, want ErrBusy", err)
	}
}

func TestController_StopWithoutStartFails(t *testing.T) {
	c, _ := newTestController(t, &mock.Backend{Text: "x"})
	if _, err := c.Stop(context.Background()); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("Stop err = %v, want ErrNotRecording", err)
	}
}

func TestController_CaptureFailureIsFatal(t *testing.T) {
	backend := &mock.Backend{Text: "x"}
	c, opener := newTestController(t, backend)
	opener.stream.startErr = errors.New("device disappeared")

	if err := c.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when the stream cannot start")
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %v, want failed", c.State())
	}
}

func TestController_NoInputDeviceIsFatal(t *testing.T) {
	c, _ := newTestController(t, &mock.Backend{Text: "x"})
	c.catalog = &fakeCatalog{} // nothing to capture from

	err := c.Start(context.Background())
	if !errors.Is(err, device.ErrNoInputDevice) {
		t.Fatalf("Start err = %v, want ErrNoInputDevice", err)
	}
	if c.State() != StateFailed {
		t.Fatalf("state = %v, want failed", c.State())
	}
}

func TestController_LiveSnapshot(t *testing.T) {
	c, opener := newTestController(t, &mock.Backend{Text: "x"})

	snap := c.Live()
	if snap.State != StateIdle {
		t.Fatalf("idle snapshot state = %v", snap.State)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop(context.Background())

	loud := make([]int16, 10)
	for i := range loud {
		loud[i] = 16384
	}
	opener.stream.callback(loud)

	// Wait for the feed loop to drain the frame.
	deadline := time.After(time.Second)
	for {
		snap = c.Live()
		if snap.ChunksEmitted >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("chunk never emitted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if snap.State != StateRecording {
		t.Errorf("state = %v, want recording", snap.State)
	}
	if snap.Device != "Test Microphone" {
		t.Errorf("device = %q", snap.Device)
	}
	if snap.Level < 49 || snap.Level > 51 {
		t.Errorf("level = %f, want ~50", snap.Level)
	}
	if snap.SessionID == "" {
		t.Error("session ID missing from snapshot")
	}
}

func TestController_SessionCanRestartAfterFinalize(t *testing.T) {
	c, opener := newTestController(t, &mock.Backend{Text: "x"})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	opener.stream.callback(make([]int16, 10))
	if _, err := c.Stop(context.Background()); err != nil {
		t.Fatalf("first Stop: %v", err)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if _, err := c.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
