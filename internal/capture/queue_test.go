package capture

import (
	"context"
	"testing"
	"time"

	"github.com/TarDeb/Smart-Meeting-Assistant/pkg/audio"
)

func frameWithSeq(seq uint64) audio.Frame {
	return audio.Frame{Samples: []int16{int16(seq)}, Channels: 1, Seq: seq}
}

func TestFrameQueue_FIFO(t *testing.T) {
	q := NewFrameQueue(4)
	for seq := uint64(0); seq < 4; seq++ {
		q.Push(frameWithSeq(seq))
	}
	for want := uint64(0); want < 4; want++ {
		f, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop empty at seq %d", want)
		}
		if f.Seq != want {
			t.Errorf("seq = %d, want %d", f.Seq, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Error("TryPop on drained queue returned a frame")
	}
}

func TestFrameQueue_OverflowDropsOldest(t *testing.T) {
	q := NewFrameQueue(20)
	for seq := uint64(0); seq < 25; seq++ {
		q.Push(frameWithSeq(seq))
	}

	if got := q.Dropped(); got != 5 {
		t.Errorf("Dropped() = %d, want 5", got)
	}
	if got := q.Len(); got != 20 {
		t.Errorf("Len() = %d, want 20", got)
	}

	// Survivors are the newest 20 frames in order.
	for want := uint64(5); want < 25; want++ {
		f, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop empty at seq %d", want)
		}
		if f.Seq != want {
			t.Errorf("seq = %d, want %d", f.Seq, want)
		}
	}
}

func TestFrameQueue_PopBlocksUntilPush(t *testing.T) {
	q := NewFrameQueue(4)

	got := make(chan audio.Frame, 1)
	go func() {
		f, err := q.Pop(context.Background())
		if err != nil {
			t.Errorf("Pop: %v", err)
		}
		got <- f
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(frameWithSeq(7))

	select {
	case f := <-got:
		if f.Seq != 7 {
			t.Errorf("seq = %d, want 7", f.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestFrameQueue_PopHonorsContext(t *testing.T) {
	q := NewFrameQueue(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}

func TestFrameQueue_ConcurrentProducerConsumer(t *testing.T) {
	q := NewFrameQueue(8)
	const total = 1000

	done := make(chan struct{})
	go func() {
		defer close(done)
		var lastSeq uint64
		var first = true
		consumed := 0
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for consumed+int(q.Dropped()) < total {
			f, err := q.Pop(ctx)
			if err != nil {
				t.Errorf("Pop: %v", err)
				return
			}
			if !first && f.Seq <= lastSeq {
				t.Errorf("out of order: %d after %d", f.Seq, lastSeq)
				return
			}
			lastSeq = f.Seq
			first = false
			consumed++
		}
	}()

	for seq := uint64(0); seq < total; seq++ {
		q.Push(frameWithSeq(seq))
		if seq%64 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not finish")
	}
}
