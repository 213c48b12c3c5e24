package pipeline

import "testing"

func result(seq uint64, text string) Result {
	return Result{Seq: seq, Text: text}
}

func TestReorder_InOrderPassesThrough(t *testing.T) {
	ro := newReorder()
	for seq := uint64(0); seq < 3; seq++ {
		ready := ro.add(result(seq, "x"))
		if len(ready) != 1 || ready[0].Seq != seq {
			t.Fatalf("add(%d) released %v", seq, ready)
		}
	}
}

func TestReorder_HoldsUntilGapFills(t *testing.T) {
	ro := newReorder()

	if ready := ro.add(result(1, "world")); ready != nil {
		t.Fatalf("add(1) released %v, want nothing", ready)
	}
	if ro.buffered() != 1 {
		t.Errorf("buffered = %d, want 1", ro.buffered())
	}

	ready := ro.add(result(0, "hello"))
	if len(ready) != 2 {
		t.Fatalf("add(0) released %d results, want 2", len(ready))
	}
	if ready[0].Text != "hello" || ready[1].Text != "world" {
		t.Errorf("release order = %q, %q", ready[0].Text, ready[1].Text)
	}

	ready = ro.add(result(2, "test"))
	if len(ready) != 1 || ready[0].Text != "test" {
		t.Fatalf("add(2) released %v", ready)
	}
}

func TestReorder_DiscardsLateResult(t *testing.T) {
	ro := newReorder()
	ro.add(result(0, "a"))

	if ready := ro.add(result(0, "dup")); ready != nil {
		t.Fatalf("duplicate release: %v", ready)
	}
	if ro.buffered() != 0 {
		t.Errorf("buffered = %d, want 0", ro.buffered())
	}
}

func TestReorder_LongGap(t *testing.T) {
	ro := newReorder()
	for seq := uint64(9); seq > 0; seq-- {
		if ready := ro.add(result(seq, "x")); ready != nil {
			t.Fatalf("add(%d) released early: %v", seq, ready)
		}
	}
	ready := ro.add(result(0, "x"))
	if len(ready) != 10 {
		t.Fatalf("released %d results, want 10", len(ready))
	}
	for i, r := range ready {
		if r.Seq != uint64(i) {
			t.Errorf("release %d has seq %d", i, r.Seq)
		}
	}
}
