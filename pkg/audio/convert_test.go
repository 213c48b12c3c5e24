package audio

import "testing"

func TestStereoToMono(t *testing.T) {
	in := []int16{100, 200, -100, -200, 32767, 32767}
	want := []int16{150, -150, 32767}
	got := StereoToMono(in)
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono_DropsTrailingSample(t *testing.T) {
	got := StereoToMono([]int16{10, 20, 30})
	if len(got) != 1 || got[0] != 15 {
		t.Fatalf("got %v, want [15]", got)
	}
}

func TestFloat32ToInt16_Clamps(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 2.0, -2.0}
	got := Float32ToInt16(in)
	if got[0] != 0 {
		t.Errorf("zero sample = %d", got[0])
	}
	if got[1] != 16383 {
		t.Errorf("0.5 sample = %d, want 16383", got[1])
	}
	if got[3] != 32767 {
		t.Errorf("over-range sample = %d, want 32767", got[3])
	}
	if got[4] != -32767 {
		t.Errorf("under-range sample = %d, want -32767", got[4])
	}
}

func TestInt16ToFloat32_RoundTrip(t *testing.T) {
	in := []int16{0, 16384, -16384, 32000, -32000}
	f := Int16ToFloat32(in)
	back := Float32ToInt16(f)
	for i := range in {
		diff := int(in[i]) - int(back[i])
		if diff < -2 || diff > 2 {
			t.Errorf("sample %d: %d -> %f -> %d", i, in[i], f[i], back[i])
		}
	}
}
