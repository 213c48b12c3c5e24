package audio

import "testing"

func TestLevel_Silence(t *testing.T) {
	if got := Level(make([]int16, 1024)); got != 0 {
		t.Fatalf("Level(silence) = %f, want 0", got)
	}
}

func TestLevel_Empty(t *testing.T) {
	if got := Level(nil); got != 0 {
		t.Fatalf("Level(nil) = %f, want 0", got)
	}
}

func TestLevel_FullScale(t *testing.T) {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = 32767
		if i%2 == 1 {
			samples[i] = -32767
		}
	}
	got := Level(samples)
	if got < 99.0 || got > 100.0 {
		t.Fatalf("Level(full scale) = %f, want ~100", got)
	}
}

func TestLevelOfFrames_MatchesLevel(t *testing.T) {
	a := Frame{Samples: []int16{1000, -1000, 2000}, Channels: 1}
	b := Frame{Samples: []int16{-2000, 500}, Channels: 1}
	concat := append(append([]int16{}, a.Samples...), b.Samples...)

	want := Level(concat)
	got := LevelOfFrames([]Frame{a, b})
	if got != want {
		t.Fatalf("LevelOfFrames = %f, Level = %f", got, want)
	}
}

func TestLevelOfFrames_Empty(t *testing.T) {
	if got := LevelOfFrames(nil); got != 0 {
		t.Fatalf("LevelOfFrames(nil) = %f, want 0", got)
	}
}
