package audio

// Level computes the instantaneous loudness of the given PCM samples as the
// mean absolute amplitude normalized to a 0–100 scale. Used by GUIs for
// level visualization; recomputed on every poll, never cached.
func Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum uint64
	for _, s := range samples {
		v := int64(s)
		if v < 0 {
			v = -v
		}
		sum += uint64(v)
	}
	mean := float64(sum) / float64(len(samples))
	return mean / 32768.0 * 100.0
}

// LevelOfFrames computes [Level] over the concatenation of the given frames
// without materializing the concatenation.
func LevelOfFrames(frames []Frame) float64 {
	var sum uint64
	var n int
	for _, f := range frames {
		for _, s := range f.Samples {
			v := int64(s)
			if v < 0 {
				v = -v
			}
			sum += uint64(v)
		}
		n += len(f.Samples)
	}
	if n == 0 {
		return 0
	}
	mean := float64(sum) / float64(n)
	return mean / 32768.0 * 100.0
}
