package audio

// StereoToMono averages L+R per stereo frame to produce mono output.
// Uses int32 arithmetic to prevent overflow. A trailing unpaired sample is
// dropped.
func StereoToMono(samples []int16) []int16 {
	frames := len(samples) / 2
	out := make([]int16, frames)
	for i := range frames {
		l := int32(samples[2*i])
		r := int32(samples[2*i+1])
		out[i] = int16((l + r) / 2)
	}
	return out
}

// Int16ToFloat32 converts signed 16-bit PCM to normalized float32 samples in
// [-1, 1]. Recognition engines operating on float audio (whisper.cpp) take
// this representation.
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// ResampleMono resamples mono 16-bit PCM from srcRate to dstRate using
// linear interpolation. If srcRate == dstRate the input is returned
// unchanged. Offline recognition engines fixed at 16 kHz consume capture
// audio through this.
func ResampleMono(samples []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(samples) < 2 {
		return samples
	}
	dstLen := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstLen == 0 {
		return nil
	}

	out := make([]int16, dstLen)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstLen {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// Float32ToInt16 converts normalized float32 samples to signed 16-bit PCM,
// clamping out-of-range input to the int16 range.
func Float32ToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32767 {
			v = -32767
		}
		out[i] = int16(v)
	}
	return out
}
