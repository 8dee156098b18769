package audio

import "math"

// Resample converts samples from one rate to another by linear
// interpolation. The output length is round(len * to/from); equal rates
// are the identity transform.
func Resample(samples []int16, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		out := make([]int16, len(samples))
		copy(out, samples)
		return out
	}

	outLen := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	if outLen == 0 {
		return nil
	}

	out := make([]int16, outLen)
	step := float64(len(samples)-1) / float64(outLen-1)
	if outLen == 1 {
		out[0] = samples[0]
		return out
	}
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
