package main

import "math"

// chunkLevel returns the peak and RMS of one PCM chunk scaled by
// gain, normalized so 1.0 is full scale. Values are not clipped: a
// peak above 1.0 means the gain is driving the engine input into
// clipping. Pass gain 1 for the raw microphone level.
func chunkLevel(samples []int16, gain float64) (peak, rms float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sumSq float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
		sumSq += v * v
	}
	rms = math.Sqrt(sumSq / float64(len(samples)))
	return peak * gain, rms * gain
}

// applyGain scales samples in place, clamping at the int16 range.
func applyGain(samples []int16, gain float64) []int16 {
	if gain == 1.0 {
		return samples
	}
	for i, s := range samples {
		v := float64(s) * gain
		switch {
		case v > 32767:
			samples[i] = 32767
		case v < -32768:
			samples[i] = -32768
		default:
			samples[i] = int16(v)
		}
	}
	return samples
}
