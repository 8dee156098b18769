// Package beep plays the short audible session cues: a high tick on
// start, a lower one on stop, a double beep on errors. Playback is
// fire-and-forget; a missing audio server silently drops the cue.
package beep

import "math"

var disabled bool

func Disable() { disabled = true }

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// tone renders one exponentially decaying sine, mono. The platform
// files interleave or byte-pack it for their playback API.
func tone(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	out := make([]int16, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		env := math.Exp(-t * decay)
		out[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * env)
	}
	return out
}

func doubleTone(sampleRate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	b := tone(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur))
	out := make([]int16, 0, 2*len(b)+len(gap))
	out = append(out, b...)
	out = append(out, gap...)
	out = append(out, b...)
	return out
}
