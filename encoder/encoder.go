// Package encoder serializes finished 16 kHz mono segments for the
// transcription backends: FLAC for the HTTP upload path, WAV for
// subprocess backends.
package encoder

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16

	// BlockSize is the FLAC frame size; segments are fed in blocks of
	// this many samples with a shorter final block.
	BlockSize = 4096
)
