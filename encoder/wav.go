package encoder

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes 16 kHz mono PCM to path as a 16-bit WAV file.
// Used for handing segments to subprocess backends that cannot read
// raw PCM from stdin.
func WriteWAV(path string, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, SampleRate, BitsPerSample, Channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: SampleRate},
		SourceBitDepth: BitsPerSample,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
