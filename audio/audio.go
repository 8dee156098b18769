package audio

import (
	"encoding/binary"
	"errors"
	"strings"
)

const (
	// EngineRate is the sample rate handed to the transcription engine.
	// Everything captured at a native device rate is resampled down to it.
	EngineRate = 16000

	// ChunkFrames is the nominal frame count per Read at the native rate.
	ChunkFrames = 4096
)

// ErrNoDevice means every candidate capture configuration was tried and
// none produced data.
var ErrNoDevice = errors.New("no audio device produced data")

// Source is a raw PCM producer: signed 16-bit little-endian samples at
// the negotiated SampleRate/Channels. Read blocks the calling goroutine
// until data arrives or the stream ends with io.EOF. Stop is safe from
// any goroutine and idempotent; a blocked Read must return within one
// poll interval of Stop.
type Source interface {
	Start() error
	Read() ([]byte, error)
	Stop()
	SampleRate() int
	Channels() int
	DeviceName() string
}

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Samples decodes little-endian 16-bit PCM bytes. A trailing odd byte
// is dropped.
func Samples(data []byte) []int16 {
	out := make([]int16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		out = append(out, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	return out
}

// Bytes is the inverse of Samples.
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Downmix averages interleaved channels into mono. Mono input is
// returned unchanged.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, 0, len(samples)/channels)
	for i := 0; i+channels <= len(samples); i += channels {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i+c])
		}
		out = append(out, int16(sum/int32(channels)))
	}
	return out
}
