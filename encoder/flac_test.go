package encoder

import (
	"bytes"
	"math"
	"testing"

	"github.com/mewkiz/flac"
)

func sineSamples(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(12000 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return out
}

func TestFlacRoundTrip(t *testing.T) {
	samples := sineSamples(3 * BlockSize / 2) // full block + partial block

	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	for off := 0; off < len(samples); off += BlockSize {
		end := off + BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[off:end]); err != nil {
			t.Fatalf("EncodeBlock at %d: %v", off, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := enc.Bytes()
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with the FLAC magic")
	}

	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parsing encoded stream: %v", err)
	}
	defer stream.Close()
	if got := stream.Info.SampleRate; got != SampleRate {
		t.Errorf("decoded sample rate = %d, want %d", got, SampleRate)
	}

	var decoded int
	for {
		f, err := stream.ParseNext()
		if err != nil {
			break
		}
		decoded += int(f.BlockSize)
	}
	if decoded != len(samples) {
		t.Errorf("decoded %d samples, want %d", decoded, len(samples))
	}
}

func TestFlacEmptyStreamHasHeader(t *testing.T) {
	enc, err := NewFlac()
	if err != nil {
		t.Fatalf("NewFlac: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close on empty encoder: %v", err)
	}
	if len(enc.Bytes()) == 0 {
		t.Error("empty stream should still carry the header")
	}
}
