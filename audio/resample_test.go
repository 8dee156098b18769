package audio

import (
	"math"
	"testing"
)

func TestResampleIdentityAt16k(t *testing.T) {
	in := []int16{0, 100, -200, 300, -32768, 32767}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("length changed: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d changed: got %d, want %d", i, out[i], in[i])
		}
	}
	// Must be a copy, not an alias.
	out[0] = 1
	if in[0] != 0 {
		t.Error("resample aliased its input")
	}
}

func TestResampleLengthScaling(t *testing.T) {
	cases := []struct {
		n, from, to int
	}{
		{44100, 44100, 16000},
		{48000, 48000, 16000},
		{4096, 44100, 16000},
		{1000, 16000, 16000},
		{3, 44100, 16000},
	}
	for _, c := range cases {
		in := make([]int16, c.n)
		out := Resample(in, c.from, c.to)
		want := int(math.Round(float64(c.n) * float64(c.to) / float64(c.from)))
		if len(out) != want {
			t.Errorf("resample(%d, %d->%d): got %d samples, want %d", c.n, c.from, c.to, len(out), want)
		}
	}
}

func TestResamplePreservesEndpoints(t *testing.T) {
	in := make([]int16, 441)
	for i := range in {
		in[i] = int16(i * 10)
	}
	out := Resample(in, 44100, 16000)
	if out[0] != in[0] {
		t.Errorf("first sample: got %d, want %d", out[0], in[0])
	}
	if out[len(out)-1] != in[len(in)-1] {
		t.Errorf("last sample: got %d, want %d", out[len(out)-1], in[len(in)-1])
	}
}

func TestDownmixStereo(t *testing.T) {
	in := []int16{100, 200, -100, -200, 0, 50}
	out := Downmix(in, 2)
	want := []int16{150, -150, 25}
	if len(out) != len(want) {
		t.Fatalf("got %d samples, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], want[i])
		}
	}
}

func TestDownmixMonoPassthrough(t *testing.T) {
	in := []int16{1, 2, 3}
	out := Downmix(in, 1)
	if &out[0] != &in[0] {
		t.Error("mono downmix should be a passthrough")
	}
}

func TestSamplesBytesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	got := Samples(Bytes(in))
	if len(got) != len(in) {
		t.Fatalf("got %d samples, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], in[i])
		}
	}
}
