package audio

import (
	"io"
	"os"
	"sync"
	"time"
)

const wavHeaderSize = 44

// FakeSource replays scripted PCM chunks for tests and the scripted
// test mode. After the scripted audio runs out it yields silence chunks
// until stopped, so silence-driven segment cuts still fire.
type FakeSource struct {
	rate     int
	channels int
	paced    bool // sleep one chunk duration per Read
	startErr error

	mu        sync.Mutex
	chunks    [][]byte
	pos       int
	started   bool
	stop      chan struct{}
	audioDone chan struct{}
	doneOnce  sync.Once
}

func NewFakeSource(rate, channels int, chunks [][]byte) *FakeSource {
	return &FakeSource{
		rate:      rate,
		channels:  channels,
		chunks:    chunks,
		audioDone: make(chan struct{}),
	}
}

// NewFakeSourceFromWAV replays the PCM payload of a WAV file in
// ChunkFrames-sized chunks. Paced mode sleeps one chunk duration per
// Read to approximate a live microphone.
func NewFakeSourceFromWAV(path string, rate, channels int, paced bool) (*FakeSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) > wavHeaderSize {
		data = data[wavHeaderSize:]
	}
	chunkBytes := ChunkFrames * channels * 2
	var chunks [][]byte
	for pos := 0; pos < len(data); pos += chunkBytes {
		end := min(pos+chunkBytes, len(data))
		chunk := make([]byte, end-pos)
		copy(chunk, data[pos:end])
		chunks = append(chunks, chunk)
	}
	f := NewFakeSource(rate, channels, chunks)
	f.paced = paced
	return f, nil
}

// FailStart makes the next Start return err.
func (f *FakeSource) FailStart(err error) { f.startErr = err }

// AudioDone is closed once the scripted chunks are exhausted.
func (f *FakeSource) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeSource) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	f.started = true
	f.pos = 0
	f.stop = make(chan struct{})
	return nil
}

func (f *FakeSource) Read() ([]byte, error) {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return nil, io.EOF
	}
	stop := f.stop
	var chunk []byte
	if f.pos < len(f.chunks) {
		chunk = f.chunks[f.pos]
		f.pos++
		if f.pos == len(f.chunks) {
			f.doneOnce.Do(func() { close(f.audioDone) })
		}
	} else {
		chunk = make([]byte, ChunkFrames*f.channels*2)
	}
	f.mu.Unlock()

	select {
	case <-stop:
		return nil, io.EOF
	default:
	}

	if f.paced {
		interval := time.Duration(ChunkFrames) * time.Second / time.Duration(f.rate)
		select {
		case <-stop:
			return nil, io.EOF
		case <-time.After(interval):
		}
	}
	return chunk, nil
}

func (f *FakeSource) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.started = false
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
}

func (f *FakeSource) SampleRate() int    { return f.rate }
func (f *FakeSource) Channels() int      { return f.channels }
func (f *FakeSource) DeviceName() string { return "fake" }
