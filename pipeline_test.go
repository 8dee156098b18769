package main

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/config"
	"murmur/output"
	"murmur/transcriber"
)

func TestMain(m *testing.M) {
	beep.Disable()
	os.Exit(m.Run())
}

type fakeEngine struct {
	mu    sync.Mutex
	text  string
	err   error
	block chan struct{} // when set, Transcribe waits on it
	calls int
}

func (e *fakeEngine) Transcribe(_ context.Context, samples []int16, _ int, _ transcriber.Settings) (transcriber.Result, error) {
	e.mu.Lock()
	e.calls++
	block := e.block
	err := e.err
	text := e.text
	e.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return transcriber.Result{}, err
	}
	return transcriber.Result{
		Text:         text,
		NoSpeech:     text == "",
		AudioSeconds: float64(len(samples)) / float64(audio.EngineRate),
	}, nil
}

func (e *fakeEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeEmitter struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeEmitter) Emit(text string, _ output.Method) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return nil
}

func (f *fakeEmitter) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// loudChunks builds n seconds of full-volume script for a FakeSource.
func loudChunks(seconds float64) [][]byte {
	n := int(seconds * float64(audio.EngineRate))
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = 12000
	}
	data := audio.Bytes(samples)
	var chunks [][]byte
	size := audio.ChunkFrames * 2
	for off := 0; off < len(data); off += size {
		end := min(off+size, len(data))
		chunks = append(chunks, data[off:end])
	}
	return chunks
}

func testConfig() *config.Config {
	cfg := config.Default()
	return &cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestToggleStartsAndDrainsSession(t *testing.T) {
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(2.0))
	engine := &fakeEngine{text: "hello world"}
	sink := &fakeEmitter{}
	p := NewPipeline(testConfig(), func() (audio.Source, error) { return src, nil }, engine, sink, nil)

	p.Toggle()
	if !p.Listening() {
		t.Fatal("pipeline not listening after toggle")
	}

	// The script ends in synthetic silence, so the speech segment is
	// cut and emitted while still recording.
	waitFor(t, "first emission", func() bool { return len(sink.Texts()) >= 1 })

	p.Toggle()
	p.WaitIdle()

	if p.Listening() {
		t.Error("still listening after drain")
	}
	if got := sink.Texts(); len(got) == 0 || got[0] != "hello world" {
		t.Errorf("emitted %q, want hello world first", got)
	}
}

func TestToggleDuringDrainIsDropped(t *testing.T) {
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(1.0))
	engine := &fakeEngine{text: "queued", block: make(chan struct{})}
	sink := &fakeEmitter{}
	sources := 0
	p := NewPipeline(testConfig(), func() (audio.Source, error) {
		sources++
		return src, nil
	}, engine, sink, nil)

	p.Toggle()
	waitFor(t, "a transcription in flight", func() bool { return engine.Calls() >= 1 })
	p.Toggle() // drain starts, worker still blocked

	p.Toggle() // must be dropped, not start a new session
	if p.Listening() {
		t.Error("toggle during drain restarted the session")
	}

	close(engine.block)
	p.WaitIdle()
	if sources != 1 {
		t.Errorf("opened %d sources, want 1", sources)
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	src := audio.NewFakeSource(audio.EngineRate, 1, nil)
	src.FailStart(audio.ErrNoDevice)
	sink := &fakeEmitter{}
	p := NewPipeline(testConfig(), func() (audio.Source, error) { return src, nil }, &fakeEngine{}, sink, nil)

	p.Toggle()
	if p.Listening() {
		t.Fatal("listening despite source failure")
	}
	p.WaitIdle() // must not hang
}

func TestContinuousModeSuppressesRepeats(t *testing.T) {
	cfg := testConfig()
	cfg.ContinuousMode = true

	// Successive window snapshots cover the same audio and the engine
	// returns the same text for each, so only one emission may reach
	// the sink.
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(2.0))
	engine := &fakeEngine{text: "hello there"}
	sink := &fakeEmitter{}
	p := NewPipeline(cfg, func() (audio.Source, error) { return src, nil }, engine, sink, nil)
	p.snapshotEvery = 20 * time.Millisecond

	p.Toggle()
	waitFor(t, "two snapshot transcriptions", func() bool { return engine.Calls() >= 2 })
	waitFor(t, "an emission", func() bool { return len(sink.Texts()) >= 1 })
	p.Toggle()
	p.WaitIdle()

	if got := sink.Texts(); len(got) != 1 || got[0] != "hello there" {
		t.Errorf("emitted %q, want a single hello there", got)
	}
}

func TestContinuousStopSkipsFinalTranscription(t *testing.T) {
	cfg := testConfig()
	cfg.ContinuousMode = true

	// Stopped before the first snapshot tick: the buffered speech must
	// not be flushed to the engine on the way out.
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(2.0))
	engine := &fakeEngine{text: "tail words"}
	sink := &fakeEmitter{}
	p := NewPipeline(cfg, func() (audio.Source, error) { return src, nil }, engine, sink, nil)

	p.Toggle()
	select {
	case <-src.AudioDone():
	case <-time.After(5 * time.Second):
		t.Fatal("scripted audio never drained")
	}
	p.Toggle()
	p.WaitIdle()

	if got := engine.Calls(); got != 0 {
		t.Errorf("engine invoked %d time(s) after continuous stop, want 0", got)
	}
	if got := sink.Texts(); len(got) != 0 {
		t.Errorf("emitted %q, want nothing", got)
	}
}

func TestEngineUnavailableEndsSession(t *testing.T) {
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(2.0))
	engine := &fakeEngine{err: transcriber.ErrEngineUnavailable}
	sink := &fakeEmitter{}
	p := NewPipeline(testConfig(), func() (audio.Source, error) { return src, nil }, engine, sink, nil)

	p.Toggle()
	waitFor(t, "session to end", func() bool { return !p.Listening() })
	p.WaitIdle()
	if len(sink.Texts()) != 0 {
		t.Errorf("emitted %q despite engine being down", sink.Texts())
	}
}

// recordingSink counts engine error events.
type recordingSink struct {
	nopSink
	mu     sync.Mutex
	errors []string
}

func (r *recordingSink) EngineError(msg string) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
}

func (r *recordingSink) ErrorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func TestEngineUnavailableReportedOncePerSession(t *testing.T) {
	// Two speech bursts queue two segments before the worker sees the
	// first failure; the second failure must not re-alert.
	script := append(loudChunks(1.0), silenceChunks(1.0)...)
	script = append(script, loudChunks(1.0)...)
	script = append(script, silenceChunks(1.0)...)
	src := audio.NewFakeSource(audio.EngineRate, 1, script)
	engine := &fakeEngine{err: transcriber.ErrEngineUnavailable, block: make(chan struct{})}
	events := &recordingSink{}
	p := NewPipeline(testConfig(), func() (audio.Source, error) { return src, nil }, engine, &fakeEmitter{}, events)

	p.Toggle()
	select {
	case <-src.AudioDone():
	case <-time.After(5 * time.Second):
		t.Fatal("scripted audio never drained")
	}
	close(engine.block)
	waitFor(t, "session to end", func() bool { return !p.Listening() })
	p.WaitIdle()

	if got := events.ErrorCount(); got != 1 {
		t.Errorf("engine failure reported %d times, want once", got)
	}
}

func TestConfigChangeAppliesToNextSession(t *testing.T) {
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(2.0))
	engine := &fakeEngine{text: "hold the line", block: make(chan struct{})}
	sink := &fakeEmitter{}
	p := NewPipeline(testConfig(), func() (audio.Source, error) { return src, nil }, engine, sink, nil)

	p.Toggle()
	waitFor(t, "a transcription in flight", func() bool { return engine.Calls() >= 1 })

	got := p.UpdateConfig(func(c *config.Config) { c.ContinuousMode = true })
	if !got.ContinuousMode {
		t.Fatal("UpdateConfig did not apply the change")
	}

	// The running session keeps the snapshot it started with.
	p.mu.Lock()
	s := p.cur
	p.mu.Unlock()
	if s == nil {
		t.Fatal("no active session")
	}
	if s.continuous() || s.cfg.ContinuousMode {
		t.Error("mode change leaked into the running session")
	}

	close(engine.block)
	p.Toggle()
	p.WaitIdle()
}

func TestShutdownDrainsActiveSession(t *testing.T) {
	src := audio.NewFakeSource(audio.EngineRate, 1, loudChunks(1.0))
	sink := &fakeEmitter{}
	p := NewPipeline(testConfig(), func() (audio.Source, error) { return src, nil }, &fakeEngine{text: "bye"}, sink, nil)

	p.Toggle()
	p.Shutdown()
	if p.Listening() {
		t.Error("still listening after shutdown")
	}
}

func silenceChunks(seconds float64) [][]byte {
	n := int(seconds * float64(audio.EngineRate))
	data := make([]byte, n*2)
	var chunks [][]byte
	size := audio.ChunkFrames * 2
	for off := 0; off < len(data); off += size {
		end := min(off+size, len(data))
		chunks = append(chunks, data[off:end])
	}
	return chunks
}
