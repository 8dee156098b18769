package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/config"
	"murmur/log"
	"murmur/output"
	"murmur/transcriber"
)

const (
	continuousInterval = 3 * time.Second
	continuousWindow   = 5.0 // seconds of audio per provisional snapshot
	jobQueueDepth      = 4
)

type pipelineState int

const (
	stateIdle pipelineState = iota
	stateListening
	stateDraining
)

// textEmitter is the slice of output.Sink the pipeline needs.
type textEmitter interface {
	Emit(text string, method output.Method) error
}

// engineRunner is the slice of transcriber.Engine the pipeline needs.
type engineRunner interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate int, s transcriber.Settings) (transcriber.Result, error)
}

type segJob struct {
	gen         int
	samples     []int16
	reason      cutReason
	provisional bool // continuous window snapshot, may repeat audio
}

type session struct {
	gen    int
	mode   string
	cfg    config.Config // snapshot taken at session start
	source audio.Source
	vad    *vadProcessor
	dedup  *deduper

	bufMu sync.Mutex
	buf   *segmentBuffer

	jobs      chan segJob
	stop      chan struct{}
	stopOnce  sync.Once
	producers sync.WaitGroup
	started   time.Time
	segments  int

	clipWarned bool // capture goroutine only
	engineDown bool // worker goroutine only
}

func (s *session) signalStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *session) continuous() bool { return s.mode == "continuous" }

func (s *session) settings() transcriber.Settings {
	return transcriber.Settings{
		Model:            s.cfg.WhisperModel,
		Device:           s.cfg.Device,
		ComputeType:      s.cfg.ComputeType,
		Language:         s.cfg.Language,
		SilenceThreshold: s.cfg.SilenceThreshold,
		AudioThreshold:   s.cfg.AudioThreshold,
		GPUMemoryLimit:   s.cfg.GPUMemoryLimit,
	}
}

// Pipeline owns the capture-to-output flow. One session at a time:
// Idle -> Listening -> Draining -> Idle. A toggle during drain is
// dropped so queued segments cannot leak into a new session.
type Pipeline struct {
	cfg       *config.Config
	newSource func() (audio.Source, error)
	engine    engineRunner
	sink      textEmitter
	events    StatusSink
	isToggle  func() bool

	snapshotEvery time.Duration

	mu    sync.Mutex
	state pipelineState
	gen   int
	cur   *session

	// Idle is closed and remade per session so tests and shutdown can
	// wait for the drain to finish.
	idle chan struct{}
}

func NewPipeline(cfg *config.Config, newSource func() (audio.Source, error), engine engineRunner, sink textEmitter, events StatusSink) *Pipeline {
	if events == nil {
		events = nopSink{}
	}
	idle := make(chan struct{})
	close(idle)
	return &Pipeline{
		cfg:           cfg,
		newSource:     newSource,
		engine:        engine,
		sink:          sink,
		events:        events,
		isToggle:      func() bool { return true },
		snapshotEvery: continuousInterval,
		idle:          idle,
	}
}

// UpdateConfig applies fn to the live config under the pipeline lock
// and returns a copy for persisting. The running session, if any,
// keeps the snapshot it started with; changes apply from the next
// session.
func (p *Pipeline) UpdateConfig(fn func(*config.Config)) config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p.cfg)
	return *p.cfg
}

// Config returns a copy of the live configuration.
func (p *Pipeline) Config() config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.cfg
}

// SetToggleProbe tells the pipeline whether the current session was
// started by a tap (toggle) rather than a hold. Silence auto-close
// only applies to toggle sessions.
func (p *Pipeline) SetToggleProbe(fn func() bool) {
	if fn != nil {
		p.isToggle = fn
	}
}

// Toggle starts a session when idle and drains it when listening.
// Pressed during a drain it is dropped.
func (p *Pipeline) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case stateIdle:
		p.startLocked()
	case stateListening:
		p.stopLocked()
	case stateDraining:
		log.Warn("toggle ignored while finishing the previous session")
	}
}

// Listening reports whether a session is actively capturing.
func (p *Pipeline) Listening() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == stateListening
}

// WaitIdle blocks until the current session, if any, has fully
// drained.
func (p *Pipeline) WaitIdle() {
	p.mu.Lock()
	ch := p.idle
	p.mu.Unlock()
	<-ch
}

// Shutdown drains any active session and waits for it.
func (p *Pipeline) Shutdown() {
	p.mu.Lock()
	if p.state == stateListening {
		p.stopLocked()
	}
	p.mu.Unlock()
	p.WaitIdle()
}

func (p *Pipeline) startLocked() {
	src, err := p.newSource()
	if err == nil {
		err = src.Start()
	}
	if err != nil {
		if errors.Is(err, audio.ErrNoDevice) {
			p.events.EngineError("no working audio device")
		} else {
			p.events.EngineError(err.Error())
		}
		log.Errorf("starting capture: %v", err)
		beep.PlayError()
		return
	}

	vad, err := newVADProcessor()
	if err != nil {
		// Recording still works, only the silence watchdog is lost.
		log.Warnf("voice detection unavailable: %v", err)
	}

	snap := *p.cfg
	mode := "push-to-talk"
	if snap.ContinuousMode {
		mode = "continuous"
	}

	buf := newSegmentBuffer(snap.SilenceThreshold)
	if snap.ContinuousMode {
		// The window sampler is the only reader of continuous audio, so
		// silence must not cut the buffer out from under it.
		buf.silenceCut = false
	}

	p.gen++
	s := &session{
		gen:     p.gen,
		mode:    mode,
		cfg:     snap,
		source:  src,
		vad:     vad,
		dedup:   newDeduper(),
		buf:     buf,
		jobs:    make(chan segJob, jobQueueDepth),
		stop:    make(chan struct{}),
		started: time.Now(),
	}
	p.cur = s
	p.state = stateListening
	p.idle = make(chan struct{})

	log.SessionStart(mode, src.DeviceName())
	p.events.RecordingStart(mode)
	p.events.DeviceLine(src.DeviceName())
	beep.PlayStart()

	s.producers.Add(1)
	go p.capture(s)
	if snap.ContinuousMode {
		s.producers.Add(1)
		go p.snapshots(s)
	}
	go func() {
		s.producers.Wait()
		close(s.jobs)
	}()
	go p.worker(s)
	if vad != nil {
		go p.watchdog(s)
	}
}

func (p *Pipeline) stopLocked() {
	s := p.cur
	p.state = stateDraining
	s.signalStop()
	s.source.Stop()
	beep.PlayEnd()
	p.events.RecordingStop()
}

// capture pulls chunks until the source ends, then flushes the
// remainder as a final segment. Continuous sessions feed the engine
// only through the window sampler: cut segments are dropped and the
// session stops without a final transcription.
func (p *Pipeline) capture(s *session) {
	defer s.producers.Done()

	for {
		data, err := s.source.Read()
		if err != nil {
			select {
			case <-s.stop:
			default:
				log.Errorf("audio capture ended: %v", err)
				go p.endSession(s)
			}
			break
		}

		samples := audio.Samples(data)
		samples = audio.Downmix(samples, s.source.Channels())
		if rate := s.source.SampleRate(); rate != audio.EngineRate {
			samples = audio.Resample(samples, rate, audio.EngineRate)
		}

		// The silence decision uses the raw peak so it tracks the
		// microphone; the reported levels include gain so the meter
		// shows what the engine hears, clipping included.
		rawPeak, _ := chunkLevel(samples, 1)
		peak, rms := chunkLevel(samples, s.cfg.AudioGain)
		silent := rawPeak < s.cfg.AudioThreshold
		if peak > 1.0 && !s.clipWarned {
			s.clipWarned = true
			log.Warnf("input clipping at gain %.1f, lower audio_gain", s.cfg.AudioGain)
		}
		applyGain(samples, s.cfg.AudioGain)
		if s.vad != nil {
			s.vad.Process(audio.Bytes(samples))
		}
		p.events.AudioLevel(rms)

		s.bufMu.Lock()
		seg, reason := s.buf.Push(samples, rawPeak, silent)
		s.bufMu.Unlock()
		if reason != "" && seg == nil {
			log.SegmentCut(0, "discarded quiet audio")
		}
		if seg != nil {
			log.SegmentCut(float64(len(seg))/float64(audio.EngineRate), string(reason))
			if !s.continuous() {
				s.jobs <- segJob{gen: s.gen, samples: seg, reason: reason}
			}
		}
	}

	if s.continuous() {
		return
	}
	s.bufMu.Lock()
	seg := s.buf.Flush()
	s.bufMu.Unlock()
	if seg != nil {
		log.SegmentCut(float64(len(seg))/float64(audio.EngineRate), string(cutFlush))
		s.jobs <- segJob{gen: s.gen, samples: seg, reason: cutFlush}
	}
}

// snapshots feeds provisional windows to the engine while a
// continuous session runs. A snapshot is skipped when the queue is
// busy; the next tick covers the same audio anyway.
func (p *Pipeline) snapshots(s *session) {
	defer s.producers.Done()

	ticker := time.NewTicker(p.snapshotEvery)
	defer ticker.Stop()
	minSamples := int(minSegmentSec * float64(audio.EngineRate))

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.bufMu.Lock()
			var snap []int16
			if s.buf.Buffered() >= minSamples {
				snap = s.buf.Window(continuousWindow)
			}
			s.bufMu.Unlock()
			if snap == nil {
				continue
			}
			select {
			case s.jobs <- segJob{gen: s.gen, samples: snap, provisional: true}:
			default:
			}
		}
	}
}

// worker serializes transcription and output for one session, then
// returns the pipeline to idle.
func (p *Pipeline) worker(s *session) {
	for job := range s.jobs {
		p.runJob(s, job)
	}

	p.mu.Lock()
	if p.cur == s {
		p.cur = nil
		p.state = stateIdle
		close(p.idle)
	}
	p.mu.Unlock()
	if s.vad != nil {
		total, speech := s.vad.Stats()
		log.Infof("vad frames: %d/%d voiced", speech, total)
	}
	log.SessionEnd(s.segments)
}

func (p *Pipeline) runJob(s *session, job segJob) {
	res, err := p.engine.Transcribe(context.Background(), job.samples, audio.EngineRate, s.settings())
	if err != nil {
		if errors.Is(err, transcriber.ErrEngineUnavailable) {
			// Reported once; the queue may still hold segments that
			// fail the same way while the session drains.
			if !s.engineDown {
				s.engineDown = true
				log.Errorf("engine unavailable: %v", err)
				p.events.EngineError("transcription engine unavailable")
				beep.PlayError()
				go p.endSession(s)
			}
			return
		}
		// Inference errors drop the segment, the session continues.
		log.Errorf("transcription failed: %v", err)
		return
	}

	if job.provisional && job.gen != p.currentGen() {
		return // session ended while this snapshot was in flight
	}

	text := res.Text
	if s.continuous() {
		text = s.dedup.Clean(text)
	}
	if res.NoSpeech || text == "" {
		p.events.Transcription("", res.RealtimeFactor, true)
		return
	}

	if err := p.sink.Emit(text, output.ParseMethod(s.cfg.OutputMethod)); err != nil {
		log.Errorf("delivering text: %v", err)
		p.events.EngineError(fmt.Sprintf("output failed: %v", err))
		return
	}
	s.segments++
	log.TranscriptionText(text)
	log.Transcription(log.Metrics{
		AudioLengthS:   res.AudioSeconds,
		RealtimeFactor: res.RealtimeFactor,
		TotalTimeMs:    res.RealtimeFactor * res.AudioSeconds * 1000,
	}, "", false)
	runStats.Record(res.RealtimeFactor*res.AudioSeconds*1000, res.RealtimeFactor)
	p.events.Transcription(text, res.RealtimeFactor, false)
}

// watchdog warns when a session runs without detectable speech and
// auto-closes toggle sessions after a long silent stretch.
func (p *Pipeline) watchdog(s *session) {
	monitor := newSilenceMonitor(p.isToggle)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			p.events.RecordingTick(time.Since(s.started).Seconds())
			switch monitor.Tick(s.vad.HasSpeechTick()) {
			case SilenceWarn:
				p.events.NoVoiceWarning(true)
				beep.PlayError()
			case SilenceRepeat:
				beep.PlayError()
			case SilenceWarnClear:
				p.events.NoVoiceWarning(false)
			case SilenceAutoClose:
				log.Warn("no speech for 30s, closing session")
				go p.endSession(s)
				return
			}
		}
	}
}

// endSession drains s if it is still the active session.
func (p *Pipeline) endSession(s *session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == s && p.state == stateListening {
		p.stopLocked()
	}
}

func (p *Pipeline) currentGen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}
