package main

import (
	"sync"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"

	"murmur/encoder"
)

const (
	vadMode       = 3 // most aggressive: fewest false positives
	vadFrameMs    = 20
	vadFrameBytes = encoder.SampleRate * vadFrameMs / 1000 * 2

	// A single voiced frame is noise; require a short run.
	vadDebounce = 3

	// Fraction of voiced frames for a watchdog tick to count as speech.
	speechThreshold = 0.10
)

// vadProcessor feeds 20 ms frames of the 16 kHz capture stream through
// webrtcvad and aggregates voiced-frame counts for the silence
// watchdog. One instance per session.
type vadProcessor struct {
	vad *webrtcvad.VAD

	mu           sync.Mutex
	pending      []byte
	speechRun    int
	totalFrames  int
	speechFrames int
	tickTotal    int
	tickSpeech   int
}

func newVADProcessor() (*vadProcessor, error) {
	v, err := webrtcvad.New()
	if err != nil {
		return nil, err
	}
	if err := v.SetMode(vadMode); err != nil {
		return nil, err
	}
	return &vadProcessor{vad: v}, nil
}

// Process consumes raw 16-bit PCM bytes. Partial frames are held until
// the next call.
func (p *vadProcessor) Process(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending = append(p.pending, data...)
	for len(p.pending) >= vadFrameBytes {
		frame := p.pending[:vadFrameBytes]
		p.pending = p.pending[vadFrameBytes:]

		active, err := p.vad.Process(encoder.SampleRate, frame)
		if err != nil {
			continue
		}
		p.totalFrames++
		if !active {
			p.speechRun = 0
			continue
		}
		p.speechRun++
		if p.speechRun >= vadDebounce {
			// Credit the frames the debounce withheld.
			if p.speechRun == vadDebounce {
				p.speechFrames += vadDebounce - 1
			}
			p.speechFrames++
		}
	}
}

// HasSpeechTick reports whether the frames since the previous call were
// mostly voiced. Called once per watchdog tick.
func (p *vadProcessor) HasSpeechTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.totalFrames - p.tickTotal
	s := p.speechFrames - p.tickSpeech
	p.tickTotal, p.tickSpeech = p.totalFrames, p.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= speechThreshold
}

// Stats returns the lifetime frame counts, logged at session end.
func (p *vadProcessor) Stats() (total, speech int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalFrames, p.speechFrames
}
