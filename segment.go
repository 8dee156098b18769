package main

import "murmur/audio"

const (
	// Segments shorter than this carry no usable speech and are
	// never cut on silence.
	minSegmentSec = 0.75
	// Hard ceiling per segment. The buffer is cut even mid-speech so
	// a single long monologue cannot grow without bound.
	maxSegmentSec = 30.0
	// On a forced cut the tail is carried into the next segment so
	// a word split by the ceiling is transcribed whole once.
	forcedTailSec = 10.0
	// Segments whose peak never clears this are discarded outright.
	discardPeakFloor = 0.002
)

type cutReason string

const (
	cutSilence cutReason = "silence"
	cutForced  cutReason = "forced"
	cutFlush   cutReason = "flush"
)

// segmentBuffer accumulates 16 kHz mono PCM and decides where speech
// segments end. A segment is cut when the configured stretch of
// silence follows enough audio, or when the buffer hits the hard
// ceiling.
type segmentBuffer struct {
	minSamples     int
	maxSamples     int
	tailSamples    int
	silenceSamples int
	// When false only the forced ceiling cuts; continuous sessions
	// keep the buffer intact for window snapshots.
	silenceCut bool

	buf        []int16
	silenceRun int
	peak       float64
}

// newSegmentBuffer sizes the buffer for the engine rate.
// silenceThreshold is the configured silence duration in seconds.
func newSegmentBuffer(silenceThreshold float64) *segmentBuffer {
	rate := float64(audio.EngineRate)
	return &segmentBuffer{
		minSamples:     int(minSegmentSec * rate),
		maxSamples:     int(maxSegmentSec * rate),
		tailSamples:    int(forcedTailSec * rate),
		silenceSamples: int(silenceThreshold * rate),
		silenceCut:     true,
	}
}

// Push appends one chunk. silent marks whether the chunk's raw level
// was below the audio threshold. A non-nil return is a finished
// segment ready for transcription; nil with reason cutSilence means a
// too-quiet segment was dropped.
func (b *segmentBuffer) Push(chunk []int16, peak float64, silent bool) ([]int16, cutReason) {
	b.buf = append(b.buf, chunk...)
	if peak > b.peak {
		b.peak = peak
	}
	if silent {
		b.silenceRun += len(chunk)
	} else {
		b.silenceRun = 0
	}

	if len(b.buf) >= b.maxSamples {
		return b.forcedCut(), cutForced
	}

	if b.silenceCut && b.silenceRun >= b.silenceSamples && len(b.buf) >= b.minSamples {
		return b.take(), cutSilence
	}
	return nil, ""
}

// forcedCut emits the whole buffer and seeds the next segment with a
// copy of the trailing audio. The seed keeps the segment's peak, so a
// tail holding speech followed by silence is not discarded as noise.
func (b *segmentBuffer) forcedCut() []int16 {
	carried := b.peak
	seg := b.take()
	if seg == nil {
		return nil
	}
	tail := seg[max(0, len(seg)-b.tailSamples):]
	b.buf = append(b.buf, tail...)
	b.peak = carried
	return seg
}

// Flush returns whatever remains, applying the same minimum-length
// and quiet-segment rules. Called when the session drains.
func (b *segmentBuffer) Flush() []int16 {
	if len(b.buf) < b.minSamples {
		b.reset()
		return nil
	}
	return b.take()
}

// Window returns a copy of up to the last n seconds of buffered
// audio. The copy keeps the capture goroutine free to keep appending.
func (b *segmentBuffer) Window(seconds float64) []int16 {
	n := int(seconds * float64(audio.EngineRate))
	if n > len(b.buf) {
		n = len(b.buf)
	}
	out := make([]int16, n)
	copy(out, b.buf[len(b.buf)-n:])
	return out
}

// Buffered reports the current buffer length in samples.
func (b *segmentBuffer) Buffered() int { return len(b.buf) }

// Duration reports the buffered audio in seconds.
func (b *segmentBuffer) Duration() float64 {
	return float64(len(b.buf)) / float64(audio.EngineRate)
}

func (b *segmentBuffer) take() []int16 {
	quiet := b.peak < discardPeakFloor
	seg := b.buf
	b.reset()
	if quiet {
		return nil
	}
	return seg
}

func (b *segmentBuffer) reset() {
	b.buf = nil
	b.silenceRun = 0
	b.peak = 0
}
