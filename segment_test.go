package main

import (
	"testing"

	"murmur/audio"
)

const testChunk = 4000 // samples per pushed chunk

func pushSeconds(b *segmentBuffer, seconds float64, peak float64, silent bool) ([]int16, cutReason) {
	n := int(seconds * float64(audio.EngineRate))
	chunk := make([]int16, testChunk)
	if !silent {
		chunk[0] = 16000
	}
	for pushed := 0; pushed < n; pushed += testChunk {
		if seg, reason := b.Push(chunk, peak, silent); seg != nil || reason != "" {
			return seg, reason
		}
	}
	return nil, ""
}

func TestSegmentCutsAfterSilence(t *testing.T) {
	b := newSegmentBuffer(0.75)

	if seg, _ := pushSeconds(b, 1.25, 0.5, false); seg != nil {
		t.Fatal("cut during speech")
	}
	seg, reason := pushSeconds(b, 2.0, 0.001, true)
	if seg == nil {
		t.Fatal("no cut after sustained silence")
	}
	if reason != cutSilence {
		t.Errorf("reason = %q, want silence", reason)
	}
	// 1.25 s speech + 0.75 s of silence, cut exactly at the threshold.
	want := int(1.25*float64(audio.EngineRate)) + b.silenceSamples
	if len(seg) != want {
		t.Errorf("segment length = %d samples, want %d", len(seg), want)
	}
	if b.Buffered() != 0 {
		t.Errorf("buffer not reset after cut: %d samples", b.Buffered())
	}
}

func TestSegmentQuietAudioDiscarded(t *testing.T) {
	b := newSegmentBuffer(0.75)

	// Background hiss only: levels never clear the discard floor.
	seg, reason := pushSeconds(b, 3.0, 0.001, true)
	if reason != cutSilence {
		t.Fatalf("reason = %q, want a silence cut decision", reason)
	}
	if seg != nil {
		t.Errorf("quiet segment was emitted (%d samples), want discard", len(seg))
	}
}

func TestSegmentForcedCutSeedsTail(t *testing.T) {
	b := newSegmentBuffer(0.75)

	seg, reason := pushSeconds(b, 31.0, 0.5, false)
	if seg == nil {
		t.Fatal("no forced cut after exceeding the ceiling")
	}
	if reason != cutForced {
		t.Errorf("reason = %q, want forced", reason)
	}
	if got := float64(len(seg)) / float64(audio.EngineRate); got < maxSegmentSec {
		t.Errorf("forced segment = %.1fs, want at least %.0fs", got, maxSegmentSec)
	}
	// The trailing audio must survive into the next segment.
	wantTail := int(forcedTailSec * float64(audio.EngineRate))
	if b.Buffered() != wantTail {
		t.Errorf("carried tail = %d samples, want %d", b.Buffered(), wantTail)
	}
}

func TestForcedCutTailKeepsSpeechPeak(t *testing.T) {
	b := newSegmentBuffer(0.75)

	seg, reason := pushSeconds(b, 31.0, 0.5, false)
	if seg == nil || reason != cutForced {
		t.Fatalf("seg=%v reason=%q, want a forced cut", seg != nil, reason)
	}
	// Pure silence follows the cut. The carried tail still holds
	// speech, so it must not be discarded as noise.
	seg, reason = pushSeconds(b, 2.0, 0.001, true)
	if reason != cutSilence {
		t.Fatalf("reason = %q, want silence", reason)
	}
	if seg == nil {
		t.Error("carried tail discarded as a quiet segment")
	}
}

func TestSilenceCutDisabled(t *testing.T) {
	b := newSegmentBuffer(0.75)
	b.silenceCut = false

	pushSeconds(b, 1.25, 0.5, false)
	if seg, reason := pushSeconds(b, 2.0, 0.001, true); seg != nil || reason != "" {
		t.Errorf("seg=%v reason=%q, want silence to leave the buffer alone", seg != nil, reason)
	}
	if b.Buffered() == 0 {
		t.Error("buffer was reset despite silence cuts being off")
	}
}

func TestFlushDropsShortBuffer(t *testing.T) {
	b := newSegmentBuffer(0.75)
	pushSeconds(b, 0.5, 0.5, false)
	if seg := b.Flush(); seg != nil {
		t.Errorf("flushed %d samples from a sub-minimum buffer", len(seg))
	}
	if b.Buffered() != 0 {
		t.Error("flush did not reset the buffer")
	}
}

func TestFlushReturnsRemainder(t *testing.T) {
	b := newSegmentBuffer(0.75)
	pushSeconds(b, 2.0, 0.5, false)
	seg := b.Flush()
	want := int(2.0 * float64(audio.EngineRate))
	if len(seg) != want {
		t.Errorf("flushed %d samples, want %d", len(seg), want)
	}
}

func TestWindowIsACopy(t *testing.T) {
	b := newSegmentBuffer(0.75)
	pushSeconds(b, 6.0, 0.5, false)

	win := b.Window(5.0)
	if got := len(win); got != 5*audio.EngineRate {
		t.Fatalf("window = %d samples, want %d", got, 5*audio.EngineRate)
	}
	for i := range win {
		win[i] = 999
	}
	again := b.Window(5.0)
	for i, s := range again {
		if s == 999 {
			t.Fatalf("window aliased the buffer at sample %d", i)
		}
	}
}

func TestSpeechResetsSilenceRun(t *testing.T) {
	b := newSegmentBuffer(0.75)
	pushSeconds(b, 1.0, 0.5, false)
	pushSeconds(b, 0.5, 0.001, true) // below threshold, no cut yet
	pushSeconds(b, 0.25, 0.5, false) // speech resumes
	seg, _ := pushSeconds(b, 0.5, 0.001, true)
	if seg != nil {
		t.Error("cut fired even though speech interrupted the silence run")
	}
}
