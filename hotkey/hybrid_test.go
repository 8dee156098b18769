package hotkey

import (
	"testing"
	"time"
)

func mustStart(t *testing.T, hy *Hybrid) {
	t.Helper()
	select {
	case <-hy.Start():
	case <-time.After(time.Second):
		t.Fatal("no start event")
	}
}

func mustStop(t *testing.T, hy *Hybrid) {
	t.Helper()
	select {
	case <-hy.StopChan():
	case <-time.After(time.Second):
		t.Fatal("no stop event")
	}
}

func TestHoldPastThresholdStopsOnRelease(t *testing.T) {
	fk := NewFake()
	threshold := 50 * time.Millisecond
	hy := NewHybrid(fk, threshold)

	fk.SimKeydown()
	mustStart(t, hy)

	time.Sleep(threshold + 20*time.Millisecond)
	if hy.IsToggle() {
		t.Error("hold past the threshold still reported as a tap")
	}
	fk.SimKeyup()
	mustStop(t, hy)
}

func TestTapKeepsRecordingUntilSecondTap(t *testing.T) {
	fk := NewFake()
	hy := NewHybrid(fk, 200*time.Millisecond)

	fk.SimKeydown()
	mustStart(t, hy)
	fk.SimKeyup()
	time.Sleep(10 * time.Millisecond)
	if !hy.IsToggle() {
		t.Error("quick tap not reported as toggle")
	}

	// Release alone must not end a tap session.
	select {
	case <-hy.StopChan():
		t.Fatal("tap release stopped the recording")
	case <-time.After(50 * time.Millisecond):
	}

	fk.SimKeydown()
	fk.SimKeyup()
	mustStop(t, hy)
}

func TestTapAndHoldAlternate(t *testing.T) {
	fk := NewFake()
	threshold := 50 * time.Millisecond
	hy := NewHybrid(fk, threshold)

	// hold
	fk.SimKeydown()
	mustStart(t, hy)
	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	mustStop(t, hy)

	// tap, then the closing tap
	fk.SimKeydown()
	mustStart(t, hy)
	fk.SimKeyup()
	time.Sleep(20 * time.Millisecond)
	fk.SimKeydown()
	fk.SimKeyup()
	mustStop(t, hy)

	// hold again, the tap cycle must not have wedged the state machine
	fk.SimKeydown()
	mustStart(t, hy)
	time.Sleep(threshold + 20*time.Millisecond)
	fk.SimKeyup()
	mustStop(t, hy)
}
