package main

import "testing"

const (
	warnTickCount  = 80  // 8 s of 100 ms ticks
	closeTickCount = 300 // 30 s
)

func holdMonitor() *silenceMonitor {
	return newSilenceMonitor(func() bool { return false })
}

func tapMonitor() *silenceMonitor {
	return newSilenceMonitor(func() bool { return true })
}

// drive feeds n identical ticks and returns every non-None event seen.
func drive(m *silenceMonitor, speech bool, n int) []SilenceEvent {
	var evs []SilenceEvent
	for i := 0; i < n; i++ {
		if ev := m.Tick(speech); ev != SilenceNone {
			evs = append(evs, ev)
		}
	}
	return evs
}

func TestQuietSessionWarnsAtEightSeconds(t *testing.T) {
	m := holdMonitor()
	if evs := drive(m, false, warnTickCount-1); len(evs) != 0 {
		t.Fatalf("events before the warn threshold: %v", evs)
	}
	if ev := m.Tick(false); ev != SilenceWarn {
		t.Fatalf("tick %d = %d, want SilenceWarn", warnTickCount, ev)
	}
}

func TestSpeechClearsWarning(t *testing.T) {
	m := holdMonitor()
	drive(m, false, warnTickCount)

	for i := 0; i < warnTickCount; i++ {
		if m.Tick(true) == SilenceWarnClear {
			return
		}
	}
	t.Fatal("warning never cleared under sustained speech")
}

func TestVoicedSessionNeverWarns(t *testing.T) {
	m := holdMonitor()
	for _, ev := range drive(m, true, 2*closeTickCount) {
		if ev == SilenceWarn {
			t.Fatal("warned during continuous speech")
		}
	}
}

func TestWarningRepeatsInTapMode(t *testing.T) {
	m := tapMonitor()
	drive(m, false, warnTickCount)
	for i := 0; i < warnTickCount+20; i++ {
		if m.Tick(false) == SilenceRepeat {
			return
		}
	}
	t.Fatal("no repeat alert after the first warning")
}

func TestTapModeAutoCloses(t *testing.T) {
	m := tapMonitor()
	for i := 0; i < closeTickCount+warnTickCount; i++ {
		if m.Tick(false) == SilenceAutoClose {
			if i < closeTickCount-1 {
				t.Fatalf("auto-close fired early at tick %d", i)
			}
			return
		}
	}
	t.Fatal("quiet tap session never auto-closed")
}

func TestAutoCloseWinsOverRepeat(t *testing.T) {
	m := tapMonitor()
	for i := 0; i < closeTickCount+100; i++ {
		ev := m.Tick(false)
		if ev == SilenceAutoClose {
			return
		}
		if i >= closeTickCount && ev == SilenceRepeat {
			t.Fatalf("repeat fired at tick %d where auto-close was due", i)
		}
	}
	t.Fatal("expected auto-close")
}

func TestHeldSessionNeverAutoCloses(t *testing.T) {
	m := holdMonitor()
	for _, ev := range drive(m, false, 2*closeTickCount) {
		if ev == SilenceAutoClose || ev == SilenceRepeat {
			t.Fatalf("timeout event %d in hold mode", ev)
		}
	}
}

func TestIntermittentSpeechBlocksAutoClose(t *testing.T) {
	m := tapMonitor()
	for i := 0; i < 2*closeTickCount; i++ {
		speech := i%10 < 7
		if m.Tick(speech) == SilenceAutoClose {
			t.Fatalf("auto-closed at tick %d despite 70%% speech", i)
		}
	}
}

func TestWarningFiresOnce(t *testing.T) {
	m := holdMonitor()
	warns := 0
	for _, ev := range drive(m, false, closeTickCount) {
		if ev == SilenceWarn {
			warns++
		}
	}
	if warns != 1 {
		t.Fatalf("got %d warnings for one silent stretch, want 1", warns)
	}
}

func TestSparseFalsePositivesDoNotClear(t *testing.T) {
	m := holdMonitor()
	drive(m, false, warnTickCount)

	// 10% voiced ticks sits between the warn and clear ratios.
	for i := 0; i < warnTickCount; i++ {
		if m.Tick(i%10 == 0) == SilenceWarnClear {
			t.Fatalf("10%% speech cleared the warning at tick %d", i)
		}
	}
}
