package main

import "time"

const (
	tickInterval        = 100 * time.Millisecond
	silenceWarnEvery    = 8 * time.Second
	silenceAutoCloseDur = 30 * time.Second

	// Hysteresis: it takes more voiced ticks to clear a warning than it
	// took silence to raise one.
	speechMinRatio   = 0.10
	speechClearRatio = 0.25
)

type SilenceEvent int

const (
	SilenceNone SilenceEvent = iota
	SilenceWarn
	SilenceWarnClear
	SilenceRepeat
	SilenceAutoClose
)

// silenceMonitor watches the per-tick voice verdicts of one session. A
// session that stays quiet gets a warning after ~8 s and, in toggle
// mode, is closed after ~30 s. isToggle is consulted per tick because a
// hybrid hold can only end by key release.
type silenceMonitor struct {
	warnTicks  int
	closeTicks int
	isToggle   func() bool

	ring      []bool
	voiced    int // voiced ticks across the whole ring
	ticks     int
	warnOn    bool
	lastAlert int
}

func newSilenceMonitor(isToggle func() bool) *silenceMonitor {
	closeTicks := int(silenceAutoCloseDur / tickInterval)
	return &silenceMonitor{
		warnTicks:  int(silenceWarnEvery / tickInterval),
		closeTicks: closeTicks,
		isToggle:   isToggle,
		ring:       make([]bool, closeTicks),
	}
}

// recentRatio is the voiced fraction of the last n ticks, or of every
// tick seen so far when fewer than n have elapsed. An empty history
// counts as fully voiced so a fresh session never warns instantly.
func (m *silenceMonitor) recentRatio(n int) float64 {
	if m.ticks < n {
		n = m.ticks
	}
	if n == 0 {
		return 1.0
	}
	voiced := 0
	for i := 1; i <= n; i++ {
		if m.ring[(m.ticks-i+m.closeTicks)%m.closeTicks] {
			voiced++
		}
	}
	return float64(voiced) / float64(n)
}

func (m *silenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	slot := m.ticks % m.closeTicks
	if m.ticks >= m.closeTicks && m.ring[slot] {
		m.voiced--
	}
	m.ring[slot] = hasSpeech
	if hasSpeech {
		m.voiced++
	}
	m.ticks++

	r := m.recentRatio(m.warnTicks)

	if !m.warnOn && m.ticks >= m.warnTicks && r < speechMinRatio {
		m.warnOn = true
		m.lastAlert = m.ticks
		return SilenceWarn
	}
	if m.warnOn && r >= speechClearRatio {
		m.warnOn = false
		return SilenceWarnClear
	}

	// Held sessions end on key release, never by timeout.
	if !m.isToggle() {
		return SilenceNone
	}

	if m.ticks >= m.closeTicks && float64(m.voiced)/float64(m.closeTicks) < speechMinRatio {
		return SilenceAutoClose
	}
	if m.warnOn && m.ticks-m.lastAlert >= m.warnTicks {
		m.lastAlert = m.ticks
		return SilenceRepeat
	}
	return SilenceNone
}
