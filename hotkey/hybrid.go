package hotkey

import (
	"sync"
	"time"
)

type Mode string

const (
	ModePTT    Mode = "ptt"
	ModeToggle Mode = "toggle"
)

// StartEvent signals that a new recording should start.
type StartEvent struct {
	Mode Mode
}

// Hybrid layers tap-to-toggle and hold-to-talk onto one chord. A press
// always starts recording immediately; the hold duration decides
// whether release stops it (hold) or a second tap does (tap).
type Hybrid struct {
	startCh chan StartEvent
	stopCh  chan struct{}

	mu   sync.Mutex
	mode Mode
}

// NewHybrid builds the controller on top of a registered Hotkey.
// longPress is the hold duration that switches a press from tap to
// push-to-talk.
func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan StartEvent, 1),
		stopCh:  make(chan struct{}, 1),
		mode:    ModeToggle,
	}
	go h.run(hk, longPress)
	return h
}

// Start signals when to begin recording.
func (h *Hybrid) Start() <-chan StartEvent { return h.startCh }

// StopChan signals when to stop, for both tap and hold presses.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

// IsToggle reports whether the current or most recent recording was
// started by a tap rather than a hold.
func (h *Hybrid) IsToggle() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode == ModeToggle
}

func (h *Hybrid) setMode(m Mode) {
	h.mu.Lock()
	h.mode = m
	h.mu.Unlock()
}

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	for {
		<-hk.Keydown()
		// Start immediately; the hold decision only changes how we stop.
		h.setMode(ModeToggle)
		h.startCh <- StartEvent{Mode: ModeToggle}

		timer := time.NewTimer(longPress)
		select {
		case <-timer.C:
			// Held past the threshold: push-to-talk, stop on release.
			h.setMode(ModePTT)
			<-hk.Keyup()
			h.signalStop()
		case <-hk.Keyup():
			// Short tap: stay recording until the next full tap.
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			<-hk.Keydown()
			<-hk.Keyup()
			h.signalStop()
		}
	}
}

func (h *Hybrid) signalStop() {
	select {
	case h.stopCh <- struct{}{}:
	default:
	}
}
