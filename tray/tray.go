// Package tray drives the status-area icon and its menu. All state
// lives here; menu.go owns the systray plumbing.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
)

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	copyLastFn func()
	recordFn   func()
	stopFn     func()

	recording bool
	warning   bool

	deviceMu    sync.Mutex
	deviceNames []string
	deviceSel   string
	deviceCb    func(string)

	continuousOn bool
	continuousCb func(bool)

	loginOn bool
	loginCb func(bool) error

	isBTFn func(string) bool
)

const appName = "murmur"

func OnCopyLast(fn func())        { copyLastFn = fn }
func OnRecord(start, stop func()) { recordFn = start; stopFn = stop }

// OnContinuous is called when the user flips the continuous-dictation
// checkbox.
func OnContinuous(fn func(bool)) { continuousCb = fn }
func SetContinuous(on bool)      { continuousOn = on }

func SetLogin(on bool)            { loginOn = on }
func OnLogin(fn func(bool) error) { loginCb = fn }

func SetRecording(rec bool) {
	recording = rec
	warning = false
	updateRecordingIcon(rec)
	if rec {
		disableDevices()
	} else {
		enableDevices()
	}
}

func SetWarning(on bool) {
	if !recording {
		return
	}
	warning = on
	updateWarningIcon(on)
}

func SetError(msg string) {
	updateTooltip(appName + " – " + msg)
	_ = beeep.Notify(appName, msg, "")
	go func() {
		time.Sleep(10 * time.Second)
		updateTooltip(appName + " – press the hotkey to dictate")
	}()
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

func SetDevices(names []string, selected string, onSwitch func(name string)) {
	deviceMu.Lock()
	deviceNames = names
	deviceSel = selected
	if onSwitch != nil {
		deviceCb = onSwitch
	}
	deviceMu.Unlock()
}

func SetLastTranscription(chars int) {
	updateCopyLastTitle(fmt.Sprintf("Copy Last Transcription (%d chars)", chars))
}

func SetUpdateAvailable(version string) {
	addUpdateMenuItem(version)
	_ = beeep.Notify(appName, "Update available: "+version, "")
}

func SetBTCheck(fn func(string) bool) {
	isBTFn = fn
}

func deviceDisplayName(name string) string {
	if isBTFn != nil && isBTFn(name) {
		return name + " [⚠ Lower audio quality]"
	}
	return name
}
