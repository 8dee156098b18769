//go:build !linux

package hotkey

import (
	"fmt"

	xhotkey "golang.design/x/hotkey"

	"murmur/shortcut"
)

type xHotkey struct {
	chord   shortcut.Chord
	hk      *xhotkey.Hotkey
	mapErr  error
	keydown chan struct{}
	keyup   chan struct{}
}

// New creates a chord listener using golang.design/x/hotkey
// (Cocoa/Win32).
func New(chord shortcut.Chord) Hotkey {
	h := &xHotkey{
		chord:   chord,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
	mods, key, err := translateChord(chord)
	if err != nil {
		h.mapErr = err
		return h
	}
	h.hk = xhotkey.New(mods, key)
	return h
}

func translateChord(chord shortcut.Chord) ([]xhotkey.Modifier, xhotkey.Key, error) {
	var mods []xhotkey.Modifier
	for _, m := range chord.Mods {
		switch m {
		case shortcut.ModCtrl:
			mods = append(mods, xhotkey.ModCtrl)
		case shortcut.ModShift:
			mods = append(mods, xhotkey.ModShift)
		default:
			return nil, 0, fmt.Errorf("modifier %q not supported on this platform", m)
		}
	}
	key, ok := keyTable[chord.Key]
	if !ok {
		return nil, 0, fmt.Errorf("key %q not supported on this platform", chord.Key)
	}
	return mods, key, nil
}

var keyTable = map[string]xhotkey.Key{
	"space": xhotkey.KeySpace,
	"a":     xhotkey.KeyA, "b": xhotkey.KeyB, "c": xhotkey.KeyC,
	"d": xhotkey.KeyD, "e": xhotkey.KeyE, "f": xhotkey.KeyF,
	"g": xhotkey.KeyG, "h": xhotkey.KeyH, "i": xhotkey.KeyI,
	"j": xhotkey.KeyJ, "k": xhotkey.KeyK, "l": xhotkey.KeyL,
	"m": xhotkey.KeyM, "n": xhotkey.KeyN, "o": xhotkey.KeyO,
	"p": xhotkey.KeyP, "q": xhotkey.KeyQ, "r": xhotkey.KeyR,
	"s": xhotkey.KeyS, "t": xhotkey.KeyT, "u": xhotkey.KeyU,
	"v": xhotkey.KeyV, "w": xhotkey.KeyW, "x": xhotkey.KeyX,
	"y": xhotkey.KeyY, "z": xhotkey.KeyZ,
	"0": xhotkey.Key0, "1": xhotkey.Key1, "2": xhotkey.Key2,
	"3": xhotkey.Key3, "4": xhotkey.Key4, "5": xhotkey.Key5,
	"6": xhotkey.Key6, "7": xhotkey.Key7, "8": xhotkey.Key8,
	"9": xhotkey.Key9,
	"f1": xhotkey.KeyF1, "f2": xhotkey.KeyF2, "f3": xhotkey.KeyF3,
	"f4": xhotkey.KeyF4, "f5": xhotkey.KeyF5, "f6": xhotkey.KeyF6,
	"f7": xhotkey.KeyF7, "f8": xhotkey.KeyF8, "f9": xhotkey.KeyF9,
	"f10": xhotkey.KeyF10, "f11": xhotkey.KeyF11, "f12": xhotkey.KeyF12,
	"f13": xhotkey.KeyF13, "f14": xhotkey.KeyF14, "f15": xhotkey.KeyF15,
	"f16": xhotkey.KeyF16, "f17": xhotkey.KeyF17, "f18": xhotkey.KeyF18,
	"f19": xhotkey.KeyF19, "f20": xhotkey.KeyF20,
}

func (h *xHotkey) Register() error {
	if h.mapErr != nil {
		return h.mapErr
	}
	if err := h.hk.Register(); err != nil {
		return err
	}
	go func() {
		for {
			<-h.hk.Keydown()
			h.keydown <- struct{}{}
		}
	}()
	go func() {
		for {
			<-h.hk.Keyup()
			h.keyup <- struct{}{}
		}
	}()
	return nil
}

func (h *xHotkey) Unregister() {
	if h.hk != nil {
		h.hk.Unregister()
	}
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

// Diagnose checks chord availability and returns a status message.
func Diagnose() (string, error) {
	return "global shortcut support available", nil
}
