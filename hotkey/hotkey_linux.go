//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"murmur/shortcut"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

type linuxHotkey struct {
	chord    shortcut.Chord
	keyCode  uint16
	modCodes [][]uint16
	keydown  chan struct{}
	keyup    chan struct{}
	files    []*os.File
	stop     chan struct{}
	once     sync.Once
}

// New creates a chord listener reading /dev/input directly.
// Requires the user to be in the 'input' group.
func New(chord shortcut.Chord) Hotkey {
	h := &linuxHotkey{
		chord:   chord,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
	h.keyCode, _ = shortcut.LinuxKeyCode(chord.Key)
	for _, m := range chord.Mods {
		h.modCodes = append(h.modCodes, shortcut.LinuxModCodes(m))
	}
	return h
}

func (h *linuxHotkey) Register() error {
	if h.keyCode == 0 {
		return fmt.Errorf("unsupported toggle key %q", h.chord.Key)
	}
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	held := map[uint16]bool{}
	keyHeld := false

	modsSatisfied := func() bool {
		for _, group := range h.modCodes {
			ok := false
			for _, code := range group {
				if held[code] {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}

			pressed := evValue == keyPress
			released := evValue == keyRelease

			if evCode == h.keyCode {
				if pressed && !keyHeld && modsSatisfied() {
					keyHeld = true
					select {
					case h.keydown <- struct{}{}:
					default:
					}
				} else if released && keyHeld {
					keyHeld = false
					select {
					case h.keyup <- struct{}{}:
					default:
					}
				}
				continue
			}

			// Auto-repeat (value 2) must not clear modifier state.
			if pressed {
				held[evCode] = true
			} else if released {
				held[evCode] = false
			}
		}
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *linuxHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Real keyboards have long key capability bitmaps
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

// Diagnose checks evdev access and returns a status message.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
