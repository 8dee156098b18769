// Package output delivers transcribed text into the focused
// application. Three methods: synthetic typing, clipboard only, or
// clipboard plus a paste keystroke.
package output

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"murmur/clipboard"
	"murmur/paste"
)

// Method selects how text reaches the target application.
type Method string

const (
	MethodType      Method = "type"
	MethodClipboard Method = "clipboard"
	MethodPaste     Method = "paste"
)

// ParseMethod validates a configured method string, falling back to
// typing for anything unrecognized.
func ParseMethod(s string) Method {
	switch Method(s) {
	case MethodClipboard, MethodPaste:
		return Method(s)
	default:
		return MethodType
	}
}

// clipboardSettle is how long the clipboard gets to propagate before
// the paste keystroke fires. Wayland clipboard managers need the gap.
const clipboardSettle = 100 * time.Millisecond

// Runner executes external helper tools. Swapped for a fake in tests.
type Runner interface {
	Run(name string, args ...string) error
	RunInput(input string, name string, args ...string) error
	Found(name string) bool
}

type execRunner struct{}

func (execRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (execRunner) RunInput(input string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	stdin.Write([]byte(input))
	stdin.Close()
	return cmd.Wait()
}

func (execRunner) Found(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Sink dispatches text to the desktop. Each method walks a fallback
// chain of external tools before the built-in path, because no single
// tool works across X11, Wayland, and macOS.
type Sink struct {
	runner Runner
	goos   string
	settle func(time.Duration)

	// Library paths behind the tool chains, swapped in tests.
	copyNative  func(string) error
	typeNative  func(string) error
	pasteNative func() error
}

func NewSink() *Sink {
	return &Sink{
		runner:      execRunner{},
		goos:        runtime.GOOS,
		settle:      time.Sleep,
		copyNative:  clipboard.Copy,
		typeNative:  clipboard.Type,
		pasteNative: paste.Send,
	}
}

// Emit delivers text using the requested method. Empty text is a
// no-op.
func (s *Sink) Emit(text string, method Method) error {
	if text == "" {
		return nil
	}
	switch method {
	case MethodClipboard:
		if err := s.copyText(text); err != nil {
			// No clipboard is reachable at all; type the words into
			// the focused window instead of losing them.
			return s.typeText(text)
		}
		return nil
	case MethodPaste:
		if err := s.copyText(text); err != nil {
			return err
		}
		s.settle(clipboardSettle)
		return s.pasteKeystroke()
	default:
		return s.typeText(text)
	}
}

// typeText injects keystrokes: ydotool when available (works on
// Wayland without uinput setup on its side), otherwise the built-in
// uinput keyboard.
func (s *Sink) typeText(text string) error {
	if s.goos == "linux" && s.runner.Found("ydotool") {
		if err := s.runner.Run("ydotool", "type", "--key-delay", "2", text); err == nil {
			return nil
		}
	}
	if err := s.typeNative(text); err != nil {
		return fmt.Errorf("typing text: %w", err)
	}
	return nil
}

// copyText places text on the system clipboard: wl-copy on Wayland,
// xclip on X11, then the portable library path.
func (s *Sink) copyText(text string) error {
	if s.goos == "linux" {
		if s.runner.Found("wl-copy") {
			if err := s.runner.RunInput(text, "wl-copy"); err == nil {
				return nil
			}
		}
		if s.runner.Found("xclip") {
			if err := s.runner.RunInput(text, "xclip", "-selection", "clipboard"); err == nil {
				return nil
			}
		}
	}
	if err := s.copyNative(text); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	return nil
}

// pasteKeystroke sends the platform paste chord into the focused
// window.
func (s *Sink) pasteKeystroke() error {
	if s.goos == "linux" && s.runner.Found("ydotool") {
		// 29 = ctrl, 47 = v
		if err := s.runner.Run("ydotool", "key", "29:1", "47:1", "47:0", "29:0"); err == nil {
			return nil
		}
	}
	if err := s.pasteNative(); err != nil {
		return fmt.Errorf("sending paste keystroke: %w", err)
	}
	return nil
}
