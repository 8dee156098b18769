// Package doctor walks the user through interactive checks of every
// piece the dictation flow depends on: hotkey, microphone, engine,
// and text output.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"murmur/audio"
	"murmur/hotkey"
	"murmur/shortcut"
	"murmur/transcriber"
)

// Run executes the checks and returns an exit code (0=all pass,
// 1=any fail). chordSpec is the configured toggle chord; cfg values
// drive the engine check.
func Run(chordSpec string, settings transcriber.Settings, endpoint, cliPath string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("murmur doctor - interactive system diagnostics")
	fmt.Println("==============================================")

	allPass := true

	if !checkHotkey(chordSpec) {
		allPass = false
	}
	var captured []int16
	if allPass {
		var ok bool
		captured, ok = checkMicrophone()
		if !ok {
			allPass = false
		}
	}
	if allPass && !checkEngine(captured, settings, endpoint, cliPath) {
		allPass = false
	}
	if allPass && !checkOutputTools() {
		allPass = false
	}
	if allPass && !checkClipboardCopy() {
		allPass = false
	}
	if allPass && !checkClipboardPaste() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkHotkey(chordSpec string) bool {
	fmt.Println()
	fmt.Println("[1/6] Hotkey detection")

	chord, err := shortcut.Parse(chordSpec)
	if err != nil {
		fmt.Printf("  FAIL: bad toggle_key %q: %v\n", chordSpec, err)
		return false
	}
	fmt.Printf("Press %s...\n", chord)

	hk := hotkey.New(chord)
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		if diag, derr := hotkey.Diagnose(); derr == nil {
			fmt.Println(diag)
		}
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		// Wait for keyup to avoid triggering the next step
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// The grab may leave the terminal in raw mode
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		if diag, derr := hotkey.Diagnose(); derr == nil {
			fmt.Println(diag)
		}
		return false
	}
}

// checkMicrophone records three seconds and reports the level; the
// samples are reused by the engine check.
func checkMicrophone() ([]int16, bool) {
	fmt.Println()
	fmt.Println("[2/6] Microphone capture")

	if catalog, err := audio.Catalog(); err == nil && len(catalog) > 0 {
		fmt.Println("Capture devices:")
		for _, d := range catalog {
			fmt.Printf("  - %s\n", d.Name)
		}
	} else if err != nil {
		fmt.Printf("  Warning: device enumeration failed: %v\n", err)
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	src := audio.NewNative("auto", audio.EngineRate)
	if err := src.Start(); err != nil {
		fmt.Printf("  FAIL: cannot open capture: %v\n", err)
		return nil, false
	}

	fmt.Printf("  Recording from %s", src.DeviceName())
	deadline := time.Now().Add(3 * time.Second)
	var samples []int16
	for time.Now().Before(deadline) {
		data, err := src.Read()
		if err != nil {
			src.Stop()
			fmt.Printf("\n  FAIL: capture error: %v\n", err)
			return nil, false
		}
		chunk := audio.Samples(data)
		chunk = audio.Downmix(chunk, src.Channels())
		if rate := src.SampleRate(); rate != audio.EngineRate {
			chunk = audio.Resample(chunk, rate, audio.EngineRate)
		}
		samples = append(samples, chunk...)
		fmt.Print(".")
	}
	src.Stop()
	fmt.Println(" done")

	if len(samples) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return nil, false
	}

	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		} else if -s > peak {
			peak = -s
		}
	}
	level := float64(peak) / 32768.0
	fmt.Printf("  Captured %.1fs, peak level %.3f\n", float64(len(samples))/float64(audio.EngineRate), level)
	if level < 0.005 {
		fmt.Println("  FAIL: microphone appears to be silent")
		return nil, false
	}
	fmt.Println("  PASS: microphone capture works")
	return samples, true
}

func checkEngine(samples []int16, settings transcriber.Settings, endpoint, cliPath string) bool {
	fmt.Println()
	fmt.Println("[3/6] Transcription engine")

	engine := transcriber.NewEngine(transcriber.DefaultFactory(endpoint, cliPath))
	defer engine.Close()

	fmt.Println("  Transcribing the captured audio...")
	res, err := engine.Transcribe(context.Background(), samples, audio.EngineRate, settings)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		if endpoint != "" {
			fmt.Printf("  Is the whisper server reachable at %s?\n", endpoint)
		}
		return false
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}
	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

// checkOutputTools reports which external delivery tools are on PATH.
// None being present is not fatal; the built-in fallbacks still work.
func checkOutputTools() bool {
	fmt.Println()
	fmt.Println("[4/6] Output tools")

	tools := []struct {
		name string
		role string
	}{
		{"ydotool", "typing and paste keystrokes on Wayland"},
		{"wl-copy", "clipboard on Wayland"},
		{"xclip", "clipboard on X11"},
	}
	found := 0
	for _, t := range tools {
		if _, err := exec.LookPath(t.name); err == nil {
			fmt.Printf("  found %s (%s)\n", t.name, t.role)
			found++
		} else {
			fmt.Printf("  missing %s (%s)\n", t.name, t.role)
		}
	}
	if found == 0 {
		fmt.Println("  Warning: no external tools found, falling back to uinput/clipboard")
	}
	fmt.Println("  PASS: output tool survey complete")
	return true
}
