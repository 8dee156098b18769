package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/hotkey"
	"murmur/log"
	"murmur/output"
	"murmur/transcriber"
)

// runTestMode drives the pipeline from a stdin script instead of real
// devices. Commands: KEYDOWN, KEYUP, WAIT (for the session to drain),
// WAIT_AUDIO_DONE, SLEEP <ms>, QUIT.
func runTestMode(args []string, engine *transcriber.Engine, sink *output.Sink) {
	beep.Disable()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: murmur -test <wav-file>")
		os.Exit(1)
	}
	wavPath := args[0]

	var srcMu sync.Mutex
	var curSrc *audio.FakeSource
	newSource := func() (audio.Source, error) {
		src, err := audio.NewFakeSourceFromWAV(wavPath, audio.EngineRate, 1, true)
		if err != nil {
			return nil, err
		}
		srcMu.Lock()
		curSrc = src
		srcMu.Unlock()
		return src, nil
	}

	p := NewPipeline(&cfg, newSource, engine, sink, nil)

	hk := hotkey.NewFake()
	go func() {
		for {
			<-hk.Keydown()
			p.Toggle()
		}
	}()
	go func() {
		// Keyup is a no-op in toggle mode; drain it so SimKeyup never
		// blocks the script.
		for range hk.Keyup() {
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "KEYDOWN":
			hk.SimKeydown()
		case "KEYUP":
			hk.SimKeyup()
		case "WAIT":
			p.WaitIdle()
		case "WAIT_AUDIO_DONE":
			srcMu.Lock()
			src := curSrc
			srcMu.Unlock()
			if src != nil {
				<-src.AudioDone()
			}
		case "QUIT":
			p.Shutdown()
			log.Close()
			os.Exit(0)
		default:
			if strings.HasPrefix(cmd, "SLEEP ") {
				if ms, err := strconv.Atoi(cmd[6:]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		}
	}
	p.Shutdown()
	log.Close()
}
