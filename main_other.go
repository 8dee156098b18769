//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// Set up crash logging early, before any device code runs
	initCrashLog()

	// The global hotkey needs the main thread on these platforms.
	mainthread.Init(run)
}
