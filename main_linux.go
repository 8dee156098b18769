//go:build linux

package main

func main() {
	// Set up crash logging early, before any device code runs
	initCrashLog()
	run()
}
