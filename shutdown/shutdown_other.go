//go:build !windows

// Package shutdown routes the platform termination signals to one
// channel so main can run a single graceful exit path.
package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
