//go:build windows

package shutdown

import (
	"os"
	"os/signal"
)

// SIGTERM does not exist on Windows; Ctrl+C is the only signal.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
