//go:build windows

package doctor

import (
	"os"
	"os/signal"
)

// resetTerminal is a no-op; the console never enters raw mode here.
func resetTerminal() {}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}
