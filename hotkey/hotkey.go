// Package hotkey listens for the global toggle chord. The Linux
// implementation reads evdev directly so the chord works on Wayland
// compositors without a global shortcut protocol.
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
