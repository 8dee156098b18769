package audio

import "strings"

// Device is one entry of the capture-device catalog.
type Device struct {
	ID       string // platform identifier (pulse source ID, ALSA hw string)
	Name     string
	Priority int // lower is preferred
}

// Priority classes. USB microphones beat built-in ones, and HDMI/
// monitor pseudo-sources are last resorts.
const (
	prioUSB     = 1
	prioBuiltin = 5
	prioOther   = 7
	prioHDMI    = 10
)

func PriorityFor(name string) int {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "usb"):
		return prioUSB
	case strings.Contains(lower, "hdmi"), strings.Contains(lower, "monitor"):
		return prioHDMI
	case strings.Contains(lower, "built-in"), strings.Contains(lower, "builtin"),
		strings.Contains(lower, "internal"), strings.Contains(lower, "analog"):
		return prioBuiltin
	}
	return prioOther
}

// Resolve picks a device from the catalog. An empty or "auto" selector
// returns the best-priority device; otherwise a case-insensitive
// substring match, best priority among matches. Returns nil when
// nothing matches (or the catalog is empty); callers fall back to the
// system default.
func Resolve(selector string, catalog []Device) *Device {
	if len(catalog) == 0 {
		return nil
	}

	match := func(d Device) bool { return true }
	if selector != "" && selector != "auto" {
		want := strings.ToLower(selector)
		match = func(d Device) bool {
			return strings.Contains(strings.ToLower(d.Name), want) ||
				strings.Contains(strings.ToLower(d.ID), want)
		}
	}

	var best *Device
	for i := range catalog {
		if !match(catalog[i]) {
			continue
		}
		if best == nil || catalog[i].Priority < best.Priority {
			best = &catalog[i]
		}
	}
	return best
}
