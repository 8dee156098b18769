// Package shortcut parses human-readable key chords like "f16" or
// "ctrl+shift+space" into the key codes the platform listeners need.
package shortcut

import (
	"fmt"
	"strings"
)

// Mod is a chord modifier.
type Mod string

const (
	ModCtrl  Mod = "ctrl"
	ModShift Mod = "shift"
	ModAlt   Mod = "alt"
	ModSuper Mod = "super"
)

// Chord is one global shortcut: zero or more modifiers plus a single
// trigger key.
type Chord struct {
	Mods []Mod
	Key  string
}

func (c Chord) String() string {
	parts := make([]string, 0, len(c.Mods)+1)
	for _, m := range c.Mods {
		parts = append(parts, string(m))
	}
	return strings.Join(append(parts, c.Key), "+")
}

// HasMod reports whether the chord requires the given modifier.
func (c Chord) HasMod(m Mod) bool {
	for _, have := range c.Mods {
		if have == m {
			return true
		}
	}
	return false
}

var modAliases = map[string]Mod{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"shift":   ModShift,
	"alt":     ModAlt,
	"meta":    ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"win":     ModSuper,
}

// Parse reads a "+"-separated chord. The last component is the key,
// everything before it a modifier. Case and surrounding whitespace are
// ignored.
func Parse(s string) (Chord, error) {
	parts := strings.Split(s, "+")
	var c Chord
	for i, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			return Chord{}, fmt.Errorf("empty component in shortcut %q", s)
		}
		if i < len(parts)-1 {
			m, ok := modAliases[p]
			if !ok {
				return Chord{}, fmt.Errorf("unknown modifier %q in shortcut %q", p, s)
			}
			if !c.HasMod(m) {
				c.Mods = append(c.Mods, m)
			}
			continue
		}
		if _, ok := LinuxKeyCode(p); !ok {
			return Chord{}, fmt.Errorf("unknown key %q in shortcut %q", p, s)
		}
		c.Key = p
	}
	return c, nil
}

// Evdev key codes from linux/input-event-codes.h. The table doubles as
// the set of supported trigger keys on every platform.
var linuxKeys = map[string]uint16{
	"esc": 1, "tab": 15, "enter": 28, "space": 57,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6,
	"6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"q": 16, "w": 17, "e": 18, "r": 19, "t": 20, "y": 21, "u": 22,
	"i": 23, "o": 24, "p": 25, "a": 30, "s": 31, "d": 32, "f": 33,
	"g": 34, "h": 35, "j": 36, "k": 37, "l": 38, "z": 44, "x": 45,
	"c": 46, "v": 47, "b": 48, "n": 49, "m": 50,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
	"f13": 183, "f14": 184, "f15": 185, "f16": 186, "f17": 187,
	"f18": 188, "f19": 189, "f20": 190, "f21": 191, "f22": 192,
	"f23": 193, "f24": 194,
	"pause": 119, "scrolllock": 70, "insert": 110, "menu": 127,
}

// LinuxKeyCode returns the evdev code for a key name.
func LinuxKeyCode(key string) (uint16, bool) {
	code, ok := linuxKeys[strings.ToLower(key)]
	return code, ok
}

// LinuxModCodes returns the evdev codes that count as holding the
// modifier (left and right variants).
func LinuxModCodes(m Mod) []uint16 {
	switch m {
	case ModCtrl:
		return []uint16{29, 97}
	case ModShift:
		return []uint16{42, 54}
	case ModAlt:
		return []uint16{56, 100}
	case ModSuper:
		return []uint16{125, 126}
	default:
		return nil
	}
}

// Default is the stock toggle chord. A dedicated F-key avoids
// colliding with application shortcuts while staying one-handed.
func Default() Chord {
	c, _ := Parse("f16")
	return c
}
