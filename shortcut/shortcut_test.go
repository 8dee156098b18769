package shortcut

import "testing"

func TestParseSingleKey(t *testing.T) {
	c, err := Parse("f16")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Mods) != 0 || c.Key != "f16" {
		t.Errorf("got %+v, want bare f16", c)
	}
	if code, _ := LinuxKeyCode(c.Key); code != 186 {
		t.Errorf("f16 evdev code = %d, want 186", code)
	}
}

func TestParseChordWithModifiers(t *testing.T) {
	c, err := Parse("Ctrl+Shift+Space")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.HasMod(ModCtrl) || !c.HasMod(ModShift) || c.Key != "space" {
		t.Errorf("got %+v, want ctrl+shift+space", c)
	}
	if c.String() != "ctrl+shift+space" {
		t.Errorf("String() = %q", c.String())
	}
}

func TestParseModifierAliases(t *testing.T) {
	c, err := Parse("cmd+d")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !c.HasMod(ModSuper) {
		t.Errorf("cmd did not map to super: %+v", c)
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, s := range []string{"hyper+x", "ctrl+", "", "ctrl+floop"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", s)
		}
	}
}

func TestParseDeduplicatesModifiers(t *testing.T) {
	c, err := Parse("ctrl+control+c")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Mods) != 1 {
		t.Errorf("mods = %v, want single ctrl", c.Mods)
	}
}

func TestModCodesCoverBothSides(t *testing.T) {
	for _, m := range []Mod{ModCtrl, ModShift, ModAlt, ModSuper} {
		if codes := LinuxModCodes(m); len(codes) != 2 {
			t.Errorf("LinuxModCodes(%s) = %v, want left and right codes", m, codes)
		}
	}
}

func TestDefaultChord(t *testing.T) {
	c := Default()
	if c.Key != "f16" || len(c.Mods) != 0 {
		t.Errorf("Default() = %+v, want bare f16", c)
	}
}
