package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("missing file returned error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestMalformedFileYieldsDefaultsAndError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("toggle_key = [not toml"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err == nil {
		t.Error("malformed file returned no error")
	}
	if cfg.ToggleKey != "f16" {
		t.Errorf("ToggleKey = %q, want the default", cfg.ToggleKey)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	want := Default()
	want.ToggleKey = "ctrl+shift+space"
	want.ContinuousMode = true
	want.WhisperModel = "small"
	want.OutputMethod = "clipboard"

	if err := SaveTo(want, path); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("round trip changed config:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestClampRanges(t *testing.T) {
	c := Config{
		AudioGain:        100,
		SilenceThreshold: 9,
		AudioThreshold:   0.5,
		GPUMemoryLimit:   -3,
	}
	c.Clamp()
	if c.AudioGain != 16 {
		t.Errorf("AudioGain = %v, want 16", c.AudioGain)
	}
	if c.SilenceThreshold != 3.0 {
		t.Errorf("SilenceThreshold = %v, want 3.0", c.SilenceThreshold)
	}
	if c.AudioThreshold != 0.1 {
		t.Errorf("AudioThreshold = %v, want 0.1", c.AudioThreshold)
	}
	if c.GPUMemoryLimit != 0 {
		t.Errorf("GPUMemoryLimit = %v, want 0", c.GPUMemoryLimit)
	}
}

func TestClampRevertsUnknownEnums(t *testing.T) {
	c := Default()
	c.WhisperModel = "gigantic"
	c.OutputMethod = "telepathy"
	c.Device = "tpu"
	c.ComputeType = "float8"
	c.AudioBackend = "gramophone"
	c.Clamp()

	def := Default()
	if c.WhisperModel != def.WhisperModel {
		t.Errorf("WhisperModel = %q, want %q", c.WhisperModel, def.WhisperModel)
	}
	if c.OutputMethod != def.OutputMethod {
		t.Errorf("OutputMethod = %q, want %q", c.OutputMethod, def.OutputMethod)
	}
	if c.Device != def.Device {
		t.Errorf("Device = %q, want %q", c.Device, def.Device)
	}
	if c.ComputeType != def.ComputeType {
		t.Errorf("ComputeType = %q, want %q", c.ComputeType, def.ComputeType)
	}
	if c.AudioBackend != def.AudioBackend {
		t.Errorf("AudioBackend = %q, want %q", c.AudioBackend, def.AudioBackend)
	}
}

func TestClampLowerBounds(t *testing.T) {
	c := Config{AudioGain: 0.01, SilenceThreshold: 0.01, AudioThreshold: 0.0001}
	c.Clamp()
	if c.AudioGain != 0.1 {
		t.Errorf("AudioGain = %v, want 0.1", c.AudioGain)
	}
	if c.SilenceThreshold != 0.1 {
		t.Errorf("SilenceThreshold = %v, want 0.1", c.SilenceThreshold)
	}
	if c.AudioThreshold != 0.001 {
		t.Errorf("AudioThreshold = %v, want 0.001", c.AudioThreshold)
	}
}
