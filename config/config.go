package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds the persisted settings. Zero values are never used
// directly; Load always starts from Default and overlays the file.
type Config struct {
	ToggleKey        string  `toml:"toggle_key"`
	AudioDevice      string  `toml:"audio_device"`
	AudioGain        float64 `toml:"audio_gain"`
	WhisperModel     string  `toml:"whisper_model"`
	SilenceThreshold float64 `toml:"silence_threshold"` // seconds of silence before a segment cut
	AudioThreshold   float64 `toml:"audio_threshold"`   // normalized peak below which a chunk counts as silent
	Language         string  `toml:"language"`
	ContinuousMode   bool    `toml:"continuous_mode"`
	OutputMethod     string  `toml:"output_method"`
	Device           string  `toml:"device"`
	ComputeType      string  `toml:"compute_type"`
	GPUMemoryLimit   int     `toml:"gpu_memory_limit"` // GB, 0 = unlimited
	AudioBackend     string  `toml:"audio_backend"`
	EngineEndpoint   string  `toml:"engine_endpoint"`
	WhisperCLI       string  `toml:"whisper_cli"`
}

func Default() Config {
	return Config{
		ToggleKey:        "f16",
		AudioDevice:      "auto",
		AudioGain:        1.0,
		WhisperModel:     "base",
		SilenceThreshold: 0.75,
		AudioThreshold:   0.01,
		Language:         "en",
		ContinuousMode:   false,
		OutputMethod:     "type",
		Device:           "auto",
		ComputeType:      "auto",
		GPUMemoryLimit:   0,
		AudioBackend:     "auto",
		EngineEndpoint:   "",
		WhisperCLI:       "",
	}
}

var knownModels = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true, "large": true,
}

// Clamp forces every field back into its valid range. Unknown enum
// values revert to the default rather than failing.
func (c *Config) Clamp() {
	def := Default()

	if c.ToggleKey == "" {
		c.ToggleKey = def.ToggleKey
	}
	if c.AudioDevice == "" {
		c.AudioDevice = def.AudioDevice
	}
	if c.AudioGain < 0.1 {
		c.AudioGain = 0.1
	} else if c.AudioGain > 16 {
		c.AudioGain = 16
	}
	if !knownModels[c.WhisperModel] {
		c.WhisperModel = def.WhisperModel
	}
	if c.SilenceThreshold < 0.1 {
		c.SilenceThreshold = 0.1
	} else if c.SilenceThreshold > 3.0 {
		c.SilenceThreshold = 3.0
	}
	if c.AudioThreshold < 0.001 {
		c.AudioThreshold = 0.001
	} else if c.AudioThreshold > 0.1 {
		c.AudioThreshold = 0.1
	}
	switch c.OutputMethod {
	case "type", "clipboard", "paste":
	default:
		c.OutputMethod = def.OutputMethod
	}
	switch c.Device {
	case "auto", "cpu", "cuda":
	default:
		c.Device = def.Device
	}
	switch c.ComputeType {
	case "auto", "int8", "float16", "float32":
	default:
		c.ComputeType = def.ComputeType
	}
	if c.GPUMemoryLimit < 0 {
		c.GPUMemoryLimit = 0
	}
	switch c.AudioBackend {
	case "auto", "arecord", "pulse", "malgo":
	default:
		c.AudioBackend = def.AudioBackend
	}
}

// Dir returns the settings directory, creating nothing.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "murmur"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "murmur"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file. A missing file yields defaults and no
// error; a malformed file yields defaults and the parse error so the
// caller can warn. The returned config is always clamped to valid
// ranges.
func Load() (Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return cfg, nil
	}
	return LoadFrom(path)
}

func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		cfg = Default()
		cfg.Clamp()
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Clamp()
	return cfg, nil
}

func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

func SaveTo(cfg Config, path string) error {
	cfg.Clamp()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}
