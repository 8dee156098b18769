package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"murmur/encoder"
)

// CLIBackend shells out to a local whisper.cpp binary. Each segment is
// written to a temporary WAV file and transcribed in one subprocess
// run, so model load cost is paid per segment. Preferred only when no
// server endpoint is running.
type CLIBackend struct {
	bin       string
	modelPath string
	device    string
}

// NewCLI locates the binary and verifies the model file exists. Both
// must be present up front so the failure surfaces as an unavailable
// engine instead of a mid-session inference error.
func NewCLI(bin string, key ModelKey) (*CLIBackend, error) {
	if bin == "" || bin == "auto" {
		bin = "whisper-cli"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("whisper-cli not found: %w", err)
	}
	modelPath := modelFile(key.Model)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model %q not found at %s", key.Model, modelPath)
	}
	return &CLIBackend{bin: path, modelPath: modelPath, device: key.Device}, nil
}

func modelFile(model string) string {
	name := "ggml-" + model + ".bin"
	if dir := os.Getenv("MURMUR_MODEL_DIR"); dir != "" {
		return filepath.Join(dir, name)
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		cache = "."
	}
	return filepath.Join(cache, "murmur", "models", name)
}

func (c *CLIBackend) Name() string { return "whisper-cli" }

func (c *CLIBackend) Close() error { return nil }

func (c *CLIBackend) Transcribe(ctx context.Context, req Request) ([]string, error) {
	tmp, err := os.CreateTemp("", "murmur-*.wav")
	if err != nil {
		return nil, err
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	if err := encoder.WriteWAV(name, req.Samples); err != nil {
		return nil, fmt.Errorf("writing segment wav: %w", err)
	}

	args := []string{"-m", c.modelPath, "-f", name, "--no-timestamps", "--no-prints"}
	if req.Language != "" {
		args = append(args, "-l", req.Language)
	}
	if c.device == "cpu" {
		args = append(args, "--no-gpu")
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %v: %s", c.bin, err, truncate(stderr.Bytes(), 200))
	}

	var segments []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			segments = append(segments, t)
		}
	}
	return segments, nil
}
