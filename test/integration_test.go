//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"murmur/clipboard"
)

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("MURMUR_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "MURMUR_TEST_BIN not set; run: make test-integration")
		os.Exit(1)
	}

	silencePath := filepath.Join("data", "silence.wav")
	if err := generateSilenceWAV(silencePath, 16000, 1.0); err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate silence.wav: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(silencePath)

	os.Exit(m.Run())
}

func generateSilenceWAV(path string, sampleRate int, durationS float64) error {
	const headerSize = 44
	numSamples := int(float64(sampleRate) * durationS)
	dataSize := numSamples * 2

	buf := make([]byte, headerSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	return os.WriteFile(path, buf, 0644)
}

func requireEngine(t *testing.T) string {
	t.Helper()
	endpoint := os.Getenv("MURMUR_ENGINE_ENDPOINT")
	if endpoint == "" {
		t.Skip("MURMUR_ENGINE_ENDPOINT not set (needs a running whisper server)")
	}
	return endpoint
}

func cmds(parts ...string) string {
	return strings.Join(parts, "\n") + "\n"
}

// runMurmur launches the binary in scripted test mode with a private
// config and log directory. The clipboard output method avoids
// synthetic keystrokes during tests.
func runMurmur(t *testing.T, stdin string, args ...string) (logDir string) {
	t.Helper()
	logDir = t.TempDir()

	confDir := t.TempDir()
	conf := fmt.Sprintf("engine_endpoint = %q\noutput_method = \"clipboard\"\n", requireEngine(t))
	if err := os.MkdirAll(filepath.Join(confDir, "murmur"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "murmur", "config.toml"), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	cmdArgs := append([]string{"-logpath", logDir}, args...)
	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Env = append(os.Environ(), "XDG_CONFIG_HOME="+confDir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("murmur exited with error: %v\noutput: %s", err, out)
	}
	return logDir
}

func readLog(t *testing.T, logDir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(logDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("failed to read %s: %v", filename, err)
	}
	return string(data)
}

func requireTranscription(t *testing.T, logDir string) string {
	t.Helper()
	text := readLog(t, logDir, "transcribe_log.txt")
	if strings.TrimSpace(text) == "" {
		t.Fatal("transcribe_log.txt is empty, expected transcribed words")
	}
	return text
}

// The toggle key starts a session on the first KEYDOWN and drains it
// on the second; WAIT blocks until the drain finishes.

func TestDictationWords(t *testing.T) {
	logDir := runMurmur(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "SLEEP 300", "KEYDOWN", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	requireTranscription(t, logDir)
}

func TestTwoSessions(t *testing.T) {
	logDir := runMurmur(t, cmds(
		"KEYDOWN", "WAIT_AUDIO_DONE", "SLEEP 300", "KEYDOWN", "WAIT",
		"KEYDOWN", "WAIT_AUDIO_DONE", "SLEEP 300", "KEYDOWN", "WAIT",
		"QUIT"),
		"-test", "data/short.wav")
	diag := readLog(t, logDir, "diagnostics_log.txt")
	if strings.Count(diag, "session_start") < 2 {
		t.Error("expected 2 session_start entries in diagnostics")
	}
	if strings.Count(diag, "session_end") < 2 {
		t.Error("expected 2 session_end entries in diagnostics")
	}
}

func TestSilenceProducesNoText(t *testing.T) {
	logDir := runMurmur(t, cmds("KEYDOWN", "SLEEP 1500", "KEYDOWN", "WAIT", "QUIT"),
		"-test", "data/silence.wav")
	text := readLog(t, logDir, "transcribe_log.txt")
	if strings.TrimSpace(text) != "" {
		t.Errorf("silence produced text: %q", text)
	}
}

func TestEarlyStop(t *testing.T) {
	logDir := runMurmur(t, cmds("KEYDOWN", "SLEEP 500", "KEYDOWN", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	_ = readLog(t, logDir, "diagnostics_log.txt")
}

func TestContinuousDictation(t *testing.T) {
	logDir := runMurmur(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "SLEEP 3500", "KEYDOWN", "WAIT", "QUIT"),
		"-test", "-continuous", "data/short.wav")
	requireTranscription(t, logDir)
}

func TestClipboardDelivery(t *testing.T) {
	sentinel := fmt.Sprintf("murmur-test-sentinel-%d", time.Now().UnixNano())
	if err := clipboard.Copy(sentinel); err != nil {
		t.Skip("clipboard not available")
	}

	logDir := runMurmur(t, cmds("KEYDOWN", "WAIT_AUDIO_DONE", "SLEEP 300", "KEYDOWN", "WAIT", "QUIT"),
		"-test", "data/short.wav")
	requireTranscription(t, logDir)

	clip, err := clipboard.Read()
	if err != nil {
		t.Skip("clipboard not available")
	}
	if strings.TrimSpace(clip) == sentinel {
		t.Error("clipboard still holds the sentinel, delivery did not happen")
	}
}
