// Package transcriber turns finished PCM segments into text through a
// cached speech-recognition backend.
package transcriber

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"sync"
	"time"

	"murmur/audio"
)

// ErrEngineUnavailable means no transcription backend could be loaded
// or reached. Reported once per session attempt, never retried
// automatically.
var ErrEngineUnavailable = errors.New("transcription engine unavailable")

// InferenceError wraps a failure inside a loaded backend. The segment
// is dropped and the recording session continues.
type InferenceError struct {
	Backend string
	Err     error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference failed: %v", e.Backend, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// VADParams are the voice-activity knobs forwarded to the model.
type VADParams struct {
	MinSilenceMs            int
	SpeechPadMs             int
	NoSpeechThreshold       float64
	ConditionOnPreviousText bool
}

// MapSilenceThreshold converts the configured silence threshold
// (seconds, UI range 0.1–3.0) into the model's minimum silence
// duration: normalized to [0,1] then linearly into 100–1000 ms.
func MapSilenceThreshold(seconds float64) int {
	n := clampF(seconds, 0.1, 3.0) / 3.0
	return int(math.Round(100 + n*900))
}

// MapAudioThreshold converts the configured audio level threshold
// (UI range 0.001–0.1) into the model's no-speech confidence
// threshold.
func MapAudioThreshold(level float64) float64 {
	return clampF(level*10, 0.1, 0.9)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ModelKey identifies one loaded model instance. Changing any
// component invalidates the engine cache and forces a reload.
type ModelKey struct {
	Model   string // tiny|base|small|medium|large
	Device  string // cpu|cuda
	Compute string // int8|float16|float32
}

// ResolveDevice maps the configured device to a concrete one.
func ResolveDevice(device string, hasCUDA func() bool) string {
	if device != "auto" {
		return device
	}
	if hasCUDA != nil && hasCUDA() {
		return "cuda"
	}
	return "cpu"
}

// ResolveCompute maps "auto" to the fast low-precision mode of the
// resolved device.
func ResolveCompute(computeType, device string) string {
	if computeType != "auto" {
		return computeType
	}
	if device == "cuda" {
		return "float16"
	}
	return "int8"
}

func detectCUDA() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// Request is one transcription call: 16 kHz mono samples plus the
// model parameters.
type Request struct {
	Samples          []int16
	Language         string
	VAD              VADParams
	GPUMemoryLimitGB int
}

// Settings is the engine-relevant slice of the persisted config.
type Settings struct {
	Model            string
	Device           string
	ComputeType      string
	Language         string
	SilenceThreshold float64 // seconds
	AudioThreshold   float64 // normalized level
	GPUMemoryLimit   int     // GB, 0 = unlimited
}

// Result of one transcription. Empty text is "no speech detected",
// not an error.
type Result struct {
	Text           string
	NoSpeech       bool
	AudioSeconds   float64
	RealtimeFactor float64
}

// Backend is the opaque speech model: audio in, text segments out.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, req Request) ([]string, error)
	Close() error
}

// Factory loads a backend for a model key. Loading is the expected
// slow path (seconds) and runs on the transcription goroutine only.
type Factory func(key ModelKey) (Backend, error)

// Engine caches one loaded backend keyed by (model, device, compute)
// and serializes access to it. At most one transcription is in flight
// at a time.
type Engine struct {
	factory Factory
	hasCUDA func() bool

	mu      sync.Mutex
	key     ModelKey
	backend Backend
}

func NewEngine(factory Factory) *Engine {
	return &Engine{factory: factory, hasCUDA: detectCUDA}
}

// Transcribe resamples to 16 kHz mono if needed, loads (or reuses) the
// backend for the settings' model key, and returns the joined text.
func (e *Engine) Transcribe(ctx context.Context, samples []int16, sampleRate int, s Settings) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if sampleRate != audio.EngineRate {
		samples = audio.Resample(samples, sampleRate, audio.EngineRate)
	}
	audioSec := float64(len(samples)) / float64(audio.EngineRate)

	key := ModelKey{
		Model:  s.Model,
		Device: ResolveDevice(s.Device, e.hasCUDA),
	}
	key.Compute = ResolveCompute(s.ComputeType, key.Device)

	backend, err := e.backendFor(key)
	if err != nil {
		return Result{}, err
	}

	req := Request{
		Samples:  samples,
		Language: s.Language,
		VAD: VADParams{
			MinSilenceMs:      MapSilenceThreshold(s.SilenceThreshold),
			SpeechPadMs:       200,
			NoSpeechThreshold: MapAudioThreshold(s.AudioThreshold),
		},
		GPUMemoryLimitGB: s.GPUMemoryLimit,
	}

	start := time.Now()
	segments, err := backend.Transcribe(ctx, req)
	if err != nil {
		return Result{}, &InferenceError{Backend: backend.Name(), Err: err}
	}
	elapsed := time.Since(start)

	text := joinSegments(segments)
	res := Result{
		Text:         text,
		NoSpeech:     text == "",
		AudioSeconds: audioSec,
	}
	if audioSec > 0 {
		res.RealtimeFactor = elapsed.Seconds() / audioSec
	}
	return res, nil
}

// backendFor returns the cached backend, reloading when the key
// changed. Callers hold e.mu.
func (e *Engine) backendFor(key ModelKey) (Backend, error) {
	if e.backend != nil && e.key == key {
		return e.backend, nil
	}
	if e.backend != nil {
		e.backend.Close()
		e.backend = nil
	}
	backend, err := e.factory(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	e.key = key
	e.backend = backend
	return backend, nil
}

// BackendName reports the currently loaded backend, if any.
func (e *Engine) BackendName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return ""
	}
	return e.backend.Name()
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		e.backend.Close()
		e.backend = nil
	}
}

func joinSegments(segments []string) string {
	var parts []string
	for _, s := range segments {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// DefaultFactory wires the backend selection: an explicit HTTP
// endpoint wins, then a local whisper-cli binary, then the default
// local server endpoint.
func DefaultFactory(endpoint, cliPath string) Factory {
	return func(key ModelKey) (Backend, error) {
		if endpoint != "" {
			return NewServer(endpoint, key), nil
		}
		if cli, err := NewCLI(cliPath, key); err == nil {
			return cli, nil
		}
		return NewServer(DefaultEndpoint, key), nil
	}
}
