package audio

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// Candidate is one capture configuration to try during negotiation.
type Candidate struct {
	Rate     int
	Channels int
	Device   string // empty = system default
}

// Candidates builds the prioritized negotiation ladder. With a resolved
// device string the device-specific configurations come first; the
// default-device fallbacks are always appended last.
func Candidates(device string) []Candidate {
	var ladder []Candidate
	if device != "" {
		ladder = append(ladder,
			Candidate{44100, 2, device},
			Candidate{48000, 2, device},
			Candidate{44100, 1, device},
			Candidate{16000, 1, device},
		)
	}
	return append(ladder,
		Candidate{44100, 2, ""},
		Candidate{16000, 1, ""},
	)
}

// recordProc is a running capture process. The exec implementation
// wraps arecord; tests substitute scripted ones.
type recordProc interface {
	io.Reader
	Interrupt() error
	Kill() error
	Wait() error
}

type launchFunc func(Candidate) (recordProc, error)

const (
	probeTimeout = 500 * time.Millisecond
	stopTimeout  = time.Second
)

// ArecordSource captures PCM through an external arecord process,
// negotiating the first candidate configuration that produces data.
type ArecordSource struct {
	selector string
	launch   launchFunc

	mu       sync.Mutex
	proc     recordProc
	rate     int
	channels int
	device   string
	leftover []byte
	stopped  bool
}

func NewArecord(deviceSelector string) *ArecordSource {
	return &ArecordSource{selector: deviceSelector, launch: launchArecord}
}

func launchArecord(c Candidate) (recordProc, error) {
	args := []string{
		"-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(c.Rate),
		"-c", strconv.Itoa(c.Channels),
		"-t", "raw",
	}
	if c.Device != "" {
		args = append(args, "-D", c.Device)
	}
	cmd := exec.Command("arecord", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &arecordProc{cmd: cmd, stdout: stdout}, nil
}

type arecordProc struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (p *arecordProc) Read(b []byte) (int, error) { return p.stdout.Read(b) }
func (p *arecordProc) Interrupt() error           { return p.cmd.Process.Signal(os.Interrupt) }
func (p *arecordProc) Kill() error                { return p.cmd.Process.Kill() }
func (p *arecordProc) Wait() error                { return p.cmd.Wait() }

// Start walks the candidate ladder until a probe read yields data, and
// records that candidate's rate and channel count. Every candidate
// exhausted means ErrNoDevice.
func (a *ArecordSource) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.proc != nil {
		return nil
	}
	a.stopped = false

	for _, cand := range Candidates(a.selector) {
		proc, err := a.launch(cand)
		if err != nil {
			continue
		}
		data, ok := probe(proc)
		if !ok {
			terminate(proc)
			continue
		}
		a.proc = proc
		a.rate = cand.Rate
		a.channels = cand.Channels
		a.device = cand.Device
		a.leftover = data
		return nil
	}
	return fmt.Errorf("capture start (%q): %w", a.selector, ErrNoDevice)
}

// probe reads once with a deadline. Zero bytes, error, or timeout all
// count as a dead candidate.
func probe(proc recordProc) ([]byte, bool) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, ChunkFrames*2)
		n, err := proc.Read(buf)
		ch <- result{buf[:n], err}
	}()
	select {
	case r := <-ch:
		if r.err != nil || len(r.data) == 0 {
			return nil, false
		}
		return r.data, true
	case <-time.After(probeTimeout):
		return nil, false
	}
}

func (a *ArecordSource) Read() ([]byte, error) {
	a.mu.Lock()
	proc := a.proc
	if len(a.leftover) > 0 {
		data := a.leftover
		a.leftover = nil
		a.mu.Unlock()
		return data, nil
	}
	channels := a.channels
	a.mu.Unlock()

	if proc == nil {
		return nil, io.EOF
	}
	buf := make([]byte, ChunkFrames*channels*2)
	n, err := proc.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// Stop interrupts the recorder, waits briefly, then kills it. Safe to
// call from any goroutine; a second Stop is a no-op.
func (a *ArecordSource) Stop() {
	a.mu.Lock()
	proc := a.proc
	a.proc = nil
	a.leftover = nil
	already := a.stopped
	a.stopped = true
	a.mu.Unlock()

	if already || proc == nil {
		return
	}
	terminate(proc)
}

// terminate delivers an interrupt, waits up to stopTimeout, and
// force-kills a recorder that will not exit. Killing closes the stdout
// pipe, which unblocks any in-flight Read.
func terminate(proc recordProc) {
	proc.Interrupt()
	done := make(chan struct{})
	go func() {
		proc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		proc.Kill()
		<-done
	}
}

func (a *ArecordSource) SampleRate() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rate
}

func (a *ArecordSource) Channels() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.channels
}

func (a *ArecordSource) DeviceName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == "" {
		return "system default"
	}
	return a.device
}
