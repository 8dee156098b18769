//go:build linux

package audio

import (
	"fmt"
	"io"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Catalog enumerates capture devices through PulseAudio, scored for
// Resolve.
func Catalog() ([]Device, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	defer c.Close()

	sources, err := c.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []Device
	for _, s := range sources {
		devices = append(devices, Device{
			ID:       s.ID(),
			Name:     s.Name(),
			Priority: PriorityFor(s.Name()),
		})
	}
	return devices, nil
}

// PulseSource captures through a native PulseAudio record stream. The
// stream callback pushes into a bounded queue bridged to the pull-model
// Read.
type PulseSource struct {
	selector string
	rate     int

	mu     sync.Mutex
	client *pulse.Client
	stream *pulse.RecordStream
	name   string
	chunks chan []byte
	stop   chan struct{}
}

func NewPulse(deviceSelector string, rate int) *PulseSource {
	return &PulseSource{selector: deviceSelector, rate: rate}
}

func (p *PulseSource) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream != nil {
		return nil
	}

	client, err := pulse.NewClient()
	if err != nil {
		return fmt.Errorf("pulse: %w", err)
	}

	p.chunks = make(chan []byte, 16)
	p.stop = make(chan struct{})
	chunks, stop := p.chunks, p.stop

	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		data := Bytes(buf)
		select {
		case chunks <- data:
		case <-stop:
		default:
			// Queue full: the consumer is stalled, drop rather than block
			// the pulse callback thread.
		}
		return len(buf), nil
	})

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(p.rate),
		pulse.RecordLatency(0.05),
	}
	p.name = "system default"
	if dev := Resolve(p.selector, mustCatalog(client)); dev != nil {
		if source, err := client.SourceByID(dev.ID); err == nil && source != nil {
			opts = append(opts, pulse.RecordSource(source))
			p.name = dev.Name
		}
	}

	stream, err := client.NewRecord(writer, opts...)
	if err != nil {
		client.Close()
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	p.client = client
	p.stream = stream
	return nil
}

func mustCatalog(c *pulse.Client) []Device {
	sources, err := c.ListSources()
	if err != nil {
		return nil
	}
	var devices []Device
	for _, s := range sources {
		devices = append(devices, Device{ID: s.ID(), Name: s.Name(), Priority: PriorityFor(s.Name())})
	}
	return devices
}

func (p *PulseSource) Read() ([]byte, error) {
	p.mu.Lock()
	chunks, stop := p.chunks, p.stop
	p.mu.Unlock()
	if chunks == nil {
		return nil, io.EOF
	}
	select {
	case data := <-chunks:
		return data, nil
	case <-stop:
		return nil, io.EOF
	}
}

func (p *PulseSource) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return
	}
	close(p.stop)
	p.stream.Stop()
	p.stream.Close()
	p.client.Close()
	p.stream = nil
	p.client = nil
	p.chunks = nil
}

func (p *PulseSource) SampleRate() int { return p.rate }
func (p *PulseSource) Channels() int   { return 1 }

func (p *PulseSource) DeviceName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.name == "" {
		return "system default"
	}
	return p.name
}

// NewNative returns the platform's preferred capture source.
func NewNative(deviceSelector string, rate int) Source {
	return NewPulse(deviceSelector, rate)
}
