//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/gen2brain/malgo"
)

// Catalog enumerates capture devices through miniaudio, scored for
// Resolve.
func Catalog() ([]Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var devices []Device
	for _, d := range infos {
		devices = append(devices, Device{
			ID:       hex.EncodeToString(d.ID.Pointer()[:]),
			Name:     d.Name(),
			Priority: PriorityFor(d.Name()),
		})
	}
	return devices, nil
}

// MalgoSource captures through miniaudio; the device data callback
// pushes into a bounded queue bridged to the pull-model Read.
type MalgoSource struct {
	selector string
	rate     int

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	name   string
	chunks chan []byte
	stop   chan struct{}
}

func NewMalgo(deviceSelector string, rate int) *MalgoSource {
	return &MalgoSource{selector: deviceSelector, rate: rate}
}

func (m *MalgoSource) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return err
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(m.rate)

	m.name = "system default"
	catalog, _ := Catalog()
	if dev := Resolve(m.selector, catalog); dev != nil {
		if idBytes, err := hex.DecodeString(dev.ID); err == nil {
			var devID malgo.DeviceID
			copy(devID[:], idBytes)
			cfg.Capture.DeviceID = devID.Pointer()
			m.name = dev.Name
		}
	}

	m.chunks = make(chan []byte, 16)
	m.stop = make(chan struct{})
	chunks, stop := m.chunks, m.stop

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			if len(data) == 0 {
				return
			}
			buf := make([]byte, len(data))
			copy(buf, data)
			select {
			case chunks <- buf:
			case <-stop:
			default:
			}
		},
	}

	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return err
	}
	m.ctx = ctx
	m.device = device
	return nil
}

func (m *MalgoSource) Read() ([]byte, error) {
	m.mu.Lock()
	chunks, stop := m.chunks, m.stop
	m.mu.Unlock()
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

func (m *MalgoSource) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return
	}
	close(m.stop)
	m.device.Stop()
	m.device.Uninit()
	m.ctx.Uninit()
	m.ctx.Free()
	m.device = nil
	m.ctx = nil
	m.chunks = nil
}

func (m *MalgoSource) SampleRate() int { return m.rate }
func (m *MalgoSource) Channels() int   { return 1 }

func (m *MalgoSource) DeviceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.name == "" {
		return "system default"
	}
	return m.name
}

// NewNative returns the platform's preferred capture source.
func NewNative(deviceSelector string, rate int) Source {
	return NewMalgo(deviceSelector, rate)
}
