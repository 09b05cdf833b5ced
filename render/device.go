// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/gogpu/wgpu/hal/software"

	"github.com/gogpu/drawloop"
)

// Device errors.
var (
	ErrNilDevice      = errors.New("render: nil device or queue")
	ErrNotHalProvider = errors.New("render: provider does not expose HAL device and queue")
	ErrNoAdapter      = errors.New("render: backend exposed no adapters")
	ErrUnknownBackend = errors.New("render: unknown backend")
)

// DeviceHandle provides GPU device access from the host application.
//
// A renderer RECEIVES its device from the host; it never creates a global
// one. DeviceHandle is an alias for gpucontext.DeviceProvider so any host in
// the gogpu ecosystem can hand its device to drawloop.
type DeviceHandle = gpucontext.DeviceProvider

// halProvider is implemented by hosts that expose the HAL device and queue
// behind their DeviceProvider.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// HalDevices extracts the HAL device and queue from a host provider. It
// accepts providers with HalDevice/HalQueue accessors and DeviceProviders
// whose Device and Queue are HAL objects.
func HalDevices(provider any) (hal.Device, hal.Queue, error) {
	var dev, q any
	switch p := provider.(type) {
	case halProvider:
		dev, q = p.HalDevice(), p.HalQueue()
	case gpucontext.DeviceProvider:
		dev, q = p.Device(), p.Queue()
	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrNotHalProvider, provider)
	}

	device, ok := dev.(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("%w: device is %T", ErrNotHalProvider, dev)
	}
	queue, ok := q.(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("%w: queue is %T", ErrNotHalProvider, q)
	}
	return device, queue, nil
}

// Backend names accepted by OpenBackend.
const (
	BackendNoop     = "noop"
	BackendSoftware = "software"
)

// Backends returns a registry of the HAL backends that can run without a
// window system. "software" is preferred over "noop".
func Backends() *gpucontext.Registry[hal.Backend] {
	reg := gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(BackendSoftware, BackendNoop))
	reg.Register(BackendNoop, func() hal.Backend { return noop.API{} })
	reg.Register(BackendSoftware, func() hal.Backend { return software.API{} })
	return reg
}

// HeadlessDevice is a device opened by drawloop itself for tools and tests
// that have no host application. It implements DeviceHandle.
type HeadlessDevice struct {
	name     string
	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue
	format   gputypes.TextureFormat
}

var _ DeviceHandle = (*HeadlessDevice)(nil)

// OpenBackend opens a headless device on the named backend from Backends.
// An empty name selects the preferred backend.
func OpenBackend(name string, format gputypes.TextureFormat) (*HeadlessDevice, error) {
	reg := Backends()
	if name == "" {
		name = reg.BestName()
	}
	if !reg.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	d, err := OpenHeadless(reg.Get(name), format)
	if err != nil {
		return nil, err
	}
	d.name = name
	return d, nil
}

// OpenHeadless creates an instance on backend and opens its first adapter.
// format is reported as the surface format; an undefined format selects
// drawloop.DefaultPixelFormat.
func OpenHeadless(backend hal.Backend, format gputypes.TextureFormat) (*HeadlessDevice, error) {
	if format == gputypes.TextureFormatUndefined {
		format = drawloop.DefaultPixelFormat
	}

	instance, err := backend.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("render: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	exposed := adapters[0]
	openDev, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("render: open adapter %q: %w", exposed.Info.Name, err)
	}

	drawloop.Logger().Info("render: adapter opened",
		"adapter", exposed.Info.Name,
		"type", exposed.Info.DeviceType,
		"backend", backend.Variant(),
	)

	return &HeadlessDevice{
		name:     exposed.Info.Name,
		instance: instance,
		adapter:  exposed.Adapter,
		info:     exposed.Info,
		device:   openDev.Device,
		queue:    openDev.Queue,
		format:   format,
	}, nil
}

// Name returns the backend name or, for OpenHeadless, the adapter name.
func (d *HeadlessDevice) Name() string { return d.name }

// Device returns the HAL device.
func (d *HeadlessDevice) Device() gpucontext.Device { return d.device }

// Queue returns the HAL queue.
func (d *HeadlessDevice) Queue() gpucontext.Queue { return d.queue }

// Adapter returns the HAL adapter.
func (d *HeadlessDevice) Adapter() gpucontext.Adapter { return d.adapter }

// SurfaceFormat returns the preferred color format.
func (d *HeadlessDevice) SurfaceFormat() gputypes.TextureFormat { return d.format }

// AdapterInfo describes the opened adapter.
func (d *HeadlessDevice) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.info.Name, Type: adapterType(d.info.DeviceType)}
}

// HalDevice returns the device as a hal.Device.
func (d *HeadlessDevice) HalDevice() any { return d.device }

// HalQueue returns the queue as a hal.Queue.
func (d *HeadlessDevice) HalQueue() any { return d.queue }

// Instance returns the instance the device was opened from, for creating
// surfaces.
func (d *HeadlessDevice) Instance() hal.Instance { return d.instance }

// Destroy waits for the device to go idle and releases it.
func (d *HeadlessDevice) Destroy() {
	if d.device != nil {
		if err := d.device.WaitIdle(); err != nil {
			drawloop.Logger().Warn("render: wait idle failed", "err", err)
		}
		d.device.Destroy()
		d.device = nil
		d.queue = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
