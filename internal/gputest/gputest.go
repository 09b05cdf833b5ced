// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gputest provides noop-backed devices and recording wrappers for
// testing code that drives a hal.Device.
package gputest

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// ErrInjected is returned by injected failures.
var ErrInjected = errors.New("gputest: injected failure")

// NewNoopDevice opens a device and queue on the noop backend. Both are
// destroyed when the test ends.
func NewNoopDevice(t testing.TB) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("noop backend exposed no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// Device wraps a hal.Device, records object creation and destruction, and
// can fail a chosen creation call.
type Device struct {
	hal.Device

	mu sync.Mutex

	// FailOn names a creation method ("CreateBuffer", "CreateRenderPipeline",
	// ...) that returns ErrInjected. FailAfter lets that many calls succeed
	// first.
	FailOn    string
	FailAfter int

	// EncoderErr, when set, is returned by CreateCommandEncoder.
	EncoderErr error

	// BeginEncodingErr and EndEncodingErr are returned by the encoders this
	// device creates.
	BeginEncodingErr error
	EndEncodingErr   error

	calls     map[string]int
	created   []string
	destroyed []string
	passes    []*Pass
	freed     int
	encoders  int
}

// NewDevice wraps inner.
func NewDevice(inner hal.Device) *Device {
	return &Device{Device: inner, calls: make(map[string]int)}
}

func (d *Device) fail(method string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.calls[method]
	d.calls[method] = n + 1
	return d.FailOn == method && n >= d.FailAfter
}

func (d *Device) recordCreate(kind string) {
	d.mu.Lock()
	d.created = append(d.created, kind)
	d.mu.Unlock()
}

func (d *Device) recordDestroy(kind string) {
	d.mu.Lock()
	d.destroyed = append(d.destroyed, kind)
	d.mu.Unlock()
}

// Created returns the kinds of objects created, in order.
func (d *Device) Created() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.created...)
}

// Destroyed returns the kinds of objects destroyed, in order.
func (d *Device) Destroyed() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.destroyed...)
}

// Live returns created minus destroyed objects per kind.
func (d *Device) Live() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	live := make(map[string]int)
	for _, k := range d.created {
		live[k]++
	}
	for _, k := range d.destroyed {
		live[k]--
		if live[k] == 0 {
			delete(live, k)
		}
	}
	return live
}

// Calls returns how many times method was called.
func (d *Device) Calls(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[method]
}

// Passes returns every render pass begun on encoders from this device.
func (d *Device) Passes() []*Pass {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Pass(nil), d.passes...)
}

// FreedCommandBuffers returns how many command buffers were freed.
func (d *Device) FreedCommandBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freed
}

// Encoders returns how many command encoders were created.
func (d *Device) Encoders() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.encoders
}

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if d.fail("CreateBuffer") {
		return nil, ErrInjected
	}
	b, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.recordCreate("Buffer")
	}
	return b, err
}

func (d *Device) DestroyBuffer(b hal.Buffer) {
	d.recordDestroy("Buffer")
	d.Device.DestroyBuffer(b)
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.fail("CreateTexture") {
		return nil, ErrInjected
	}
	tex, err := d.Device.CreateTexture(desc)
	if err == nil {
		d.recordCreate("Texture")
	}
	return tex, err
}

func (d *Device) DestroyTexture(tex hal.Texture) {
	d.recordDestroy("Texture")
	d.Device.DestroyTexture(tex)
}

func (d *Device) CreateTextureView(tex hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	if d.fail("CreateTextureView") {
		return nil, ErrInjected
	}
	v, err := d.Device.CreateTextureView(tex, desc)
	if err == nil {
		d.recordCreate("TextureView")
	}
	return v, err
}

func (d *Device) DestroyTextureView(v hal.TextureView) {
	d.recordDestroy("TextureView")
	d.Device.DestroyTextureView(v)
}

func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if d.fail("CreateShaderModule") {
		return nil, ErrInjected
	}
	m, err := d.Device.CreateShaderModule(desc)
	if err == nil {
		d.recordCreate("ShaderModule")
	}
	return m, err
}

func (d *Device) DestroyShaderModule(m hal.ShaderModule) {
	d.recordDestroy("ShaderModule")
	d.Device.DestroyShaderModule(m)
}

func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if d.fail("CreateBindGroupLayout") {
		return nil, ErrInjected
	}
	l, err := d.Device.CreateBindGroupLayout(desc)
	if err == nil {
		d.recordCreate("BindGroupLayout")
	}
	return l, err
}

func (d *Device) DestroyBindGroupLayout(l hal.BindGroupLayout) {
	d.recordDestroy("BindGroupLayout")
	d.Device.DestroyBindGroupLayout(l)
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if d.fail("CreateBindGroup") {
		return nil, ErrInjected
	}
	g, err := d.Device.CreateBindGroup(desc)
	if err == nil {
		d.recordCreate("BindGroup")
	}
	return g, err
}

func (d *Device) DestroyBindGroup(g hal.BindGroup) {
	d.recordDestroy("BindGroup")
	d.Device.DestroyBindGroup(g)
}

func (d *Device) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	if d.fail("CreatePipelineLayout") {
		return nil, ErrInjected
	}
	l, err := d.Device.CreatePipelineLayout(desc)
	if err == nil {
		d.recordCreate("PipelineLayout")
	}
	return l, err
}

func (d *Device) DestroyPipelineLayout(l hal.PipelineLayout) {
	d.recordDestroy("PipelineLayout")
	d.Device.DestroyPipelineLayout(l)
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if d.fail("CreateRenderPipeline") {
		return nil, ErrInjected
	}
	p, err := d.Device.CreateRenderPipeline(desc)
	if err == nil {
		d.recordCreate("RenderPipeline")
	}
	return p, err
}

func (d *Device) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.recordDestroy("RenderPipeline")
	d.Device.DestroyRenderPipeline(p)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	if d.EncoderErr != nil {
		d.fail("CreateCommandEncoder")
		return nil, d.EncoderErr
	}
	if d.fail("CreateCommandEncoder") {
		return nil, ErrInjected
	}
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.encoders++
	d.mu.Unlock()
	return &encoder{CommandEncoder: enc, device: d}, nil
}

func (d *Device) FreeCommandBuffer(cmd hal.CommandBuffer) {
	d.mu.Lock()
	d.freed++
	d.mu.Unlock()
	d.Device.FreeCommandBuffer(cmd)
}

// encoder records the render passes it begins.
type encoder struct {
	hal.CommandEncoder
	device *Device
}

func (e *encoder) BeginEncoding(label string) error {
	if e.device.BeginEncodingErr != nil {
		return e.device.BeginEncodingErr
	}
	return e.CommandEncoder.BeginEncoding(label)
}

func (e *encoder) EndEncoding() (hal.CommandBuffer, error) {
	if e.device.EndEncodingErr != nil {
		return nil, e.device.EndEncodingErr
	}
	return e.CommandEncoder.EndEncoding()
}

func (e *encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &Pass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc)}
	if len(desc.ColorAttachments) > 0 {
		a := desc.ColorAttachments[0]
		p.View = a.View
		p.ClearColor = a.ClearValue
		p.LoadOp = a.LoadOp
		p.StoreOp = a.StoreOp
	}
	e.device.mu.Lock()
	e.device.passes = append(e.device.passes, p)
	e.device.mu.Unlock()
	return p
}

// Pass records the commands issued on one render pass.
type Pass struct {
	hal.RenderPassEncoder

	View       hal.TextureView
	ClearColor gputypes.Color
	LoadOp     gputypes.LoadOp
	StoreOp    gputypes.StoreOp

	// Commands lists the recorded calls, e.g. "SetPipeline",
	// "DrawIndexed(6)", "End".
	Commands []string

	// IndexFormat is the format passed to SetIndexBuffer.
	IndexFormat gputypes.IndexFormat
}

func (p *Pass) SetPipeline(pipeline hal.RenderPipeline) {
	p.Commands = append(p.Commands, "SetPipeline")
	p.RenderPassEncoder.SetPipeline(pipeline)
}

func (p *Pass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.Commands = append(p.Commands, fmt.Sprintf("SetBindGroup(%d)", index))
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *Pass) SetVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	p.Commands = append(p.Commands, fmt.Sprintf("SetVertexBuffer(%d)", slot))
	p.RenderPassEncoder.SetVertexBuffer(slot, buf, offset)
}

func (p *Pass) SetIndexBuffer(buf hal.Buffer, format gputypes.IndexFormat, offset uint64) {
	p.Commands = append(p.Commands, "SetIndexBuffer")
	p.IndexFormat = format
	p.RenderPassEncoder.SetIndexBuffer(buf, format, offset)
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Commands = append(p.Commands, fmt.Sprintf("Draw(%d)", vertexCount))
	p.RenderPassEncoder.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

func (p *Pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.Commands = append(p.Commands, fmt.Sprintf("DrawIndexed(%d)", indexCount))
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *Pass) End() {
	p.Commands = append(p.Commands, "End")
	p.RenderPassEncoder.End()
}

// Draws returns the number of draw calls recorded on the pass.
func (p *Pass) Draws() int {
	n := 0
	for _, c := range p.Commands {
		if len(c) >= 4 && c[:4] == "Draw" {
			n++
		}
	}
	return n
}

// Write is one recorded queue buffer write.
type Write struct {
	Buffer hal.Buffer
	Data   []byte
}

// Queue wraps a hal.Queue, records writes, submissions and presents, and can
// inject failures or hold back completion.
type Queue struct {
	hal.Queue

	mu sync.Mutex

	// SubmitErr, WriteErr and PresentErr are returned instead of calling the
	// wrapped queue when set.
	SubmitErr  error
	WriteErr   error
	PresentErr error

	// Hold, when true, makes PollCompleted report nothing completed.
	Hold bool

	writes   []Write
	submits  int
	presents int
}

// NewQueue wraps inner.
func NewQueue(inner hal.Queue) *Queue {
	return &Queue{Queue: inner}
}

func (q *Queue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	if q.SubmitErr != nil {
		return 0, q.SubmitErr
	}
	q.mu.Lock()
	q.submits++
	q.mu.Unlock()
	return q.Queue.Submit(cmds)
}

func (q *Queue) PollCompleted() uint64 {
	if q.Hold {
		return 0
	}
	return q.Queue.PollCompleted()
}

func (q *Queue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	if q.WriteErr != nil {
		return q.WriteErr
	}
	q.mu.Lock()
	q.writes = append(q.writes, Write{Buffer: buf, Data: append([]byte(nil), data...)})
	q.mu.Unlock()
	return q.Queue.WriteBuffer(buf, offset, data)
}

func (q *Queue) Present(surface hal.Surface, tex hal.SurfaceTexture, damage []image.Rectangle) error {
	if q.PresentErr != nil {
		return q.PresentErr
	}
	q.mu.Lock()
	q.presents++
	q.mu.Unlock()
	return q.Queue.Present(surface, tex, damage)
}

// Writes returns the recorded buffer writes.
func (q *Queue) Writes() []Write {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Write(nil), q.writes...)
}

// WritesTo returns the data written to buf, in order.
func (q *Queue) WritesTo(buf hal.Buffer) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out [][]byte
	for _, w := range q.writes {
		if w.Buffer == buf {
			out = append(out, w.Data)
		}
	}
	return out
}

// Submits returns the number of successful submissions.
func (q *Queue) Submits() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submits
}

// Presents returns the number of successful surface presents.
func (q *Queue) Presents() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.presents
}

// LogRecorder is a slog.Handler that keeps every record at or above Level.
type LogRecorder struct {
	Level slog.Level

	mu      sync.Mutex
	records []slog.Record
}

// NewLogger returns a logger writing into a new recorder at debug level.
func NewLogger() (*slog.Logger, *LogRecorder) {
	rec := &LogRecorder{Level: slog.LevelDebug}
	return slog.New(rec), rec
}

func (r *LogRecorder) Enabled(_ context.Context, level slog.Level) bool { return level >= r.Level }

func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	r.mu.Lock()
	r.records = append(r.records, rec.Clone())
	r.mu.Unlock()
	return nil
}

func (r *LogRecorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *LogRecorder) WithGroup(string) slog.Handler      { return r }

// Count returns the number of records at exactly level.
func (r *LogRecorder) Count(level slog.Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Messages returns the messages of records at or above level.
func (r *LogRecorder) Messages(level slog.Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, rec := range r.records {
		if rec.Level >= level {
			out = append(out, rec.Message)
		}
	}
	return out
}

// Reset drops every recorded record.
func (r *LogRecorder) Reset() {
	r.mu.Lock()
	r.records = nil
	r.mu.Unlock()
}
