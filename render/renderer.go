// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"maps"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawloop"
	"github.com/gogpu/drawloop/internal/gpu"
	"github.com/gogpu/drawloop/shader"
)

// ErrPipelineBuild wraps every pipeline build failure reported by Err.
var ErrPipelineBuild = errors.New("render: pipeline build failed")

// Stats counts the outcomes of Draw calls.
type Stats struct {
	// Submitted is the number of frames submitted and presented.
	Submitted uint64

	// Skipped counts dropped ticks per reason.
	Skipped map[drawloop.SkipReason]uint64
}

// SkippedTotal returns the number of dropped ticks for all reasons.
func (s Stats) SkippedTotal() uint64 {
	var n uint64
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// Renderer draws one geometry with one pipeline, once per display tick.
//
// New builds the pipeline exactly once. Afterwards each Draw call records a
// single render pass that clears the view's drawable, issues one draw and
// presents. When the build fails the renderer stays usable but every Draw
// is skipped with drawloop.SkipNoPipeline.
//
// Thread Safety: a Renderer is NOT safe for concurrent use. Call Draw from
// the display-tick goroutine only.
type Renderer struct {
	device hal.Device
	queue  hal.Queue
	cfg    drawloop.Config
	label  string
	opts   options

	library  *shader.Library
	geometry *gpu.GeometryBuffers
	pipeline *gpu.Pipeline
	frames   *gpu.FrameEncoder
	animator *drawloop.Animator

	buildErr error
	frame    uint64
	stats    Stats
}

// New validates cfg and builds the renderer's pipeline on device.
//
// A nil device or queue and an invalid configuration are programming errors
// and are returned. A pipeline build failure is not: it is logged once at
// error level, the returned renderer reports Ready() == false, and every
// Draw is skipped.
func New(device hal.Device, queue hal.Queue, cfg drawloop.Config, opts ...Option) (*Renderer, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// The renderer keeps its own copy so later caller mutations are not seen.
	cfg.Geometry = cfg.Geometry.Clone()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	label := o.label
	if label == "" {
		label = cfg.Name
	}

	r := &Renderer{
		device: device,
		queue:  queue,
		cfg:    cfg,
		label:  label,
		opts:   o,
		stats:  Stats{Skipped: make(map[drawloop.SkipReason]uint64)},
	}

	if err := r.build(); err != nil {
		r.buildErr = fmt.Errorf("%w: %s: %w", ErrPipelineBuild, label, err)
		drawloop.Logger().Error("render: pipeline build failed, rendering disabled",
			"renderer", label,
			"err", err,
		)
		return r, nil
	}

	drawloop.Logger().Info("render: renderer ready",
		"renderer", label,
		"format", cfg.PixelFormat,
		"triangles", cfg.Geometry.Triangles(),
		"indexed", cfg.Geometry.Indexed(),
		"animated", cfg.Animated,
	)
	if cfg.Animated && !r.library.HasUniform() {
		drawloop.Logger().Warn("render: animated renderer's shader declares no uniform at group 0 binding 0",
			"renderer", label,
			"library", r.library.Label(),
		)
	}
	return r, nil
}

// NewFromProvider builds a renderer on the device of a host provider such
// as a gpucontext.DeviceProvider or a HeadlessDevice.
func NewFromProvider(provider any, cfg drawloop.Config, opts ...Option) (*Renderer, error) {
	device, queue, err := HalDevices(provider)
	if err != nil {
		return nil, err
	}
	return New(device, queue, cfg, opts...)
}

// build resolves the shader functions, uploads the geometry and creates the
// pipeline. On failure nothing it created is left alive.
func (r *Renderer) build() error {
	lib, err := r.resolveLibrary()
	if err != nil {
		return err
	}
	if _, err := lib.StageFunction(r.cfg.VertexFunction, shader.StageVertex); err != nil {
		return err
	}
	if _, err := lib.StageFunction(r.cfg.FragmentFunction, shader.StageFragment); err != nil {
		return err
	}

	source := hal.ShaderSource{WGSL: lib.Source()}
	if r.opts.spirv {
		words, err := lib.SPIRV()
		if err != nil {
			return err
		}
		source = hal.ShaderSource{SPIRV: words}
	}

	geo := r.cfg.Geometry
	data := gpu.GeometryData{
		Vertices:    geo.VertexBytes(),
		VertexCount: uint32(len(geo.Vertices)),
	}
	if geo.Indexed() {
		data.Indices = geo.IndexBytes()
		data.IndexCount = uint32(len(geo.Indices))
	}
	buffers, err := gpu.UploadGeometry(r.device, r.queue, r.label, data)
	if err != nil {
		return err
	}

	desc := &gpu.PipelineDescriptor{
		Label:         r.label,
		Shader:        source,
		VertexEntry:   r.cfg.VertexFunction,
		FragmentEntry: r.cfg.FragmentFunction,
		Format:        r.cfg.PixelFormat,
	}
	if r.cfg.Animated {
		desc.UniformSize = drawloop.UniformSize
	}
	pipeline, err := gpu.NewPipeline(r.device, desc)
	if err != nil {
		buffers.Destroy(r.device)
		return err
	}

	if r.cfg.Animated {
		animator := drawloop.NewAnimator(r.cfg.TargetFPS)
		if err := pipeline.WriteUniform(r.queue, animator.Current().Bytes()); err != nil {
			pipeline.Destroy()
			buffers.Destroy(r.device)
			return fmt.Errorf("write initial uniforms: %w", err)
		}
		r.animator = animator
	}

	r.library = lib
	r.geometry = buffers
	r.pipeline = pipeline
	r.frames = gpu.NewFrameEncoder(r.device, r.queue, r.label)
	return nil
}

func (r *Renderer) resolveLibrary() (*shader.Library, error) {
	switch {
	case r.opts.library != nil:
		return r.opts.library, nil
	case r.cfg.ShaderSource != "":
		return shader.Compile(r.label, r.cfg.ShaderSource)
	default:
		return shader.LibraryFor(r.cfg.Animated)
	}
}

// Draw renders one frame into view and reports whether it was submitted.
//
// The steps are: acquire the drawable and pass target, create a command
// encoder, begin a pass that clears to the target's clear color, bind the
// pipeline and buffers, write the next animation value, issue one draw, end
// the pass, submit and present. A missing pipeline, drawable or pass target
// skips the tick without any log line; a missing encoder or a failed
// submission is logged once. The animation phase advances only for frames
// that were presented.
func (r *Renderer) Draw(view View) drawloop.FrameResult {
	if r.pipeline == nil {
		return r.skip(drawloop.SkipNoPipeline)
	}
	if view == nil {
		return r.skip(drawloop.SkipNoDrawable)
	}

	drawable := view.CurrentDrawable()
	if drawable == nil {
		return r.skip(drawloop.SkipNoDrawable)
	}
	target := view.CurrentPassTarget()
	if target == nil {
		drawable.Discard()
		return r.skip(drawloop.SkipNoPassTarget)
	}
	attachment := target.View
	if attachment == nil {
		attachment = drawable.View()
	}
	if attachment == nil {
		drawable.Discard()
		return r.skip(drawloop.SkipNoPassTarget)
	}

	frame, err := r.frames.Begin()
	if err != nil {
		drawable.Discard()
		drawloop.Logger().Error("render: could not create command encoder",
			"renderer", r.label,
			"err", err,
		)
		return r.skip(drawloop.SkipEncoderUnavailable)
	}

	rp := frame.BeginPass(gpu.PassTarget{
		View:       attachment,
		ClearColor: target.ClearColor,
		LoadOp:     target.LoadOp,
		StoreOp:    target.StoreOp,
	})
	r.pipeline.Bind(rp, r.geometry)

	if r.animator != nil {
		// The phase moves only once the frame is presented; a dropped
		// frame writes the same value again next tick.
		params := r.animator.Peek()
		if err := r.pipeline.WriteUniform(r.queue, params.Bytes()); err != nil {
			frame.Discard()
			drawable.Discard()
			drawloop.Logger().Error("render: could not write frame uniforms",
				"renderer", r.label,
				"err", err,
			)
			return r.skip(drawloop.SkipSubmitFailed)
		}
	}

	r.pipeline.Draw(rp, r.geometry)

	if _, err := r.frames.Submit(frame); err != nil {
		drawable.Discard()
		drawloop.Logger().Error("render: could not submit frame",
			"renderer", r.label,
			"err", err,
		)
		return r.skip(drawloop.SkipSubmitFailed)
	}
	if err := drawable.Present(r.queue); err != nil {
		drawloop.Logger().Error("render: could not present drawable",
			"renderer", r.label,
			"err", err,
		)
		return r.skip(drawloop.SkipSubmitFailed)
	}

	if r.animator != nil {
		r.animator.Commit()
	}
	r.frame++
	r.stats.Submitted++
	return drawloop.FrameSubmitted(r.frame)
}

func (r *Renderer) skip(reason drawloop.SkipReason) drawloop.FrameResult {
	r.stats.Skipped[reason]++
	return drawloop.FrameSkipped(reason)
}

// Resize forwards a drawable size change to view when it supports resizing.
// The pipeline does not depend on the drawable size, so nothing is rebuilt.
func (r *Renderer) Resize(view View, width, height uint32) error {
	drawloop.Logger().Debug("render: drawable size changed",
		"renderer", r.label, "width", width, "height", height)
	if rs, ok := view.(Resizer); ok {
		return rs.Resize(width, height)
	}
	return nil
}

// Ready reports whether the pipeline was built and frames can be drawn.
func (r *Renderer) Ready() bool { return r.pipeline != nil }

// Err returns the pipeline build error, or nil when the renderer is ready.
func (r *Renderer) Err() error { return r.buildErr }

// Label returns the label used for device objects and log lines.
func (r *Renderer) Label() string { return r.label }

// Config returns the renderer's configuration with defaults applied.
func (r *Renderer) Config() drawloop.Config {
	cfg := r.cfg
	cfg.Geometry = cfg.Geometry.Clone()
	return cfg
}

// Library returns the shader library the pipeline was built from, or nil
// when the build failed before resolving it.
func (r *Renderer) Library() *shader.Library { return r.library }

// Parameters returns the last published animation parameters. It is the
// zero value for renderers that are not animated.
func (r *Renderer) Parameters() drawloop.FrameParameters {
	if r.animator == nil {
		return drawloop.FrameParameters{}
	}
	return r.animator.Current()
}

// Frames returns the number of submitted frames.
func (r *Renderer) Frames() uint64 { return r.frame }

// InFlight returns the number of submitted command buffers not yet retired.
func (r *Renderer) InFlight() int {
	if r.frames == nil {
		return 0
	}
	return r.frames.InFlight()
}

// Stats returns a snapshot of the frame outcome counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Submitted: r.stats.Submitted,
		Skipped:   maps.Clone(r.stats.Skipped),
	}
}

// Destroy waits for submitted frames to complete and releases every device
// object the renderer created. Safe to call multiple times. The device and
// queue belong to the caller and are not destroyed.
func (r *Renderer) Destroy() {
	if r.frames != nil {
		if err := r.frames.Drain(); err != nil {
			drawloop.Logger().Warn("render: drain failed", "renderer", r.label, "err", err)
		}
		r.frames = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.geometry != nil {
		r.geometry.Destroy(r.device)
		r.geometry = nil
	}
	r.animator = nil
}
