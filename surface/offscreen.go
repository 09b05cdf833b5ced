// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawloop"
	"github.com/gogpu/drawloop/render"
)

// ErrNilDevice is returned when a view is created without a device.
var ErrNilDevice = errors.New("surface: nil device")

// Offscreen is a render.View backed by a single device texture.
//
// Offscreen is NOT safe for concurrent use.
type Offscreen struct {
	device hal.Device
	width  uint32
	height uint32
	format gputypes.TextureFormat
	clear  gputypes.Color

	texture hal.Texture
	view    hal.TextureView

	noDrawable bool
	noTarget   bool
	current    *offscreenDrawable

	presents int
	discards int
}

var (
	_ render.View    = (*Offscreen)(nil)
	_ render.Resizer = (*Offscreen)(nil)
)

// NewOffscreen creates a width x height texture in format on device. The
// render pass clears it to clear. A zero size is allowed: the view then
// has no drawable until it is resized.
func NewOffscreen(device hal.Device, width, height uint32, format gputypes.TextureFormat, clear gputypes.Color) (*Offscreen, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if format == gputypes.TextureFormatUndefined {
		format = drawloop.DefaultPixelFormat
	}
	o := &Offscreen{device: device, format: format, clear: clear}
	if err := o.Resize(width, height); err != nil {
		return nil, err
	}
	return o, nil
}

// Resize recreates the texture at the new size. Resizing to the current
// size is a no-op.
func (o *Offscreen) Resize(width, height uint32) error {
	if o.texture != nil && width == o.width && height == o.height {
		return nil
	}
	o.release()
	o.width, o.height = width, height
	if width == 0 || height == 0 {
		drawloop.Logger().Debug("surface: offscreen has zero area", "width", width, "height", height)
		return nil
	}

	tex, err := o.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "drawloop_offscreen",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        o.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("surface: create offscreen texture: %w", err)
	}
	view, err := o.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:  "drawloop_offscreen_view",
		Format: o.format,
	})
	if err != nil {
		o.device.DestroyTexture(tex)
		return fmt.Errorf("surface: create offscreen view: %w", err)
	}
	o.texture, o.view = tex, view
	return nil
}

// SetAvailable controls whether the next ticks see a drawable and a pass
// target. Hosts use it to mirror a view that is not laid out yet.
func (o *Offscreen) SetAvailable(drawable, passTarget bool) {
	o.noDrawable = !drawable
	o.noTarget = !passTarget
}

// SetClearColor changes the color the next passes clear to.
func (o *Offscreen) SetClearColor(c gputypes.Color) { o.clear = c }

// CurrentDrawable implements render.View.
func (o *Offscreen) CurrentDrawable() render.Drawable {
	if o.noDrawable || o.view == nil {
		return nil
	}
	if o.current == nil {
		o.current = &offscreenDrawable{owner: o}
	}
	return o.current
}

// CurrentPassTarget implements render.View.
func (o *Offscreen) CurrentPassTarget() *render.PassTarget {
	if o.noTarget || o.view == nil {
		return nil
	}
	return &render.PassTarget{ClearColor: o.clear}
}

// Size returns the texture size in pixels.
func (o *Offscreen) Size() (width, height uint32) { return o.width, o.height }

// Format returns the texture format.
func (o *Offscreen) Format() gputypes.TextureFormat { return o.format }

// Texture returns the backing texture, or nil at zero size.
func (o *Offscreen) Texture() hal.Texture { return o.texture }

// Presents returns the number of presented drawables.
func (o *Offscreen) Presents() int { return o.presents }

// Discards returns the number of drawables released without presenting.
func (o *Offscreen) Discards() int { return o.discards }

// Snapshot reads the texture back as RGBA. Only textures that expose their
// pixels, such as those of the software backend, can be read.
func (o *Offscreen) Snapshot() (*image.RGBA, error) {
	if o.texture == nil {
		return nil, fmt.Errorf("%w: zero area", ErrNotReadable)
	}
	r, ok := o.texture.(texelReader)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotReadable, o.texture)
	}
	return RGBA(r.GetData(), int(o.width), int(o.height), o.format)
}

// Destroy releases the texture. Safe to call multiple times.
func (o *Offscreen) Destroy() {
	o.release()
	o.width, o.height = 0, 0
}

func (o *Offscreen) release() {
	o.current = nil
	if o.view != nil {
		o.device.DestroyTextureView(o.view)
		o.view = nil
	}
	if o.texture != nil {
		o.device.DestroyTexture(o.texture)
		o.texture = nil
	}
}

// offscreenDrawable is the drawable of the current tick.
type offscreenDrawable struct {
	owner *Offscreen
}

func (d *offscreenDrawable) Texture() hal.Texture { return d.owner.texture }

func (d *offscreenDrawable) View() hal.TextureView { return d.owner.view }

func (d *offscreenDrawable) Present(hal.Queue) error {
	d.finish()
	d.owner.presents++
	return nil
}

func (d *offscreenDrawable) Discard() {
	d.finish()
	d.owner.discards++
}

func (d *offscreenDrawable) finish() {
	if d.owner.current == d {
		d.owner.current = nil
	}
}
