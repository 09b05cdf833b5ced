// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

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

// ErrNilSurface is returned by NewWindow when no surface is given.
var ErrNilSurface = errors.New("surface: nil surface")

// Window is a render.View over a hal.Surface created by the host. It owns
// the surface's configuration and acquires at most one texture per tick.
//
// Window is NOT safe for concurrent use.
type Window struct {
	device  hal.Device
	surface hal.Surface
	config  hal.SurfaceConfiguration
	clear   gputypes.Color

	configured bool
	current    *windowDrawable

	acquired int
	presents int
	discards int
}

var (
	_ render.View    = (*Window)(nil)
	_ render.Resizer = (*Window)(nil)
)

// NewWindow configures surface for rendering at width x height in format.
// A zero size leaves the window unconfigured until Resize is called with a
// non-zero size.
func NewWindow(device hal.Device, surface hal.Surface, width, height uint32, format gputypes.TextureFormat, clear gputypes.Color) (*Window, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if surface == nil {
		return nil, ErrNilSurface
	}
	if format == gputypes.TextureFormatUndefined {
		format = drawloop.DefaultPixelFormat
	}
	w := &Window{
		device:  device,
		surface: surface,
		clear:   clear,
		config: hal.SurfaceConfiguration{
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment,
			PresentMode: hal.PresentModeFifo,
			AlphaMode:   hal.CompositeAlphaModeOpaque,
		},
	}
	if err := w.Resize(width, height); err != nil {
		return nil, err
	}
	return w, nil
}

// Resize reconfigures the surface. A zero size unconfigures it, which is
// not an error: the window reports no drawable until the next resize.
func (w *Window) Resize(width, height uint32) error {
	w.discardCurrent()
	w.config.Width, w.config.Height = width, height

	err := hal.ErrZeroArea
	if width > 0 && height > 0 {
		err = w.surface.Configure(w.device, &w.config)
	}
	switch {
	case errors.Is(err, hal.ErrZeroArea):
		if w.configured {
			w.surface.Unconfigure(w.device)
		}
		w.configured = false
		drawloop.Logger().Debug("surface: window has zero area", "width", width, "height", height)
		return nil
	case err != nil:
		w.configured = false
		return fmt.Errorf("surface: configure %dx%d: %w", width, height, err)
	}
	w.configured = true
	return nil
}

// SetClearColor changes the color the next passes clear to.
func (w *Window) SetClearColor(c gputypes.Color) { w.clear = c }

// CurrentDrawable implements render.View. It acquires the next surface
// texture on the first call of a tick and returns nil when none is
// available.
func (w *Window) CurrentDrawable() render.Drawable {
	if !w.configured {
		return nil
	}
	if w.current != nil {
		return w.current
	}

	acq, err := w.surface.AcquireTexture(nil)
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) {
			w.reconfigure()
		}
		return nil
	}

	view, err := w.device.CreateTextureView(acq.Texture, &hal.TextureViewDescriptor{
		Label:  "drawloop_surface_view",
		Format: w.config.Format,
	})
	if err != nil {
		w.surface.DiscardTexture(acq.Texture)
		return nil
	}

	w.acquired++
	w.current = &windowDrawable{owner: w, texture: acq.Texture, view: view}
	return w.current
}

// CurrentPassTarget implements render.View.
func (w *Window) CurrentPassTarget() *render.PassTarget {
	if !w.configured {
		return nil
	}
	return &render.PassTarget{ClearColor: w.clear}
}

func (w *Window) reconfigure() {
	if err := w.surface.Configure(w.device, &w.config); err != nil {
		w.configured = false
	}
}

// Size returns the configured size in pixels.
func (w *Window) Size() (width, height uint32) { return w.config.Width, w.config.Height }

// Configured reports whether the surface can supply drawables.
func (w *Window) Configured() bool { return w.configured }

// Acquired returns the number of surface textures acquired.
func (w *Window) Acquired() int { return w.acquired }

// Presents returns the number of presented textures.
func (w *Window) Presents() int { return w.presents }

// Discards returns the number of textures released without presenting.
func (w *Window) Discards() int { return w.discards }

// Snapshot reads the last presented frame as RGBA. Only surfaces that keep
// a CPU framebuffer, such as those of the software backend, can be read.
func (w *Window) Snapshot() (*image.RGBA, error) {
	fb, ok := w.surface.(framebufferReader)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotReadable, w.surface)
	}
	data := fb.GetFramebuffer()
	if data == nil {
		return nil, fmt.Errorf("%w: no framebuffer", ErrNotReadable)
	}
	// GetFramebuffer already returns RGBA byte order.
	return RGBA(data, int(w.config.Width), int(w.config.Height), gputypes.TextureFormatRGBA8Unorm)
}

// Destroy discards any acquired texture, unconfigures and destroys the
// surface. Safe to call multiple times.
func (w *Window) Destroy() {
	if w.surface == nil {
		return
	}
	w.discardCurrent()
	if w.configured {
		w.surface.Unconfigure(w.device)
		w.configured = false
	}
	w.surface.Destroy()
	w.surface = nil
}

func (w *Window) discardCurrent() {
	if w.current != nil {
		w.current.Discard()
	}
}

// windowDrawable is one acquired surface texture.
type windowDrawable struct {
	owner   *Window
	texture hal.SurfaceTexture
	view    hal.TextureView
	done    bool
}

func (d *windowDrawable) Texture() hal.Texture { return d.texture }

func (d *windowDrawable) View() hal.TextureView { return d.view }

func (d *windowDrawable) Present(queue hal.Queue) error {
	if d.done {
		return nil
	}
	if err := queue.Present(d.owner.surface, d.texture, nil); err != nil {
		// The texture was not consumed, so hand it back to the surface.
		d.owner.surface.DiscardTexture(d.texture)
		d.finish()
		d.owner.discards++
		return fmt.Errorf("surface: present: %w", err)
	}
	d.finish()
	d.owner.presents++
	return nil
}

func (d *windowDrawable) Discard() {
	if d.done {
		return
	}
	d.owner.surface.DiscardTexture(d.texture)
	d.finish()
	d.owner.discards++
}

func (d *windowDrawable) finish() {
	d.done = true
	d.owner.device.DestroyTextureView(d.view)
	if d.owner.current == d {
		d.owner.current = nil
	}
}
