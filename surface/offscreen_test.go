// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/drawloop"
	"github.com/gogpu/drawloop/internal/gputest"
	"github.com/gogpu/drawloop/render"
)

func TestNewOffscreenNilDevice(t *testing.T) {
	if _, err := NewOffscreen(nil, 4, 4, 0, gputypes.Color{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("err = %v, want ErrNilDevice", err)
	}
}

func TestOffscreenDrawable(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)
	dev := gputest.NewDevice(device)

	o, err := NewOffscreen(dev, 8, 4, gputypes.TextureFormatUndefined, drawloop.DefaultClearColor)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Destroy()

	if o.Format() != drawloop.DefaultPixelFormat {
		t.Errorf("Format() = %v, want default", o.Format())
	}
	if w, h := o.Size(); w != 8 || h != 4 {
		t.Errorf("Size() = %dx%d, want 8x4", w, h)
	}

	d := o.CurrentDrawable()
	if d == nil {
		t.Fatal("CurrentDrawable() = nil")
	}
	if o.CurrentDrawable() != d {
		t.Error("second call in the same tick returned a different drawable")
	}
	if d.View() == nil || d.Texture() == nil {
		t.Error("drawable has no texture or view")
	}
	target := o.CurrentPassTarget()
	if target == nil || target.ClearColor != drawloop.DefaultClearColor {
		t.Errorf("pass target = %+v", target)
	}

	if err := d.Present(nil); err != nil {
		t.Fatal(err)
	}
	d.Discard()
	if o.Presents() != 1 || o.Discards() != 1 {
		t.Errorf("presents %d discards %d", o.Presents(), o.Discards())
	}
}

func TestOffscreenUnavailable(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)
	o, err := NewOffscreen(device, 4, 4, 0, gputypes.Color{})
	if err != nil {
		t.Fatal(err)
	}

	o.SetAvailable(false, true)
	if o.CurrentDrawable() != nil {
		t.Error("drawable returned while unavailable")
	}
	o.SetAvailable(true, false)
	if o.CurrentPassTarget() != nil {
		t.Error("pass target returned while unavailable")
	}
	o.SetAvailable(true, true)
	if o.CurrentDrawable() == nil || o.CurrentPassTarget() == nil {
		t.Error("view still unavailable")
	}
}

func TestOffscreenZeroArea(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)
	dev := gputest.NewDevice(device)

	o, err := NewOffscreen(dev, 0, 0, 0, gputypes.Color{})
	if err != nil {
		t.Fatal(err)
	}
	if o.CurrentDrawable() != nil || o.CurrentPassTarget() != nil {
		t.Error("zero-area view offered a frame")
	}
	if _, err := o.Snapshot(); !errors.Is(err, ErrNotReadable) {
		t.Errorf("Snapshot err = %v, want ErrNotReadable", err)
	}

	if err := o.Resize(16, 16); err != nil {
		t.Fatal(err)
	}
	if o.CurrentDrawable() == nil {
		t.Error("no drawable after resize")
	}
	if err := o.Resize(16, 16); err != nil {
		t.Fatal(err)
	}
	if n := dev.Calls("CreateTexture"); n != 1 {
		t.Errorf("CreateTexture called %d times, same-size resize must not recreate", n)
	}

	o.Destroy()
	o.Destroy()
	if live := dev.Live(); len(live) != 0 {
		t.Errorf("live objects after Destroy: %v", live)
	}
}

func TestOffscreenResizeFailure(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)
	dev := gputest.NewDevice(device)
	dev.FailOn = "CreateTextureView"

	if _, err := NewOffscreen(dev, 4, 4, 0, gputypes.Color{}); !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("err = %v, want injected failure", err)
	}
	if live := dev.Live(); len(live) != 0 {
		t.Errorf("leaked %v", live)
	}
}

func TestOffscreenNotReadable(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)
	o, err := NewOffscreen(device, 4, 4, 0, gputypes.Color{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := o.Snapshot(); !errors.Is(err, ErrNotReadable) {
		t.Errorf("noop texture: err = %v, want ErrNotReadable", err)
	}
}

func openSoftware(t *testing.T) *render.HeadlessDevice {
	t.Helper()
	dev, err := render.OpenBackend(render.BackendSoftware, drawloop.DefaultPixelFormat)
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	t.Cleanup(dev.Destroy)
	return dev
}

func clearRGBA(c gputypes.Color) color.RGBA {
	return color.RGBA{
		R: uint8(c.R * 255),
		G: uint8(c.G * 255),
		B: uint8(c.B * 255),
		A: uint8(c.A * 255),
	}
}

func TestOffscreenRendersClearColor(t *testing.T) {
	for _, format := range []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm} {
		t.Run(format.String(), func(t *testing.T) {
			hd := openSoftware(t)
			device, queue, err := render.HalDevices(hd)
			if err != nil {
				t.Fatal(err)
			}

			cfg := drawloop.QuadConfig()
			cfg.PixelFormat = format
			r, err := render.New(device, queue, cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer r.Destroy()

			o, err := NewOffscreen(device, 16, 16, format, drawloop.DefaultClearColor)
			if err != nil {
				t.Fatal(err)
			}
			defer o.Destroy()

			if res := r.Draw(o); !res.Submitted() {
				t.Fatalf("Draw = %v", res)
			}
			if o.Presents() != 1 {
				t.Errorf("Presents() = %d, want 1", o.Presents())
			}

			img, err := o.Snapshot()
			if err != nil {
				t.Fatal(err)
			}
			want := clearRGBA(drawloop.DefaultClearColor)
			if got := img.RGBAAt(0, 0); got != want {
				t.Errorf("corner pixel = %v, want clear color %v", got, want)
			}
		})
	}
}
