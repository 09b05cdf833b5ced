// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// View is the host-provided presentation view a renderer draws into once
// per display tick.
//
// Both accessors may return nil when the view cannot supply a frame right
// now (not laid out yet, zero size, swapchain out of date). A nil result is
// not an error; the renderer skips that tick silently.
type View interface {
	// CurrentDrawable returns the drawable for the current tick. Repeated
	// calls within one tick return the same drawable.
	CurrentDrawable() Drawable

	// CurrentPassTarget returns the render pass description for the current
	// drawable.
	CurrentPassTarget() *PassTarget
}

// Drawable is a presentable texture owned by a View. The renderer finishes
// every drawable it acquires with exactly one call to Present or Discard.
type Drawable interface {
	// Texture returns the texture rendered into.
	Texture() hal.Texture

	// View returns the texture view used as the color attachment.
	View() hal.TextureView

	// Present schedules the drawable for display after the submitted work.
	Present(queue hal.Queue) error

	// Discard releases the drawable without presenting it.
	Discard()
}

// PassTarget describes the color attachment of the frame's render pass.
type PassTarget struct {
	// View overrides the attachment. When nil, the drawable's view is used.
	View hal.TextureView

	// ClearColor is the color the attachment is cleared to.
	ClearColor gputypes.Color

	// LoadOp and StoreOp default to Clear and Store when left undefined.
	LoadOp  gputypes.LoadOp
	StoreOp gputypes.StoreOp
}

// Resizer is implemented by views whose drawable size can change.
type Resizer interface {
	Resize(width, height uint32) error
}
