// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the presentation views a render.Renderer draws
// into.
//
// # Views
//
//   - Offscreen: a device texture with no window. Drawables are always the
//     same texture; presenting only counts the frame. Used by tools, tests
//     and snapshot rendering.
//   - Window: a configured hal.Surface. Each tick acquires one surface
//     texture, which is presented through the queue or discarded.
//
// Both views report no drawable while their size is zero, which makes the
// renderer skip the tick silently.
//
// # Snapshots
//
// Views backed by the software backend can be read back as *image.RGBA and
// written as PNG, optionally scaled up for inspection:
//
//	img, err := view.Snapshot()
//	if err != nil {
//	    return err
//	}
//	return surface.SavePNG("frame.png", img, 4)
package surface
