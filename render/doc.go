// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render draws one indexed or non-indexed geometry per display tick.
//
// # Key Principle
//
// A Renderer RECEIVES its device and queue from the host application. It
// never creates a global device. Hosts in the gogpu ecosystem hand over a
// gpucontext.DeviceProvider; tools without a host open a HeadlessDevice on
// the noop or software backend.
//
// # Lifecycle
//
//   - New builds the pipeline once: shader functions are resolved, the
//     geometry is uploaded and the render pipeline is created.
//   - Draw is called once per display tick. It acquires the view's drawable,
//     records one render pass with one draw call, submits and presents.
//   - Destroy waits for in-flight frames and releases everything New created.
//
// A failed build is logged once and disables drawing: every later Draw
// reports drawloop.SkipNoPipeline without touching the view.
//
// # Usage
//
//	dev, err := render.OpenBackend(render.BackendSoftware, gputypes.TextureFormatBGRA8Unorm)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Destroy()
//
//	r, err := render.NewFromProvider(dev, drawloop.QuadConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Destroy()
//
//	for range ticks {
//	    if res := r.Draw(view); res.Skipped() {
//	        continue
//	    }
//	}
//
// # Thread Safety
//
// Renderer is not safe for concurrent use. Draw it from the goroutine that
// receives display ticks.
package render
