// Package drawloop is a minimal single-pass render loop for gogpu/wgpu.
//
// A renderer is built once from a [Config]: its geometry is uploaded to device
// buffers and a render pipeline is compiled from a shader library. After that,
// the host calls the renderer once per display tick. Each call records one
// render pass that clears the drawable, issues one draw of the geometry and
// presents the result.
//
// # Packages
//
//   - drawloop (this package): geometry, configuration, animation state,
//     frame results and logging shared by the sub-packages.
//   - shader: WGSL shader libraries validated with naga.
//   - render: the pipeline builder and frame submitter ([render.Renderer]).
//   - surface: host views that supply drawables and pass targets.
//   - loop: a display-tick driver that calls a renderer at a nominal rate.
//
// # Variants
//
// The plain triangle, the indexed quad and the animated indexed quad are all
// one renderer with a different [Config]:
//
//	cfg := drawloop.AnimatedQuadConfig()
//	r, err := render.New(device, queue, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Destroy()
//
//	for range ticks {
//	    res := r.Draw(view)
//	    _ = res // Submitted or Skipped(reason)
//	}
//
// # Logging
//
// drawloop is silent by default. Use [SetLogger] to route diagnostics to any
// [log/slog] handler.
package drawloop
