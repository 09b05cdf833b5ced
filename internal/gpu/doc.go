// Package gpu holds the device-side half of a drawloop renderer: geometry
// buffers, the render pipeline and per-frame command encoding on top of the
// gogpu/wgpu HAL.
//
// The package works on raw bytes, shader sources and HAL handles only. The
// root drawloop package encodes geometry and uniforms; render wires the
// pieces together:
//
//	UploadGeometry  -> GeometryBuffers   (once, at build)
//	NewPipeline     -> Pipeline          (once, at build)
//	FrameEncoder.Begin -> Frame          (per tick)
//	Frame.BeginPass, Pipeline.Bind, Pipeline.Draw, FrameEncoder.Submit
//
// Resources created here are destroyed in reverse creation order, and a
// failed build releases everything it created before returning.
package gpu
