// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader provides WGSL shader libraries for drawloop renderers.
//
// A [Library] is WGSL source that has been parsed, lowered and validated with
// naga, together with the entry points it declares. Validation happens on the
// CPU before any device object is created, so a bad shader is reported as a
// build error instead of a device failure.
//
// Two libraries are embedded: [DefaultLibrary] for static geometry and
// [AnimatedLibrary], whose vertex stage reads a 16-byte uniform block at
// group 0, binding 0. Both export the entry points "vertex_shader" and
// "fragment_shader".
package shader
