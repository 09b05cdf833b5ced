// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import "github.com/gogpu/drawloop/shader"

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := render.New(device, queue, cfg,
//	    render.WithLabel("hud-quad"),
//	    render.WithSPIRV(),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	label   string
	spirv   bool
	library *shader.Library
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		label:   "", // Config.Name is used when empty
		spirv:   false,
		library: nil, // Resolved from the config when nil
	}
}

// WithLabel sets the label used for device objects and log lines.
// Defaults to the config name.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithSPIRV hands the device SPIR-V compiled by naga instead of WGSL.
// Use this for backends that do not accept WGSL directly.
func WithSPIRV() Option {
	return func(o *options) {
		o.spirv = true
	}
}

// WithLibrary injects a prebuilt shader library. It takes precedence over
// Config.ShaderSource and the embedded libraries.
func WithLibrary(lib *shader.Library) Option {
	return func(o *options) {
		o.library = lib
	}
}
