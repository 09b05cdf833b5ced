// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

//go:embed shaders/basic.wgsl
var basicShaderSource string

//go:embed shaders/animated.wgsl
var animatedShaderSource string

// Library errors.
var (
	ErrEmptySource       = errors.New("shader: empty source")
	ErrCompile           = errors.New("shader: compilation failed")
	ErrFunctionNotFound  = errors.New("shader: function not found")
	ErrStageMismatch     = errors.New("shader: function has wrong stage")
	ErrNoUniformBinding  = errors.New("shader: no uniform at group 0 binding 0")
	ErrInvalidSPIRVBytes = errors.New("shader: SPIR-V length is not a multiple of 4")
)

// Stage is the pipeline stage of an entry point.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
	StageOther
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "other"
	}
}

// Function is an entry point exported by a library.
type Function struct {
	Name  string
	Stage Stage
}

// Library is a validated WGSL module. It is immutable and safe for
// concurrent use.
type Library struct {
	label      string
	source     string
	functions  []Function
	hasUniform bool
}

// Compile parses, lowers and validates WGSL source. Any failure wraps
// ErrCompile.
func Compile(label, source string) (*Library, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, label)
	}

	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, label, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, label, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, label, err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, label, verrs[0])
	}

	lib := &Library{label: label, source: source}
	for _, ep := range module.EntryPoints {
		lib.functions = append(lib.functions, Function{Name: ep.Name, Stage: stageOf(ep.Stage)})
	}
	for _, gv := range module.GlobalVariables {
		if gv.Space == ir.SpaceUniform && gv.Binding != nil &&
			gv.Binding.Group == 0 && gv.Binding.Binding == 0 {
			lib.hasUniform = true
		}
	}
	return lib, nil
}

func stageOf(s ir.ShaderStage) Stage {
	switch s {
	case ir.StageVertex:
		return StageVertex
	case ir.StageFragment:
		return StageFragment
	case ir.StageCompute:
		return StageCompute
	default:
		return StageOther
	}
}

var (
	defaultLibrary  = sync.OnceValues(func() (*Library, error) { return Compile("default", basicShaderSource) })
	animatedLibrary = sync.OnceValues(func() (*Library, error) { return Compile("animated", animatedShaderSource) })
)

// DefaultLibrary returns the embedded library for static geometry.
// It is compiled on first use and shared afterwards.
func DefaultLibrary() (*Library, error) { return defaultLibrary() }

// AnimatedLibrary returns the embedded library whose vertex stage reads the
// per-frame uniform block.
func AnimatedLibrary() (*Library, error) { return animatedLibrary() }

// LibraryFor returns AnimatedLibrary when animated is true and
// DefaultLibrary otherwise.
func LibraryFor(animated bool) (*Library, error) {
	if animated {
		return AnimatedLibrary()
	}
	return DefaultLibrary()
}

// Label returns the name the library was compiled with.
func (l *Library) Label() string { return l.label }

// Source returns the WGSL source handed to the device.
func (l *Library) Source() string { return l.source }

// Functions returns the entry points in declaration order.
func (l *Library) Functions() []Function {
	out := make([]Function, len(l.functions))
	copy(out, l.functions)
	return out
}

// Function looks up an entry point by name.
func (l *Library) Function(name string) (Function, error) {
	for _, f := range l.functions {
		if f.Name == name {
			return f, nil
		}
	}
	return Function{}, fmt.Errorf("%w: %q in library %s", ErrFunctionNotFound, name, l.label)
}

// StageFunction looks up an entry point and checks its stage.
func (l *Library) StageFunction(name string, stage Stage) (Function, error) {
	f, err := l.Function(name)
	if err != nil {
		return Function{}, err
	}
	if f.Stage != stage {
		return Function{}, fmt.Errorf("%w: %q is %s, want %s", ErrStageMismatch, name, f.Stage, stage)
	}
	return f, nil
}

// HasUniform reports whether the module declares a uniform at group 0,
// binding 0.
func (l *Library) HasUniform() bool { return l.hasUniform }

// SPIRV compiles the library to SPIR-V words for backends that consume
// SPIR-V instead of WGSL.
func (l *Library) SPIRV() ([]uint32, error) {
	b, err := naga.CompileWithOptions(l.source, naga.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, l.label, err)
	}
	return spirvWords(b)
}

// spirvWords converts little-endian SPIR-V bytes to 32-bit words.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidSPIRVBytes, len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}
