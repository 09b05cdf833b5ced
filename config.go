package drawloop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/math/f32"
	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultVertexFunction   = "vertex_shader"
	DefaultFragmentFunction = "fragment_shader"
	DefaultPixelFormat      = gputypes.TextureFormatBGRA8Unorm
	DefaultTargetFPS        = 60
)

// DefaultClearColor is the dark green the drawable is cleared to each frame.
var DefaultClearColor = gputypes.Color{R: 0.0, G: 0.4, B: 0.21, A: 1.0}

// Variant names accepted by [VariantConfig].
const (
	VariantTriangle     = "triangle"
	VariantQuad         = "quad"
	VariantAnimatedQuad = "animated-quad"
)

// Configuration errors.
var (
	ErrUnknownVariant     = errors.New("drawloop: unknown variant")
	ErrMissingFunction    = errors.New("drawloop: shader function name is empty")
	ErrUnsupportedFormat  = errors.New("drawloop: unsupported pixel format")
	ErrInvalidFPS         = errors.New("drawloop: target fps must be positive")
	ErrInvalidClearColor  = errors.New("drawloop: clear color component out of [0, 1]")
	ErrInvalidConfigValue = errors.New("drawloop: invalid config value")
)

// Config parameterizes one renderer. The triangle, quad and animated quad
// demos differ only in their Config.
type Config struct {
	// Name labels the renderer in logs and device object labels.
	Name string

	// Geometry is the vertex and index data drawn every frame.
	Geometry Geometry

	// VertexFunction and FragmentFunction name the shader entry points.
	VertexFunction   string
	FragmentFunction string

	// PixelFormat is the color attachment format. Only 4-channel 8-bit
	// formats are accepted.
	PixelFormat gputypes.TextureFormat

	// ClearColor is used by views that build pass targets from a Config.
	// A zero ClearColor selects DefaultClearColor.
	ClearColor gputypes.Color

	// Animated enables the per-frame uniform carrying the animation value.
	Animated bool

	// TargetFPS is the nominal display rate the animation step is derived from.
	TargetFPS int

	// ShaderSource is optional WGSL source. When empty, the embedded library
	// matching Animated is used.
	ShaderSource string
}

// TriangleConfig returns the plain triangle variant.
func TriangleConfig() Config {
	return Config{
		Name:     VariantTriangle,
		Geometry: TriangleGeometry(),
	}.WithDefaults()
}

// QuadConfig returns the indexed quad variant.
func QuadConfig() Config {
	return Config{
		Name:     VariantQuad,
		Geometry: QuadGeometry(),
	}.WithDefaults()
}

// AnimatedQuadConfig returns the indexed quad with a per-frame animation value.
func AnimatedQuadConfig() Config {
	return Config{
		Name:     VariantAnimatedQuad,
		Geometry: QuadGeometry(),
		Animated: true,
	}.WithDefaults()
}

var variants = map[string]func() Config{
	VariantTriangle:     TriangleConfig,
	VariantQuad:         QuadConfig,
	VariantAnimatedQuad: AnimatedQuadConfig,
}

// Variants returns the names of the built-in variants in a stable order.
func Variants() []string {
	return []string{VariantTriangle, VariantQuad, VariantAnimatedQuad}
}

// VariantConfig returns the built-in configuration with the given name.
func VariantConfig(name string) (Config, error) {
	fn, ok := variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q (want one of %s)",
			ErrUnknownVariant, name, strings.Join(Variants(), ", "))
	}
	return fn(), nil
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = "drawloop"
	}
	if c.VertexFunction == "" {
		c.VertexFunction = DefaultVertexFunction
	}
	if c.FragmentFunction == "" {
		c.FragmentFunction = DefaultFragmentFunction
	}
	if c.PixelFormat == gputypes.TextureFormatUndefined {
		c.PixelFormat = DefaultPixelFormat
	}
	if c.ClearColor == (gputypes.Color{}) {
		c.ClearColor = DefaultClearColor
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = DefaultTargetFPS
	}
	return c
}

// Validate reports the first problem that would prevent a renderer from
// being built from c.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("drawloop: geometry: %w", err)
	}
	if c.VertexFunction == "" {
		return fmt.Errorf("%w: vertex function", ErrMissingFunction)
	}
	if c.FragmentFunction == "" {
		return fmt.Errorf("%w: fragment function", ErrMissingFunction)
	}
	if !SupportedPixelFormat(c.PixelFormat) {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, c.PixelFormat)
	}
	if c.TargetFPS <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFPS, c.TargetFPS)
	}
	for _, v := range []float64{c.ClearColor.R, c.ClearColor.G, c.ClearColor.B, c.ClearColor.A} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidClearColor, c.ClearColor)
		}
	}
	return nil
}

var pixelFormats = map[string]gputypes.TextureFormat{
	"bgra8unorm":      gputypes.TextureFormatBGRA8Unorm,
	"bgra8unorm-srgb": gputypes.TextureFormatBGRA8UnormSrgb,
	"rgba8unorm":      gputypes.TextureFormatRGBA8Unorm,
	"rgba8unorm-srgb": gputypes.TextureFormatRGBA8UnormSrgb,
}

// SupportedPixelFormat reports whether f is a 4-channel 8-bit color format
// a renderer can target.
func SupportedPixelFormat(f gputypes.TextureFormat) bool {
	for _, v := range pixelFormats {
		if v == f {
			return true
		}
	}
	return false
}

// ParsePixelFormat parses a pixel format name such as "bgra8unorm" or
// "rgba8unorm-srgb". Matching is case-insensitive and accepts "_" for "-".
func ParsePixelFormat(name string) (gputypes.TextureFormat, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if f, ok := pixelFormats[key]; ok {
		return f, nil
	}
	return gputypes.TextureFormatUndefined, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// fileConfig is the YAML form of a Config.
type fileConfig struct {
	Variant          string       `yaml:"variant"`
	Name             string       `yaml:"name"`
	Vertices         [][3]float32 `yaml:"vertices"`
	Indices          []uint16     `yaml:"indices"`
	VertexFunction   string       `yaml:"vertex_function"`
	FragmentFunction string       `yaml:"fragment_function"`
	PixelFormat      string       `yaml:"pixel_format"`
	ClearColor       []float64    `yaml:"clear_color"`
	Animated         *bool        `yaml:"animated"`
	TargetFPS        int          `yaml:"target_fps"`
	Shader           string       `yaml:"shader"`
	ShaderFile       string       `yaml:"shader_file"`
}

// ParseConfig parses a YAML renderer configuration.
//
// The optional "variant" key selects a built-in configuration to start from;
// the remaining keys override its fields:
//
//	variant: quad
//	name: tinted-quad
//	clear_color: [0.1, 0.1, 0.1, 1]
//	animated: true
//	target_fps: 120
//
// Setting "vertices" replaces the whole geometry, so "indices" must be given
// alongside it for indexed draws. The result has defaults applied and is
// validated. A "shader_file" key is only honored by [LoadConfig].
func ParseConfig(data []byte) (Config, error) {
	cfg, _, err := parseConfig(data)
	return cfg, err
}

// LoadConfig reads and parses a YAML renderer configuration from path.
// A relative "shader_file" is resolved against the directory of path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("drawloop: read config: %w", err)
	}
	cfg, fc, err := parseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("drawloop: %s: %w", path, err)
	}
	if fc.ShaderFile != "" {
		shaderPath := fc.ShaderFile
		if !filepath.IsAbs(shaderPath) {
			shaderPath = filepath.Join(filepath.Dir(path), shaderPath)
		}
		src, err := os.ReadFile(shaderPath)
		if err != nil {
			return Config{}, fmt.Errorf("drawloop: read shader: %w", err)
		}
		cfg.ShaderSource = string(src)
	}
	return cfg, nil
}

func parseConfig(data []byte) (Config, fileConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fc, fmt.Errorf("drawloop: parse config: %w", err)
	}

	var cfg Config
	if fc.Variant != "" {
		base, err := VariantConfig(fc.Variant)
		if err != nil {
			return Config{}, fc, err
		}
		cfg = base
	}

	if fc.Name != "" {
		cfg.Name = fc.Name
	}
	switch {
	case fc.Vertices != nil:
		cfg.Geometry = Geometry{Vertices: make([]f32.Vec3, len(fc.Vertices)), Indices: fc.Indices}
		for i, v := range fc.Vertices {
			cfg.Geometry.Vertices[i] = f32.Vec3(v)
		}
	case fc.Indices != nil:
		cfg.Geometry.Indices = fc.Indices
	}
	if fc.VertexFunction != "" {
		cfg.VertexFunction = fc.VertexFunction
	}
	if fc.FragmentFunction != "" {
		cfg.FragmentFunction = fc.FragmentFunction
	}
	if fc.PixelFormat != "" {
		f, err := ParsePixelFormat(fc.PixelFormat)
		if err != nil {
			return Config{}, fc, err
		}
		cfg.PixelFormat = f
	}
	if fc.ClearColor != nil {
		if len(fc.ClearColor) != 4 {
			return Config{}, fc, fmt.Errorf("%w: clear_color needs 4 components, got %d",
				ErrInvalidConfigValue, len(fc.ClearColor))
		}
		cfg.ClearColor = gputypes.Color{R: fc.ClearColor[0], G: fc.ClearColor[1], B: fc.ClearColor[2], A: fc.ClearColor[3]}
	}
	if fc.Animated != nil {
		cfg.Animated = *fc.Animated
	}
	if fc.TargetFPS != 0 {
		cfg.TargetFPS = fc.TargetFPS
	}
	if fc.Shader != "" {
		cfg.ShaderSource = fc.Shader
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fc, err
	}
	return cfg, fc, nil
}
