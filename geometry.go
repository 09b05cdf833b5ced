package drawloop

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"
)

// VertexStride is the size in bytes of one vertex position (three float32).
const VertexStride = 12

// IndexSize is the size in bytes of one index.
const IndexSize = 2

// MaxVertices is the largest vertex count indexed geometry can address with
// 16-bit indices (0 through 65535). Non-indexed geometry is not limited.
const MaxVertices = math.MaxUint16 + 1

// copyAlignment is the buffer write granularity required by the device.
const copyAlignment = 4

// Geometry errors.
var (
	ErrNoVertices         = errors.New("drawloop: geometry has no vertices")
	ErrTooManyVertices    = errors.New("drawloop: too many vertices for 16-bit indices")
	ErrIndexOutOfRange    = errors.New("drawloop: index out of range")
	ErrIncompleteTriangle = errors.New("drawloop: draw count is not a multiple of 3")
)

// Geometry is the CPU-side vertex and index data drawn by a renderer.
//
// Vertices are object-space positions drawn as a triangle list. When Indices
// is non-empty the draw is indexed and each index selects a vertex; otherwise
// vertices are consumed in order.
type Geometry struct {
	Vertices []f32.Vec3
	Indices  []uint16
}

// TriangleGeometry returns the single triangle of the plain demo.
func TriangleGeometry() Geometry {
	return Geometry{
		Vertices: []f32.Vec3{
			{0, 1, 0},
			{-1, -1, 0},
			{1, -1, 0},
		},
	}
}

// QuadGeometry returns a full-viewport quad built from two indexed triangles.
func QuadGeometry() Geometry {
	return Geometry{
		Vertices: []f32.Vec3{
			{-1, 1, 0},  // V0
			{-1, -1, 0}, // V1
			{1, -1, 0},  // V2
			{1, 1, 0},   // V3
		},
		Indices: []uint16{
			0, 1, 2,
			2, 3, 0,
		},
	}
}

// Indexed reports whether the geometry is drawn with an index buffer.
func (g Geometry) Indexed() bool { return len(g.Indices) > 0 }

// DrawCount returns the element count of the single draw call: the index
// count for indexed geometry, the vertex count otherwise.
func (g Geometry) DrawCount() uint32 {
	if g.Indexed() {
		return uint32(len(g.Indices))
	}
	return uint32(len(g.Vertices))
}

// Triangles returns the number of triangle-list primitives drawn.
func (g Geometry) Triangles() int {
	return int(g.DrawCount() / 3)
}

// Validate checks that the geometry can be uploaded and drawn.
func (g Geometry) Validate() error {
	if len(g.Vertices) == 0 {
		return ErrNoVertices
	}
	if g.Indexed() && len(g.Vertices) > MaxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVertices, len(g.Vertices))
	}
	for i, idx := range g.Indices {
		if int(idx) >= len(g.Vertices) {
			return fmt.Errorf("%w: indices[%d] = %d, have %d vertices",
				ErrIndexOutOfRange, i, idx, len(g.Vertices))
		}
	}
	if n := g.DrawCount(); n%3 != 0 {
		return fmt.Errorf("%w: %d", ErrIncompleteTriangle, n)
	}
	return nil
}

// Clone returns a deep copy of the geometry.
func (g Geometry) Clone() Geometry {
	out := Geometry{}
	if g.Vertices != nil {
		out.Vertices = make([]f32.Vec3, len(g.Vertices))
		copy(out.Vertices, g.Vertices)
	}
	if g.Indices != nil {
		out.Indices = make([]uint16, len(g.Indices))
		copy(out.Indices, g.Indices)
	}
	return out
}

// VertexBytes encodes the vertex positions as little-endian float32 triples.
func (g Geometry) VertexBytes() []byte {
	buf := make([]byte, len(g.Vertices)*VertexStride)
	for i, v := range g.Vertices {
		off := i * VertexStride
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v[2]))
	}
	return buf
}

// IndexBytes encodes the indices as little-endian uint16 values, zero-padded
// to a multiple of 4 bytes. It returns nil for non-indexed geometry.
func (g Geometry) IndexBytes() []byte {
	if !g.Indexed() {
		return nil
	}
	buf := make([]byte, alignUp(len(g.Indices)*IndexSize, copyAlignment))
	for i, idx := range g.Indices {
		binary.LittleEndian.PutUint16(buf[i*IndexSize:], idx)
	}
	return buf
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
