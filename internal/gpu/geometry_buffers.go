package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrEmptyGeometry is returned when there is no vertex data to upload.
var ErrEmptyGeometry = errors.New("gpu: empty vertex data")

// GeometryData is encoded geometry ready for upload.
type GeometryData struct {
	// Vertices holds tightly packed vertex positions.
	Vertices []byte

	// VertexCount is the number of vertices in Vertices.
	VertexCount uint32

	// Indices holds uint16 indices, padded to the copy alignment.
	// Empty for non-indexed draws.
	Indices []byte

	// IndexCount is the number of indices drawn, excluding padding.
	IndexCount uint32
}

// GeometryBuffers are the device buffers holding one renderer's geometry.
// They are written once at build time and never modified afterwards.
type GeometryBuffers struct {
	Vertex      hal.Buffer
	Index       hal.Buffer
	VertexCount uint32
	IndexCount  uint32
}

// Indexed reports whether draws use the index buffer.
func (b *GeometryBuffers) Indexed() bool { return b.Index != nil }

// UploadGeometry creates the vertex buffer and, for indexed geometry, the
// index buffer, and writes data into them through the queue.
func UploadGeometry(device hal.Device, queue hal.Queue, label string, data GeometryData) (*GeometryBuffers, error) {
	if len(data.Vertices) == 0 || data.VertexCount == 0 {
		return nil, ErrEmptyGeometry
	}

	bufs := &GeometryBuffers{
		VertexCount: data.VertexCount,
		IndexCount:  data.IndexCount,
	}

	vb, err := createAndUploadBuffer(device, queue, label+"_vertices", data.Vertices,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	bufs.Vertex = vb

	if len(data.Indices) > 0 {
		ib, err := createAndUploadBuffer(device, queue, label+"_indices", data.Indices,
			gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
		if err != nil {
			bufs.Destroy(device)
			return nil, err
		}
		bufs.Index = ib
	}

	return bufs, nil
}

// Destroy releases the buffers in reverse creation order. Safe to call on a
// partially built set and more than once.
func (b *GeometryBuffers) Destroy(device hal.Device) {
	if b == nil || device == nil {
		return
	}
	if b.Index != nil {
		device.DestroyBuffer(b.Index)
		b.Index = nil
	}
	if b.Vertex != nil {
		device.DestroyBuffer(b.Vertex)
		b.Vertex = nil
	}
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func createAndUploadBuffer(device hal.Device, queue hal.Queue, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, fmt.Errorf("upload %s: %w", label, err)
	}
	return buf, nil
}
