package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// positionStride is the byte stride of one vec3<f32> position at location 0.
const positionStride = 12

// Pipeline build errors.
var (
	ErrNilDevice    = errors.New("gpu: nil device")
	ErrEmptyShader  = errors.New("gpu: shader source is empty")
	ErrMissingEntry = errors.New("gpu: entry point name is empty")
)

// PipelineDescriptor describes the single render pipeline of a renderer.
type PipelineDescriptor struct {
	// Label prefixes the labels of every device object.
	Label string

	// Shader is the WGSL or SPIR-V source of both stages.
	Shader hal.ShaderSource

	// VertexEntry and FragmentEntry name the stage entry points.
	VertexEntry   string
	FragmentEntry string

	// Format is the color attachment format.
	Format gputypes.TextureFormat

	// UniformSize is the size of the per-frame uniform block bound at
	// group 0, binding 0. Zero means the pipeline has no bind group.
	UniformSize uint64
}

// Pipeline is a compiled render pipeline together with its layouts and the
// optional per-frame uniform buffer.
//
// Layout:
//
//	@location(0) position: vec3<f32>, stride 12, per-vertex
//	@group(0) @binding(0) var<uniform> (only when UniformSize > 0)
//
// Topology is a triangle list with no culling and a single color target.
type Pipeline struct {
	device hal.Device
	label  string
	format gputypes.TextureFormat

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	uniformBuf  hal.Buffer
	bindGroup   hal.BindGroup
	uniformSize uint64
}

// NewPipeline creates the shader module, layouts, render pipeline and, when
// requested, the uniform buffer and bind group. On failure every object
// created so far is destroyed and a wrapped error is returned.
func NewPipeline(device hal.Device, desc *PipelineDescriptor) (*Pipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if desc.Shader.WGSL == "" && len(desc.Shader.SPIRV) == 0 {
		return nil, ErrEmptyShader
	}
	if desc.VertexEntry == "" || desc.FragmentEntry == "" {
		return nil, ErrMissingEntry
	}

	p := &Pipeline{
		device:      device,
		label:       desc.Label,
		format:      desc.Format,
		uniformSize: desc.UniformSize,
	}
	if err := p.create(desc); err != nil {
		p.Destroy()
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) create(desc *PipelineDescriptor) error { //nolint:funlen // one descriptor per device object
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  p.label + "_shader",
		Source: desc.Shader,
	})
	if err != nil {
		return fmt.Errorf("compile %s shader: %w", p.label, err)
	}
	p.shader = shader

	var groups []hal.BindGroupLayout
	if p.uniformSize > 0 {
		uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: p.label + "_uniform_layout",
			Entries: []gputypes.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
					Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("create %s uniform layout: %w", p.label, err)
		}
		p.uniformLayout = uniformLayout
		groups = append(groups, uniformLayout)
	}

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label + "_pipe_layout",
		BindGroupLayouts: groups,
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline layout: %w", p.label, err)
	}
	p.pipeLayout = pipeLayout

	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  p.label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: desc.VertexEntry,
			Buffers:    positionVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: desc.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    desc.Format,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline: %w", p.label, err)
	}
	p.pipeline = pipeline

	if p.uniformSize == 0 {
		return nil
	}

	uniformBuf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.label + "_uniforms",
		Size:  p.uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create %s uniform buffer: %w", p.label, err)
	}
	p.uniformBuf = uniformBuf

	bindGroup, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  p.label + "_uniform_bind",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: 0,
				Resource: gputypes.BufferBinding{
					Buffer: p.uniformBuf.NativeHandle(),
					Offset: 0,
					Size:   p.uniformSize,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create %s bind group: %w", p.label, err)
	}
	p.bindGroup = bindGroup

	return nil
}

// Destroy releases all pipeline resources in reverse creation order. Safe
// to call multiple times or on a partially built pipeline.
func (p *Pipeline) Destroy() {
	if p == nil || p.device == nil {
		return
	}
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.uniformBuf != nil {
		p.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// Format returns the color attachment format the pipeline was built for.
func (p *Pipeline) Format() gputypes.TextureFormat { return p.format }

// HasUniform reports whether the pipeline binds a per-frame uniform buffer.
func (p *Pipeline) HasUniform() bool { return p.bindGroup != nil }

// UniformBuffer returns the per-frame uniform buffer, or nil.
func (p *Pipeline) UniformBuffer() hal.Buffer { return p.uniformBuf }

// WriteUniform writes the per-frame uniform block. It is a no-op for
// pipelines without a uniform.
func (p *Pipeline) WriteUniform(queue hal.Queue, data []byte) error {
	if p.uniformBuf == nil {
		return nil
	}
	if uint64(len(data)) > p.uniformSize {
		return fmt.Errorf("gpu: uniform data %d bytes exceeds buffer size %d", len(data), p.uniformSize)
	}
	return queue.WriteBuffer(p.uniformBuf, 0, data)
}

// Bind sets the pipeline, its uniform bind group and the geometry buffers
// on rp.
func (p *Pipeline) Bind(rp hal.RenderPassEncoder, geo *GeometryBuffers) {
	rp.SetPipeline(p.pipeline)
	if p.bindGroup != nil {
		rp.SetBindGroup(0, p.bindGroup, nil)
	}
	rp.SetVertexBuffer(0, geo.Vertex, 0)
	if geo.Indexed() {
		rp.SetIndexBuffer(geo.Index, gputypes.IndexFormatUint16, 0)
	}
}

// Draw records exactly one draw call covering the whole geometry. Bind must
// have been called on the same pass.
func (p *Pipeline) Draw(rp hal.RenderPassEncoder, geo *GeometryBuffers) {
	if geo.Indexed() {
		rp.DrawIndexed(geo.IndexCount, 1, 0, 0, 0)
		return
	}
	rp.Draw(geo.VertexCount, 1, 0, 0)
}

// positionVertexLayout returns the vertex buffer layout: one vec3<f32>
// position per vertex at location 0.
func positionVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: positionStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}, // position
			},
		},
	}
}
