package gpu

import (
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawloop/internal/gputest"
)

const testShader = `
@vertex
fn vertex_shader(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position.x, position.y, position.z, 1.0);
}

@fragment
fn fragment_shader() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

func testPipelineDesc(uniformSize uint64) *PipelineDescriptor {
	return &PipelineDescriptor{
		Label:         "test",
		Shader:        hal.ShaderSource{WGSL: testShader},
		VertexEntry:   "vertex_shader",
		FragmentEntry: "fragment_shader",
		Format:        gputypes.TextureFormatBGRA8Unorm,
		UniformSize:   uniformSize,
	}
}

func TestNewPipeline(t *testing.T) {
	inner, _ := gputest.NewNoopDevice(t)
	device := gputest.NewDevice(inner)

	p, err := NewPipeline(device, testPipelineDesc(0))
	if err != nil {
		t.Fatalf("NewPipeline() = %v", err)
	}
	if p.HasUniform() || p.UniformBuffer() != nil {
		t.Error("pipeline without uniform size has a uniform")
	}
	if p.Format() != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format() = %v", p.Format())
	}

	want := []string{"ShaderModule", "PipelineLayout", "RenderPipeline"}
	if got := device.Created(); !slices.Equal(got, want) {
		t.Errorf("created %v, want %v", got, want)
	}

	p.Destroy()
	slices.Reverse(want)
	if got := device.Destroyed(); !slices.Equal(got, want) {
		t.Errorf("destroyed %v, want %v", got, want)
	}
	p.Destroy()
	if got := len(device.Destroyed()); got != len(want) {
		t.Errorf("second Destroy() destroyed again: %d objects", got)
	}
}

func TestNewPipelineWithUniform(t *testing.T) {
	inner, innerQ := gputest.NewNoopDevice(t)
	device := gputest.NewDevice(inner)
	queue := gputest.NewQueue(innerQ)

	p, err := NewPipeline(device, testPipelineDesc(16))
	if err != nil {
		t.Fatalf("NewPipeline() = %v", err)
	}
	defer p.Destroy()

	if !p.HasUniform() {
		t.Fatal("expected a uniform bind group")
	}
	want := []string{"ShaderModule", "BindGroupLayout", "PipelineLayout", "RenderPipeline", "Buffer", "BindGroup"}
	if got := device.Created(); !slices.Equal(got, want) {
		t.Errorf("created %v, want %v", got, want)
	}

	data := []byte{1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if err := p.WriteUniform(queue, data); err != nil {
		t.Fatalf("WriteUniform() = %v", err)
	}
	if got := queue.WritesTo(p.UniformBuffer()); len(got) != 1 || got[0][0] != 1 {
		t.Errorf("uniform writes = %v", got)
	}
	if err := p.WriteUniform(queue, make([]byte, 32)); err == nil {
		t.Error("WriteUniform() accepted oversized data")
	}
}

func TestNewPipelineValidation(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)

	if _, err := NewPipeline(nil, testPipelineDesc(0)); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device: %v", err)
	}

	desc := testPipelineDesc(0)
	desc.Shader = hal.ShaderSource{}
	if _, err := NewPipeline(device, desc); !errors.Is(err, ErrEmptyShader) {
		t.Errorf("empty shader: %v", err)
	}

	desc = testPipelineDesc(0)
	desc.FragmentEntry = ""
	if _, err := NewPipeline(device, desc); !errors.Is(err, ErrMissingEntry) {
		t.Errorf("missing entry: %v", err)
	}
}

func TestNewPipelineFailureReleases(t *testing.T) {
	steps := []string{
		"CreateShaderModule",
		"CreateBindGroupLayout",
		"CreatePipelineLayout",
		"CreateRenderPipeline",
		"CreateBuffer",
		"CreateBindGroup",
	}
	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			inner, _ := gputest.NewNoopDevice(t)
			device := gputest.NewDevice(inner)
			device.FailOn = step

			p, err := NewPipeline(device, testPipelineDesc(16))
			if !errors.Is(err, gputest.ErrInjected) {
				t.Fatalf("NewPipeline() = %v, want injected failure", err)
			}
			if p != nil {
				t.Error("failed build returned a pipeline")
			}
			if live := device.Live(); len(live) != 0 {
				t.Errorf("leaked objects: %v", live)
			}

			created := device.Created()
			destroyed := device.Destroyed()
			slices.Reverse(created)
			if !slices.Equal(created, destroyed) {
				t.Errorf("destroyed %v, want reverse of creation %v", destroyed, created)
			}
		})
	}
}

func TestPipelineBindAndDraw(t *testing.T) {
	tests := []struct {
		name    string
		data    GeometryData
		uniform uint64
		want    []string
	}{
		{
			name:    "indexed animated",
			data:    quadData(),
			uniform: 16,
			want:    []string{"SetPipeline", "SetBindGroup(0)", "SetVertexBuffer(0)", "SetIndexBuffer", "DrawIndexed(6)", "End"},
		},
		{
			name: "non-indexed",
			data: GeometryData{Vertices: make([]byte, 3*positionStride), VertexCount: 3},
			want: []string{"SetPipeline", "SetVertexBuffer(0)", "Draw(3)", "End"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner, queue := gputest.NewNoopDevice(t)
			device := gputest.NewDevice(inner)

			p, err := NewPipeline(device, testPipelineDesc(tt.uniform))
			if err != nil {
				t.Fatal(err)
			}
			defer p.Destroy()
			geo, err := UploadGeometry(device, queue, "geo", tt.data)
			if err != nil {
				t.Fatal(err)
			}
			defer geo.Destroy(device)

			enc := NewFrameEncoder(device, queue, "test")
			frame, err := enc.Begin()
			if err != nil {
				t.Fatal(err)
			}
			rp := frame.BeginPass(PassTarget{})
			p.Bind(rp, geo)
			p.Draw(rp, geo)
			if _, err := enc.Submit(frame); err != nil {
				t.Fatal(err)
			}

			passes := device.Passes()
			if len(passes) != 1 {
				t.Fatalf("passes = %d, want 1", len(passes))
			}
			if got := passes[0].Commands; !slices.Equal(got, tt.want) {
				t.Errorf("commands = %v, want %v", got, tt.want)
			}
			if passes[0].Draws() != 1 {
				t.Errorf("draws = %d, want 1", passes[0].Draws())
			}
			if geo.Indexed() && passes[0].IndexFormat != gputypes.IndexFormatUint16 {
				t.Errorf("index format = %v, want Uint16", passes[0].IndexFormat)
			}
		})
	}
}

func TestBuildLogsNothing(t *testing.T) {
	logger, rec := gputest.NewLogger()
	SetLogger(logger)
	t.Cleanup(func() { SetLogger(nil) })

	inner, innerQ := gputest.NewNoopDevice(t)
	device := gputest.NewDevice(inner)
	queue := gputest.NewQueue(innerQ)

	bufs, err := UploadGeometry(device, queue, "quiet", quadData())
	if err != nil {
		t.Fatal(err)
	}
	defer bufs.Destroy(device)
	p, err := NewPipeline(device, testPipelineDesc(16))
	if err != nil {
		t.Fatal(err)
	}
	defer p.Destroy()

	device.FailOn = "CreateShaderModule"
	if _, err := NewPipeline(device, testPipelineDesc(16)); err == nil {
		t.Fatal("expected a build failure")
	}
	if msgs := rec.Messages(slog.LevelDebug); len(msgs) != 0 {
		t.Errorf("build logged %q; failures are reported by the caller", msgs)
	}
}
