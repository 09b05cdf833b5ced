package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Frame encoding errors.
var (
	ErrEncoderUnavailable = errors.New("gpu: command encoder unavailable")
	ErrSubmitFailed       = errors.New("gpu: frame submission failed")
	ErrFrameDone          = errors.New("gpu: frame already submitted or discarded")
)

// PassTarget describes the color attachment of a frame's render pass.
type PassTarget struct {
	// View is the texture view rendered into.
	View hal.TextureView

	// ClearColor is the color the attachment is cleared to.
	ClearColor gputypes.Color

	// LoadOp and StoreOp default to Clear and Store when left undefined.
	LoadOp  gputypes.LoadOp
	StoreOp gputypes.StoreOp
}

// inflightFrame is a submitted command buffer awaiting completion.
type inflightFrame struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

// FrameEncoder records and submits one command buffer per frame and
// retires command buffers once the queue reports them complete.
//
// FrameEncoder is not safe for concurrent use.
type FrameEncoder struct {
	device hal.Device
	queue  hal.Queue
	label  string

	inflight  []inflightFrame
	submitted uint64
}

// NewFrameEncoder returns an encoder that submits to queue.
func NewFrameEncoder(device hal.Device, queue hal.Queue, label string) *FrameEncoder {
	return &FrameEncoder{device: device, queue: queue, label: label}
}

// Frame is a command buffer being recorded. It is finished with exactly one
// call to FrameEncoder.Submit or Frame.Discard.
type Frame struct {
	label   string
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
}

// Begin retires completed frames, then creates a command encoder and begins
// recording. A failure wraps ErrEncoderUnavailable.
func (e *FrameEncoder) Begin() (*Frame, error) {
	e.Retire()

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: e.label + "_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoderUnavailable, err)
	}
	if err := encoder.BeginEncoding(e.label + "_frame"); err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("%w: begin encoding: %w", ErrEncoderUnavailable, err)
	}
	return &Frame{label: e.label, encoder: encoder}, nil
}

// BeginPass begins the frame's single render pass on target.
func (f *Frame) BeginPass(target PassTarget) hal.RenderPassEncoder {
	loadOp := target.LoadOp
	if loadOp == gputypes.LoadOpUndefined {
		loadOp = gputypes.LoadOpClear
	}
	storeOp := target.StoreOp
	if storeOp == gputypes.StoreOpUndefined {
		storeOp = gputypes.StoreOpStore
	}

	f.pass = f.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: f.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       target.View,
			LoadOp:     loadOp,
			StoreOp:    storeOp,
			ClearValue: target.ClearColor,
		}},
	})
	return f.pass
}

// Discard abandons the frame without submitting anything.
func (f *Frame) Discard() {
	if f.encoder == nil {
		return
	}
	if f.pass != nil {
		f.pass.End()
		f.pass = nil
	}
	f.encoder.DiscardEncoding()
	f.encoder.Destroy()
	f.encoder = nil
}

// Submit ends the render pass and the encoding and submits the command
// buffer. It returns the queue submission index. A failure wraps
// ErrSubmitFailed and leaves nothing in flight.
func (e *FrameEncoder) Submit(f *Frame) (uint64, error) {
	if f.encoder == nil {
		return 0, ErrFrameDone
	}
	if f.pass != nil {
		f.pass.End()
		f.pass = nil
	}

	encoder := f.encoder
	f.encoder = nil

	cmd, err := encoder.EndEncoding()
	if err != nil {
		encoder.Destroy()
		return 0, fmt.Errorf("%w: end encoding: %w", ErrSubmitFailed, err)
	}

	index, err := e.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		e.device.FreeCommandBuffer(cmd)
		encoder.Destroy()
		return 0, fmt.Errorf("%w: submit: %w", ErrSubmitFailed, err)
	}

	e.submitted++
	e.inflight = append(e.inflight, inflightFrame{index: index, encoder: encoder, cmd: cmd})
	return index, nil
}

// Retire frees the command buffers of every frame the queue reports as
// complete and returns how many were freed.
func (e *FrameEncoder) Retire() int {
	if len(e.inflight) == 0 {
		return 0
	}
	completed := e.queue.PollCompleted()
	kept := e.inflight[:0]
	freed := 0
	for _, f := range e.inflight {
		if f.index > completed {
			kept = append(kept, f)
			continue
		}
		e.free(f)
		freed++
	}
	clear(e.inflight[len(kept):])
	e.inflight = kept
	return freed
}

// Drain waits for the device to go idle and frees every in-flight command
// buffer.
func (e *FrameEncoder) Drain() error {
	if len(e.inflight) == 0 {
		return nil
	}
	err := e.device.WaitIdle()
	if err != nil {
		slogger().Warn("gpu: wait idle failed", "label", e.label, "err", err)
	}
	for _, f := range e.inflight {
		e.free(f)
	}
	e.inflight = nil
	return err
}

// InFlight returns the number of submitted frames not yet retired.
func (e *FrameEncoder) InFlight() int { return len(e.inflight) }

// Submitted returns the number of successful submissions.
func (e *FrameEncoder) Submitted() uint64 { return e.submitted }

func (e *FrameEncoder) free(f inflightFrame) {
	e.device.FreeCommandBuffer(f.cmd)
	f.encoder.Destroy()
}
