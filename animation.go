package drawloop

import (
	"encoding/binary"
	"math"
)

// UniformSize is the size in bytes of the per-frame uniform block.
const UniformSize = 16

// FrameParameters is the per-frame data handed to the vertex stage of an
// animated renderer.
type FrameParameters struct {
	// Phase is the accumulated animation time after the last advance.
	Phase float64

	// AnimateBy is |sin(Phase)/2 + 0.5|, always in [0, 1].
	AnimateBy float32
}

// Bytes encodes p as the 16-byte uniform block: AnimateBy as a little-endian
// float32 followed by zero padding.
func (p FrameParameters) Bytes() []byte {
	buf := make([]byte, UniformSize)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(p.AnimateBy))
	return buf
}

// Animator owns the animation phase of one renderer.
//
// Every call to Advance moves the phase forward by 2/F, where F is the
// nominal frame rate, so the animation completes one sine period in about
// π·F/2 frames regardless of how long each frame actually took.
//
// An Animator is not safe for concurrent use; the render loop advances it
// from a single goroutine.
type Animator struct {
	fps    int
	ticks  uint64
	params FrameParameters
}

// NewAnimator returns an animator for the nominal frame rate fps.
// A non-positive fps selects DefaultTargetFPS.
func NewAnimator(fps int) *Animator {
	if fps <= 0 {
		fps = DefaultTargetFPS
	}
	return &Animator{
		fps:    fps,
		params: FrameParameters{AnimateBy: animateBy(0)},
	}
}

// FPS returns the nominal frame rate the phase step is derived from.
func (a *Animator) FPS() int { return a.fps }

// Step returns the phase increment applied by each Advance.
func (a *Animator) Step() float64 { return 2 / float64(a.fps) }

// Advance moves the phase forward one frame and publishes a new value.
func (a *Animator) Advance() FrameParameters {
	a.params = a.Peek()
	a.ticks++
	return a.params
}

// Peek returns the parameters the next Advance would publish without
// changing the animator. A renderer writes the peeked value and commits it
// only once the frame has been submitted and presented.
func (a *Animator) Peek() FrameParameters {
	// Derive the phase from the tick count so it does not drift with
	// repeated float additions.
	phase := float64(a.ticks+1) * 2 / float64(a.fps)
	return FrameParameters{Phase: phase, AnimateBy: animateBy(phase)}
}

// Commit publishes the peeked parameters. It is equivalent to Advance with
// the result discarded.
func (a *Animator) Commit() { a.Advance() }

// Current returns the last published parameters without advancing.
func (a *Animator) Current() FrameParameters { return a.params }

// Frames returns the number of published frames so far.
func (a *Animator) Frames() uint64 { return a.ticks }

func animateBy(phase float64) float32 {
	return float32(math.Abs(math.Sin(phase)/2 + 0.5))
}
