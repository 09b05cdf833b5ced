package drawloop

import "fmt"

// SkipReason explains why a display tick produced no frame.
type SkipReason uint8

const (
	// SkipNone is the reason of a submitted frame.
	SkipNone SkipReason = iota

	// SkipNoPipeline means the pipeline build failed, so the render path is
	// permanently disabled.
	SkipNoPipeline

	// SkipNoDrawable means the view had no drawable this tick.
	SkipNoDrawable

	// SkipNoPassTarget means the view had no render pass target this tick.
	SkipNoPassTarget

	// SkipEncoderUnavailable means no command encoder could be obtained.
	SkipEncoderUnavailable

	// SkipSubmitFailed means encoding, submission or presentation failed.
	SkipSubmitFailed
)

// SkipReasons lists every reason a frame can be skipped.
var SkipReasons = []SkipReason{
	SkipNoPipeline,
	SkipNoDrawable,
	SkipNoPassTarget,
	SkipEncoderUnavailable,
	SkipSubmitFailed,
}

// String returns the reason name.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "None"
	case SkipNoPipeline:
		return "NoPipeline"
	case SkipNoDrawable:
		return "NoDrawable"
	case SkipNoPassTarget:
		return "NoPassTarget"
	case SkipEncoderUnavailable:
		return "EncoderUnavailable"
	case SkipSubmitFailed:
		return "SubmitFailed"
	default:
		return fmt.Sprintf("SkipReason(%d)", uint8(r))
	}
}

// Logged reports whether skipping for r emits a log line. Missing
// pipelines, drawables and pass targets are routine and stay silent.
func (r SkipReason) Logged() bool {
	return r == SkipEncoderUnavailable || r == SkipSubmitFailed
}

// FrameResult is the outcome of one display tick.
type FrameResult struct {
	// Frame is the 1-based sequence number of a submitted frame, 0 when skipped.
	Frame uint64

	// Reason is SkipNone for submitted frames.
	Reason SkipReason
}

// FrameSubmitted returns the result of a submitted frame.
func FrameSubmitted(frame uint64) FrameResult {
	return FrameResult{Frame: frame}
}

// FrameSkipped returns the result of a skipped tick.
func FrameSkipped(reason SkipReason) FrameResult {
	return FrameResult{Reason: reason}
}

// Submitted reports whether the frame was submitted to the device.
func (r FrameResult) Submitted() bool { return r.Reason == SkipNone }

// Skipped reports whether the tick was dropped.
func (r FrameResult) Skipped() bool { return r.Reason != SkipNone }

func (r FrameResult) String() string {
	if r.Submitted() {
		return fmt.Sprintf("Submitted(%d)", r.Frame)
	}
	return fmt.Sprintf("Skipped(%s)", r.Reason)
}
