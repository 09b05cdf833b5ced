// Package loop drives a frame function at a display tick rate.
//
// A Driver stands in for the host's display link: it calls the frame
// function once per tick, either paced by a time.Ticker at the nominal rate
// or back to back for offline rendering, and counts the outcomes.
package loop

import (
	"context"
	"time"

	"github.com/gogpu/drawloop"
	"github.com/gogpu/drawloop/render"
)

// FrameFunc renders the frame of one tick. tick counts from 1.
type FrameFunc func(tick uint64) drawloop.FrameResult

// Drawer is implemented by render.Renderer.
type Drawer interface {
	Draw(view render.View) drawloop.FrameResult
}

// Render returns a FrameFunc drawing r into view on every tick.
func Render(r Drawer, view render.View) FrameFunc {
	return func(uint64) drawloop.FrameResult { return r.Draw(view) }
}

// Option configures a Driver.
type Option func(*Driver)

// WithFPS sets the nominal tick rate. Non-positive values select
// drawloop.DefaultTargetFPS.
func WithFPS(fps int) Option {
	return func(d *Driver) { d.fps = fps }
}

// WithFrames stops the driver after n ticks. Zero runs until the context
// is cancelled.
func WithFrames(n uint64) Option {
	return func(d *Driver) { d.frames = n }
}

// WithRealtime paces ticks with a time.Ticker instead of running them back
// to back.
func WithRealtime(realtime bool) Option {
	return func(d *Driver) { d.realtime = realtime }
}

// WithObserver calls fn after every tick with its result.
func WithObserver(fn func(drawloop.FrameResult)) Option {
	return func(d *Driver) { d.observe = fn }
}

// Driver calls a FrameFunc once per tick.
type Driver struct {
	fps      int
	frames   uint64
	realtime bool
	observe  func(drawloop.FrameResult)
}

// New returns a driver with the given options applied.
func New(opts ...Option) *Driver {
	d := &Driver{}
	for _, opt := range opts {
		opt(d)
	}
	if d.fps <= 0 {
		d.fps = drawloop.DefaultTargetFPS
	}
	return d
}

// FPS returns the nominal tick rate.
func (d *Driver) FPS() int { return d.fps }

// Interval returns the nominal time between ticks.
func (d *Driver) Interval() time.Duration { return time.Second / time.Duration(d.fps) }

// Stats summarizes a run.
type Stats struct {
	Ticks     uint64
	Submitted uint64
	Skipped   map[drawloop.SkipReason]uint64
	Elapsed   time.Duration

	// Interrupted is set when the context ended the run before the
	// requested number of frames.
	Interrupted bool
}

// SkippedTotal returns the number of skipped ticks for all reasons.
func (s Stats) SkippedTotal() uint64 {
	var n uint64
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// Rate returns the achieved ticks per second.
func (s Stats) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Ticks) / s.Elapsed.Seconds()
}

// Run calls fn once per tick until the frame count is reached or ctx is
// done. fn runs on the calling goroutine.
func (d *Driver) Run(ctx context.Context, fn FrameFunc) Stats {
	st := Stats{Skipped: make(map[drawloop.SkipReason]uint64)}
	start := time.Now()

	drawloop.Logger().Debug("loop: run started",
		"fps", d.fps,
		"frames", d.frames,
		"realtime", d.realtime,
	)

	var tick <-chan time.Time
	if d.realtime {
		ticker := time.NewTicker(d.Interval())
		defer ticker.Stop()
		tick = ticker.C
	}

	for d.frames == 0 || st.Ticks < d.frames {
		if tick != nil {
			select {
			case <-ctx.Done():
				st.Interrupted = true
				return d.finish(st, start)
			case <-tick:
			}
		} else if ctx.Err() != nil {
			st.Interrupted = true
			return d.finish(st, start)
		}

		st.Ticks++
		res := fn(st.Ticks)
		if res.Submitted() {
			st.Submitted++
		} else {
			st.Skipped[res.Reason]++
		}
		if d.observe != nil {
			d.observe(res)
		}
	}
	return d.finish(st, start)
}

func (d *Driver) finish(st Stats, start time.Time) Stats {
	st.Elapsed = time.Since(start)
	drawloop.Logger().Debug("loop: run finished",
		"ticks", st.Ticks,
		"submitted", st.Submitted,
		"skipped", st.SkippedTotal(),
		"elapsed", st.Elapsed,
	)
	return st
}
