package drawloop

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestAnimatorPhaseAccumulates(t *testing.T) {
	for _, fps := range []int{30, 60, 120} {
		a := NewAnimator(fps)
		const n = 500
		var p FrameParameters
		for range n {
			p = a.Advance()
		}
		want := 2 * float64(n) / float64(fps)
		if math.Abs(p.Phase-want) > 1e-9 {
			t.Errorf("fps=%d: phase after %d advances = %v, want %v", fps, n, p.Phase, want)
		}
		if a.Frames() != n {
			t.Errorf("fps=%d: Frames() = %d, want %d", fps, a.Frames(), n)
		}
	}
}

func TestAnimatorValueInRange(t *testing.T) {
	a := NewAnimator(60)
	for i := range 2000 {
		p := a.Advance()
		if p.AnimateBy < 0 || p.AnimateBy > 1 {
			t.Fatalf("frame %d: AnimateBy = %v, outside [0, 1]", i, p.AnimateBy)
		}
		want := math.Abs(math.Sin(p.Phase)/2 + 0.5)
		if math.Abs(float64(p.AnimateBy)-want) > 1e-6 {
			t.Fatalf("frame %d: AnimateBy = %v, want %v", i, p.AnimateBy, want)
		}
	}
}

func TestAnimatorContinuous(t *testing.T) {
	// d/dt (sin(t)/2) is at most 1/2, so consecutive values differ by at
	// most step/2.
	a := NewAnimator(60)
	limit := a.Step()/2 + 1e-6
	prev := a.Current().AnimateBy
	var lo, hi float32 = 1, 0
	for i := range 1000 {
		cur := a.Advance().AnimateBy
		if d := math.Abs(float64(cur - prev)); d > limit {
			t.Fatalf("frame %d: jump %v exceeds %v", i, d, limit)
		}
		lo, hi = min(lo, cur), max(hi, cur)
		prev = cur
	}
	// 1000 frames at 60 fps covers several periods.
	if lo > 0.01 || hi < 0.99 {
		t.Errorf("value range [%v, %v] does not sweep [0, 1]", lo, hi)
	}
}

func TestAnimatorCurrentDoesNotAdvance(t *testing.T) {
	a := NewAnimator(60)
	if got := a.Current().AnimateBy; got != 0.5 {
		t.Errorf("initial AnimateBy = %v, want 0.5", got)
	}
	p := a.Advance()
	for range 3 {
		if got := a.Current(); got != p {
			t.Errorf("Current() = %+v, want %+v", got, p)
		}
	}
	if a.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", a.Frames())
	}
}

func TestAnimatorPeekDoesNotPublish(t *testing.T) {
	a := NewAnimator(30)
	before := a.Current()
	next := a.Peek()
	for range 3 {
		if got := a.Peek(); got != next {
			t.Errorf("Peek() = %+v, want %+v", got, next)
		}
	}
	if a.Current() != before || a.Frames() != 0 {
		t.Fatalf("Peek changed state: Current() = %+v, Frames() = %d", a.Current(), a.Frames())
	}
	if want := 2.0 / 30; math.Abs(next.Phase-want) > 1e-12 {
		t.Errorf("peeked phase = %v, want %v", next.Phase, want)
	}

	a.Commit()
	if a.Current() != next || a.Frames() != 1 {
		t.Errorf("after Commit: Current() = %+v, Frames() = %d, want %+v, 1", a.Current(), a.Frames(), next)
	}
}

func TestNewAnimatorDefaultFPS(t *testing.T) {
	if got := NewAnimator(0).FPS(); got != DefaultTargetFPS {
		t.Errorf("NewAnimator(0).FPS() = %d, want %d", got, DefaultTargetFPS)
	}
	if got := NewAnimator(-1).Step(); got != 2.0/DefaultTargetFPS {
		t.Errorf("NewAnimator(-1).Step() = %v, want %v", got, 2.0/DefaultTargetFPS)
	}
}

func TestFrameParametersBytes(t *testing.T) {
	b := FrameParameters{AnimateBy: 0.25}.Bytes()
	if len(b) != UniformSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), UniformSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b)); got != 0.25 {
		t.Errorf("encoded AnimateBy = %v, want 0.25", got)
	}
	for i, v := range b[4:] {
		if v != 0 {
			t.Errorf("padding byte %d = %d, want 0", i+4, v)
		}
	}
}
