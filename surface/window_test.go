package surface

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/drawloop"
	"github.com/gogpu/drawloop/internal/gputest"
	"github.com/gogpu/drawloop/render"
)

// recordingSurface counts acquire and discard calls on a noop surface.
type recordingSurface struct {
	hal.Surface
	acquireErr   error
	acquires     int
	discards     int
	configures   int
	unconfigured int
	destroyed    int
}

func (s *recordingSurface) Configure(d hal.Device, c *hal.SurfaceConfiguration) error {
	s.configures++
	return s.Surface.Configure(d, c)
}

func (s *recordingSurface) Unconfigure(d hal.Device) {
	s.unconfigured++
	s.Surface.Unconfigure(d)
}

func (s *recordingSurface) AcquireTexture(f hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.acquires++
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.Surface.AcquireTexture(f)
}

func (s *recordingSurface) DiscardTexture(tex hal.SurfaceTexture) {
	s.discards++
	s.Surface.DiscardTexture(tex)
}

func (s *recordingSurface) Destroy() { s.destroyed++ }

func newNoopWindow(t *testing.T, w, h uint32) (*Window, *recordingSurface, *gputest.Device, *gputest.Queue) {
	t.Helper()
	device, queue := gputest.NewNoopDevice(t)
	dev := gputest.NewDevice(device)
	q := gputest.NewQueue(queue)
	surf := &recordingSurface{Surface: &noop.Surface{}}
	win, err := NewWindow(dev, surf, w, h, 0, drawloop.DefaultClearColor)
	if err != nil {
		t.Fatal(err)
	}
	return win, surf, dev, q
}

func TestNewWindowErrors(t *testing.T) {
	device, _ := gputest.NewNoopDevice(t)
	if _, err := NewWindow(nil, &noop.Surface{}, 1, 1, 0, gputypes.Color{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device: err = %v", err)
	}
	if _, err := NewWindow(device, nil, 1, 1, 0, gputypes.Color{}); !errors.Is(err, ErrNilSurface) {
		t.Errorf("nil surface: err = %v", err)
	}
}

func TestWindowAcquiresOncePerTick(t *testing.T) {
	win, surf, _, q := newNoopWindow(t, 32, 32)

	d := win.CurrentDrawable()
	if d == nil {
		t.Fatal("CurrentDrawable() = nil")
	}
	if win.CurrentDrawable() != d {
		t.Error("second call in one tick returned a new drawable")
	}
	if surf.acquires != 1 {
		t.Errorf("acquires = %d, want 1", surf.acquires)
	}

	if err := d.Present(q); err != nil {
		t.Fatal(err)
	}
	if q.Presents() != 1 || win.Presents() != 1 {
		t.Errorf("queue presents %d, window presents %d", q.Presents(), win.Presents())
	}
	if err := d.Present(q); err != nil || q.Presents() != 1 {
		t.Error("presenting a finished drawable reached the queue")
	}

	if win.CurrentDrawable() == d {
		t.Error("next tick reused a presented drawable")
	}
	if surf.acquires != 2 {
		t.Errorf("acquires = %d, want 2", surf.acquires)
	}
}

func TestWindowDiscard(t *testing.T) {
	win, surf, dev, _ := newNoopWindow(t, 8, 8)

	d := win.CurrentDrawable()
	d.Discard()
	d.Discard()
	if surf.discards != 1 || win.Discards() != 1 {
		t.Errorf("surface discards %d, window discards %d, want 1", surf.discards, win.Discards())
	}
	if live := dev.Live(); live["TextureView"] != 0 {
		t.Errorf("view leaked: %v", live)
	}
}

func TestWindowZeroArea(t *testing.T) {
	win, surf, _, _ := newNoopWindow(t, 0, 600)

	if win.Configured() {
		t.Error("zero-area window is configured")
	}
	if win.CurrentDrawable() != nil || win.CurrentPassTarget() != nil {
		t.Error("zero-area window offered a frame")
	}
	if surf.acquires != 0 {
		t.Error("zero-area window acquired a texture")
	}

	if err := win.Resize(800, 600); err != nil {
		t.Fatal(err)
	}
	if !win.Configured() || win.CurrentDrawable() == nil {
		t.Error("window not usable after resize")
	}

	// Shrinking to zero while a drawable is held discards it.
	if err := win.Resize(800, 0); err != nil {
		t.Fatal(err)
	}
	if surf.discards != 1 || surf.unconfigured != 1 {
		t.Errorf("discards %d unconfigured %d, want 1/1", surf.discards, surf.unconfigured)
	}
}

func TestWindowAcquireFailure(t *testing.T) {
	win, surf, _, _ := newNoopWindow(t, 8, 8)
	configures := surf.configures

	surf.acquireErr = hal.ErrSurfaceOutdated
	if win.CurrentDrawable() != nil {
		t.Fatal("drawable returned after failed acquire")
	}
	if surf.configures != configures+1 {
		t.Error("outdated surface not reconfigured")
	}

	surf.acquireErr = hal.ErrTimeout
	if win.CurrentDrawable() != nil {
		t.Fatal("drawable returned after timeout")
	}
	surf.acquireErr = nil
	if win.CurrentDrawable() == nil {
		t.Error("no drawable after recovery")
	}
}

func TestWindowPresentFailure(t *testing.T) {
	win, surf, dev, q := newNoopWindow(t, 8, 8)
	q.PresentErr = gputest.ErrInjected

	d := win.CurrentDrawable()
	if err := d.Present(q); !errors.Is(err, gputest.ErrInjected) {
		t.Errorf("err = %v, want injected failure", err)
	}
	if win.Presents() != 0 {
		t.Error("failed present counted")
	}
	// The unpresented texture goes back to the surface exactly once, even
	// when the caller also discards the drawable afterwards.
	d.Discard()
	if surf.discards != 1 || win.Discards() != 1 {
		t.Errorf("surface discards %d, window discards %d, want 1", surf.discards, win.Discards())
	}
	if win.CurrentDrawable() == d {
		t.Error("next tick reused the failed drawable")
	}
	if live := dev.Live(); live["TextureView"] != 0 {
		t.Errorf("view leaked: %v", live)
	}
}

func TestWindowDestroy(t *testing.T) {
	win, surf, _, _ := newNoopWindow(t, 8, 8)
	win.CurrentDrawable()

	win.Destroy()
	win.Destroy()
	if surf.discards != 1 || surf.unconfigured != 1 || surf.destroyed != 1 {
		t.Errorf("discards %d unconfigured %d destroyed %d, want 1/1/1",
			surf.discards, surf.unconfigured, surf.destroyed)
	}
}

func TestWindowRendererSkipsWithoutDrawable(t *testing.T) {
	win, surf, dev, q := newNoopWindow(t, 0, 0)
	r, err := render.New(dev, q, drawloop.TriangleConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	if res := r.Draw(win); res.Reason != drawloop.SkipNoDrawable {
		t.Errorf("Draw = %v, want Skipped(NoDrawable)", res)
	}
	if err := r.Resize(win, 64, 64); err != nil {
		t.Fatal(err)
	}
	if res := r.Draw(win); !res.Submitted() {
		t.Errorf("Draw after resize = %v", res)
	}
	if surf.acquires != 1 || q.Presents() != 1 {
		t.Errorf("acquires %d presents %d, want 1/1", surf.acquires, q.Presents())
	}
}

func TestWindowSoftwareSnapshot(t *testing.T) {
	hd := openSoftware(t)
	device, queue, err := render.HalDevices(hd)
	if err != nil {
		t.Fatal(err)
	}
	surf, err := hd.Instance().CreateSurface(0, 0)
	if err != nil {
		t.Fatal(err)
	}

	clear := gputypes.Color{R: 1, G: 0, B: 0, A: 1}
	win, err := NewWindow(device, surf, 8, 8, gputypes.TextureFormatBGRA8Unorm, clear)
	if err != nil {
		t.Fatal(err)
	}
	defer win.Destroy()

	r, err := render.New(device, queue, drawloop.QuadConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Destroy()

	if res := r.Draw(win); !res.Submitted() {
		t.Fatalf("Draw = %v", res)
	}
	img, err := win.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.RGBAAt(7, 7), clearRGBA(clear); got != want {
		t.Errorf("pixel = %v, want %v", got, want)
	}
}
