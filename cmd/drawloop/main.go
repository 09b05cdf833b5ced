// Command drawloop renders one of the built-in variants, or a YAML-configured
// geometry, for a number of display ticks on a headless backend.
//
// Usage:
//
//	drawloop -variant animated-quad -frames 120 -backend software -snapshot quad.png
//	drawloop -config scene.yaml -realtime
//	drawloop -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/gogpu/drawloop"
	"github.com/gogpu/drawloop/loop"
	"github.com/gogpu/drawloop/render"
	"github.com/gogpu/drawloop/surface"
)

const (
	viewOffscreen = "offscreen"
	viewSurface   = "surface"
)

type options struct {
	config   string
	variant  string
	frames   uint64
	fps      int
	backend  string
	view     string
	width    uint
	height   uint
	realtime bool
	snapshot string
	scale    int
	spirv    bool
	progress bool
	verbose  bool
	list     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("drawloop", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.config, "config", "", "YAML renderer configuration file")
	fs.StringVar(&o.variant, "variant", drawloop.VariantQuad,
		"built-in variant ("+strings.Join(drawloop.Variants(), ", ")+")")
	fs.Uint64Var(&o.frames, "frames", 120, "number of display ticks, 0 runs until interrupted")
	fs.IntVar(&o.fps, "fps", 0, "tick rate, overrides the configuration")
	fs.StringVar(&o.backend, "backend", "", "headless backend (noop, software), default is the best available")
	fs.StringVar(&o.view, "view", viewOffscreen, "presentation view (offscreen, surface)")
	fs.UintVar(&o.width, "width", 256, "drawable width")
	fs.UintVar(&o.height, "height", 256, "drawable height")
	fs.BoolVar(&o.realtime, "realtime", false, "pace ticks at the tick rate instead of back to back")
	fs.StringVar(&o.snapshot, "snapshot", "", "write the last frame as PNG (software backend)")
	fs.IntVar(&o.scale, "scale", 1, "snapshot scale factor")
	fs.BoolVar(&o.spirv, "spirv", false, "hand the device SPIR-V instead of WGSL")
	fs.BoolVar(&o.progress, "progress", true, "show a progress bar")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.BoolVar(&o.list, "list", false, "list variants and backends, then exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.view != viewOffscreen && o.view != viewSurface {
		return o, fmt.Errorf("unknown view %q", o.view)
	}
	return o, nil
}

func loadConfig(o options) (drawloop.Config, error) {
	var (
		cfg drawloop.Config
		err error
	)
	if o.config != "" {
		cfg, err = drawloop.LoadConfig(o.config)
	} else {
		cfg, err = drawloop.VariantConfig(o.variant)
	}
	if err != nil {
		return cfg, err
	}
	if o.fps > 0 {
		cfg.TargetFPS = o.fps
	}
	return cfg, cfg.Validate()
}

// presenter is a view that can also be resized, read back and released.
type presenter interface {
	render.View
	render.Resizer
	Snapshot() (*image.RGBA, error)
	Destroy()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	drawloop.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	if o.list {
		fmt.Fprintf(stdout, "variants: %s\n", strings.Join(drawloop.Variants(), ", "))
		fmt.Fprintf(stdout, "backends: %s\n", strings.Join(render.Backends().Available(), ", "))
		return nil
	}

	cfg, err := loadConfig(o)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	dev, err := render.OpenBackend(o.backend, cfg.PixelFormat)
	if err != nil {
		return err
	}
	defer dev.Destroy()

	view, err := openView(dev, o, cfg)
	if err != nil {
		return err
	}
	defer view.Destroy()

	var ropts []render.Option
	if o.spirv {
		ropts = append(ropts, render.WithSPIRV())
	}
	r, err := render.NewFromProvider(dev, cfg, ropts...)
	if err != nil {
		return err
	}
	defer r.Destroy()

	driverOpts := []loop.Option{
		loop.WithFPS(cfg.TargetFPS),
		loop.WithFrames(o.frames),
		loop.WithRealtime(o.realtime),
	}
	if o.progress {
		total := int64(o.frames)
		if o.frames == 0 {
			total = -1
		}
		bar := progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetDescription(cfg.Name),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		driverOpts = append(driverOpts, loop.WithObserver(func(drawloop.FrameResult) { _ = bar.Add(1) }))
	}

	st := loop.New(driverOpts...).Run(ctx, loop.Render(r, view))
	printStats(stdout, dev, cfg, st)

	if o.snapshot != "" && st.Submitted > 0 {
		img, err := view.Snapshot()
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if err := surface.SavePNG(o.snapshot, img, o.scale); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "snapshot: %s\n", o.snapshot)
	}

	if !r.Ready() {
		return r.Err()
	}
	return nil
}

func openView(dev *render.HeadlessDevice, o options, cfg drawloop.Config) (presenter, error) {
	device, _, err := render.HalDevices(dev)
	if err != nil {
		return nil, err
	}
	w, h := uint32(o.width), uint32(o.height)

	if o.view == viewOffscreen {
		off, err := surface.NewOffscreen(device, w, h, cfg.PixelFormat, cfg.ClearColor)
		if err != nil {
			return nil, err
		}
		return off, nil
	}

	surf, err := dev.Instance().CreateSurface(0, 0)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	win, err := surface.NewWindow(device, surf, w, h, cfg.PixelFormat, cfg.ClearColor)
	if err != nil {
		surf.Destroy()
		return nil, err
	}
	return win, nil
}

func printStats(w io.Writer, dev *render.HeadlessDevice, cfg drawloop.Config, st loop.Stats) {
	info := dev.AdapterInfo()
	fmt.Fprintf(w, "renderer: %s on %s (%s, %s)\n", cfg.Name, info.Name, dev.Name(), cfg.PixelFormat)
	fmt.Fprintf(w, "ticks: %d submitted: %d skipped: %d elapsed: %s (%.1f ticks/s)\n",
		st.Ticks, st.Submitted, st.SkippedTotal(), st.Elapsed.Round(time.Millisecond), st.Rate())
	for _, reason := range drawloop.SkipReasons {
		if n := st.Skipped[reason]; n > 0 {
			fmt.Fprintf(w, "  skipped %s: %d\n", reason, n)
		}
	}
	if st.Interrupted {
		fmt.Fprintln(w, "interrupted")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		stop()
		log.Fatalf("drawloop: %v", err)
	}
}
