// Command bradbury renders a random sphere scene progressively and saves
// the result as PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/bradbury"
	"github.com/gogpu/bradbury/backend"
	_ "github.com/gogpu/bradbury/backend/software" // CPU backend
	_ "github.com/gogpu/bradbury/backend/wgpu"     // Pure Go WebGPU backend
	"github.com/gogpu/bradbury/scene"
)

type config struct {
	width, height int
	samples       uint
	seed          uint64
	backend       string
	env           string
	scene         string
	saveScene     string
	output        string
	window        bool
	interval      time.Duration
	notify        bool
}

func main() {
	var cfg config
	flag.IntVar(&cfg.width, "width", 800, "image width")
	flag.IntVar(&cfg.height, "height", 450, "image height")
	flag.UintVar(&cfg.samples, "samples", 256, "samples per pixel (0 renders until interrupted)")
	flag.Uint64Var(&cfg.seed, "seed", 0, "random seed (0 picks one)")
	flag.StringVar(&cfg.backend, "backend", "auto", "compute backend: auto, wgpu or software")
	flag.StringVar(&cfg.env, "env", "", "environment map (.hdr, .png, .jpg, .bmp, .tiff or .webp)")
	flag.StringVar(&cfg.scene, "scene", "", "scene JSON to render instead of a random scene")
	flag.StringVar(&cfg.saveScene, "save-scene", "", "write the rendered scene as JSON")
	flag.StringVar(&cfg.output, "output", "render.png", "output file")
	flag.BoolVar(&cfg.window, "window", false, "show progress in a window")
	flag.DurationVar(&cfg.interval, "interval", bradbury.DefaultPublishInterval, "minimum time between progress images")
	flag.BoolVar(&cfg.notify, "notify", false, "wait for frames through completion notifications")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	if *verbose {
		bradbury.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("bradbury: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	dev, err := openDevice(cfg.backend)
	if err != nil {
		return err
	}
	defer dev.Close()
	log.Printf("Using %s backend on %s", dev.Name(), dev.Info().Name)

	seed := cfg.seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	s, err := loadScene(cfg.scene, rng)
	if err != nil {
		return err
	}
	if cfg.saveScene != "" {
		if err := scene.Save(cfg.saveScene, s); err != nil {
			return err
		}
	}

	opts := []bradbury.Option{
		bradbury.WithRand(rng),
		bradbury.WithScene(s),
		bradbury.WithPublishInterval(cfg.interval),
		bradbury.WithMaxSamples(uint32(cfg.samples)),
	}
	if cfg.env != "" {
		opts = append(opts, bradbury.WithEnvironment(cfg.env))
	}
	if cfg.notify {
		opts = append(opts, bradbury.WithCompletion(bradbury.CompletionNotify))
	}

	var v *viewer
	if cfg.window {
		v = newViewer(cfg.width, cfg.height)
		opts = append(opts, bradbury.WithCallback(v.Show))
	}

	r, err := bradbury.New(dev, cfg.width, cfg.height, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	if v != nil {
		err = runWithViewer(ctx, r, v)
	} else {
		err = r.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if err := savePNG(r, cfg.output); err != nil {
		return err
	}
	report(r, seed, cfg.output)
	return nil
}

func openDevice(name string) (backend.Device, error) {
	if name == "" || name == "auto" {
		return backend.OpenDefault()
	}
	return backend.Open(name)
}

func loadScene(path string, rng *rand.Rand) (*scene.Scene, error) {
	if path == "" {
		return scene.Build(rng), nil
	}
	return scene.Load(path)
}

// runWithViewer renders in the background while the window runs on the
// main goroutine. Closing the window stops the render.
func runWithViewer(ctx context.Context, r *bradbury.Renderer, v *viewer) error {
	renderCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(renderCtx) }()

	if err := v.Run(ctx, r); err != nil {
		log.Printf("Viewer stopped: %v", err)
	}
	cancel()
	return <-done
}

func savePNG(r *bradbury.Renderer, path string) error {
	img, err := r.Snapshot(context.Background())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func report(r *bradbury.Renderer, seed uint64, path string) {
	st := r.Stats()
	p := message.NewPrinter(language.English)
	p.Printf("Saved %s: %d samples per pixel in %v (%.1f samples/s, seed %d, %d previews)\n",
		path, st.Samples, st.Elapsed.Round(time.Millisecond), st.SamplesPerSecond(), seed, st.Published)
}
