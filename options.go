package bradbury

import (
	"image"
	"math/rand/v2"
	"time"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/envmap"
	"github.com/gogpu/bradbury/internal/kernel"
	"github.com/gogpu/bradbury/noise"
	"github.com/gogpu/bradbury/scene"
)

// Default configuration values.
const (
	// DefaultPublishInterval is the minimum time between two published images.
	DefaultPublishInterval = time.Second
	// DefaultPacing is the pause Run takes between frames.
	DefaultPacing = time.Millisecond
	// DefaultStatsInterval is the number of frames between two stats log lines.
	DefaultStatsInterval = 100
)

// CompletionMode selects how the renderer waits for a frame to finish.
type CompletionMode uint8

const (
	// CompletionBlocking blocks on the completion of each submission.
	CompletionBlocking CompletionMode = iota
	// CompletionNotify waits on the completion notification channel.
	CompletionNotify
)

// String returns the mode name.
func (m CompletionMode) String() string {
	switch m {
	case CompletionBlocking:
		return "blocking"
	case CompletionNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// EnvironmentLoader loads an environment map from path into a texture on dev.
// The returned texture must be an RGBA32F texture readable by the kernel.
type EnvironmentLoader func(dev backend.Device, path string) (backend.Texture, error)

// Clock returns the current time. It is injectable for tests.
type Clock func() time.Time

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := bradbury.New(dev, 800, 600,
//	    bradbury.WithRand(rand.New(rand.NewPCG(1, 2))),
//	    bradbury.WithPublishInterval(500*time.Millisecond),
//	    bradbury.WithCallback(show),
//	)
type Option func(*options)

type options struct {
	rng             *rand.Rand
	scene           *scene.Scene
	environment     string
	loader          EnvironmentLoader
	noiseSize       int
	completion      CompletionMode
	publishInterval time.Duration
	clock           Clock
	callback        func(*image.RGBA)
	pacing          time.Duration
	statsInterval   int
	maxSamples      uint32

	program    string
	entryPoint string
}

func defaultOptions() options {
	return options{
		loader:          envmap.Loader,
		noiseSize:       noise.DefaultSize,
		completion:      CompletionBlocking,
		publishInterval: DefaultPublishInterval,
		clock:           time.Now,
		pacing:          DefaultPacing,
		statsInterval:   DefaultStatsInterval,
		program:         kernel.ProgramRender,
		entryPoint:      kernel.EntryRender,
	}
}

// WithRand sets the random source used for the scene, the noise buffer
// and the per-frame noise offset. A seeded generator makes a render
// reproducible. By default a randomly seeded PCG is used.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithScene renders s instead of a freshly built random scene.
func WithScene(s *scene.Scene) Option {
	return func(o *options) {
		o.scene = s
	}
}

// WithEnvironment loads the environment map at path through the
// environment loader. Without it, rays that escape the scene see a
// gradient sky.
func WithEnvironment(path string) Option {
	return func(o *options) {
		o.environment = path
	}
}

// WithEnvironmentLoader replaces the environment loader (default
// [envmap.Loader]).
func WithEnvironmentLoader(l EnvironmentLoader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithNoiseSize sets the number of floats in the noise buffer
// (default [noise.DefaultSize]).
func WithNoiseSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.noiseSize = n
		}
	}
}

// WithCompletion selects the completion mode (default CompletionBlocking).
func WithCompletion(m CompletionMode) Option {
	return func(o *options) {
		o.completion = m
	}
}

// WithPublishInterval sets the minimum time between published images.
// Zero publishes after every frame.
func WithPublishInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.publishInterval = d
		}
	}
}

// WithClock sets the clock used for publish throttling and stats.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithCallback sets the function that receives published images. It is
// called on the goroutine running Render and owns the image it receives.
func WithCallback(fn func(*image.RGBA)) Option {
	return func(o *options) {
		o.callback = fn
	}
}

// WithPacing sets the pause Run takes between frames (default 1ms).
func WithPacing(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.pacing = d
		}
	}
}

// WithStatsInterval logs frame statistics every n frames. Zero disables
// the stats log.
func WithStatsInterval(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.statsInterval = n
		}
	}
}

// WithMaxSamples makes Run return once n samples per pixel have been
// accumulated. Zero means no limit.
func WithMaxSamples(n uint32) Option {
	return func(o *options) {
		o.maxSamples = n
	}
}
