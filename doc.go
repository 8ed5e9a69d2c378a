// Package bradbury is a progressive Monte Carlo path tracer driven from
// the host by a compute kernel.
//
// # Overview
//
// A [Renderer] owns the GPU side of a render: the compute pipeline, an
// accumulation texture, an 8-bit output texture, the scene buffer and a
// per-frame noise buffer. Every call to [Renderer.Render] dispatches the
// kernel once over the whole image. The kernel adds one radiance sample
// per pixel to the running average in the accumulation texture and
// writes the tone-mapped result to the output texture. The image
// converges as frames accumulate; it is never reset.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/bradbury"
//	    "github.com/gogpu/bradbury/backend"
//	    _ "github.com/gogpu/bradbury/backend/software"
//	    _ "github.com/gogpu/bradbury/backend/wgpu"
//	)
//
//	dev, err := backend.OpenDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	r, err := bradbury.New(dev, 800, 600,
//	    bradbury.WithCallback(func(img *image.RGBA) { show(img) }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	go r.Run(ctx)
//
// # Publishing
//
// After each frame completes the renderer offers the output to a
// [Publisher]. The publisher is throttled (one image per second by
// default, see [WithPublishInterval]); when it is due it reads the
// output texture back and hands the callback a detached *image.RGBA.
// Accumulation never waits for the consumer.
//
// # Logging
//
// bradbury is silent by default. Use [SetLogger] to route diagnostics to
// a log/slog logger; devices that accept a logger receive it too.
package bradbury
