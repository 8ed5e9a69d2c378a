// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bradbury

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/bradbury/backend"
)

// Publisher hands the rendered image to a consumer at a bounded rate.
//
// The throttle is checked before any readback, so frames that are not
// published cost no GPU-to-host transfer. A failed readback skips the
// frame and leaves the throttle untouched, so the next frame retries.
//
// Publisher is not safe for concurrent use; the renderer calls it from
// the goroutine running Render.
type Publisher struct {
	interval time.Duration
	now      Clock
	callback func(*image.RGBA)

	last      time.Time
	published uint64
	skipped   uint64
}

// NewPublisher creates a publisher that calls callback at most once per
// interval. A nil clock uses time.Now.
func NewPublisher(interval time.Duration, now Clock, callback func(*image.RGBA)) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{interval: interval, now: now, callback: callback}
}

// Due reports whether enough time has passed since the last publish.
func (p *Publisher) Due() bool {
	if p.published == 0 {
		return true
	}
	return p.now().Sub(p.last) >= p.interval
}

// Publish reads tex back and invokes the callback if a publish is due.
// It reports whether an image was published.
func (p *Publisher) Publish(ctx context.Context, tex backend.Texture) bool {
	if p.callback == nil || !p.Due() {
		return false
	}
	img, err := readImage(ctx, tex)
	if err != nil {
		p.skipped++
		Logger().Debug("bradbury: publish skipped", "err", err)
		return false
	}
	p.last = p.now()
	p.published++
	p.callback(img)
	return true
}

// Published returns the number of images handed to the callback.
func (p *Publisher) Published() uint64 { return p.published }

// Skipped returns the number of due publishes dropped by a failed readback.
func (p *Publisher) Skipped() uint64 { return p.skipped }

// readImage copies an RGBA8 texture into a new image. The image shares
// no memory with the texture or with earlier images.
func readImage(ctx context.Context, tex backend.Texture) (*image.RGBA, error) {
	if tex.Format() != backend.TextureFormatRGBA8Unorm {
		return nil, fmt.Errorf("bradbury: read image: format %v, want %v", tex.Format(), backend.TextureFormatRGBA8Unorm)
	}
	img := image.NewRGBA(image.Rect(0, 0, int(tex.Width()), int(tex.Height())))
	if err := tex.Read(ctx, img.Pix); err != nil {
		return nil, fmt.Errorf("bradbury: read image: %w", err)
	}
	return img, nil
}
