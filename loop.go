// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bradbury

import (
	"context"
	"time"
)

// Run renders frames until ctx is canceled, a frame fails, or the
// sample limit set with WithMaxSamples is reached.
//
// Run is meant to own a goroutine:
//
//	go func() {
//	    if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	        log.Printf("render loop stopped: %v", err)
//	    }
//	}()
//
// It returns ctx.Err() on cancellation, the frame error on failure and
// nil when the sample limit is reached. Accumulated samples are kept in
// every case.
func (r *Renderer) Run(ctx context.Context) error {
	var pause *time.Timer
	defer func() {
		if pause != nil {
			pause.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Render(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			Logger().Error("bradbury: render loop stopped", "samples", r.SampleCount(), "err", err)
			return err
		}
		if limit := r.opts.maxSamples; limit > 0 && r.SampleCount() >= limit {
			return nil
		}

		if r.opts.pacing <= 0 {
			continue
		}
		if pause == nil {
			pause = time.NewTimer(r.opts.pacing)
		} else {
			pause.Reset(r.opts.pacing)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pause.C:
		}
	}
}

// Stats summarizes the frames rendered so far.
type Stats struct {
	// Samples is the number of samples per pixel accumulated.
	Samples uint32
	// LastFrame is the wall time of the most recent frame, including
	// the wait for completion and any publish.
	LastFrame time.Duration
	// Elapsed is the time since the first frame started.
	Elapsed time.Duration
	// Published is the number of images handed to the callback.
	Published uint64
	// Skipped is the number of due publishes dropped by a failed readback.
	Skipped uint64
}

// SamplesPerSecond is the mean frame rate since the first frame.
func (s Stats) SamplesPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Samples) / s.Elapsed.Seconds()
}

// stats tracks frame timing and logs a summary every interval frames.
type stats struct {
	now      Clock
	interval int

	started   time.Time
	samples   uint32
	lastFrame time.Duration
}

func newStats(now Clock, interval int) *stats {
	return &stats{now: now, interval: interval}
}

func (s *stats) frame(samples uint32, d time.Duration, published bool) {
	if s.started.IsZero() {
		s.started = s.now().Add(-d)
	}
	s.samples = samples
	s.lastFrame = d

	if s.interval > 0 && samples%uint32(s.interval) == 0 {
		elapsed := s.now().Sub(s.started)
		Logger().Info("bradbury: progress",
			"samples", samples,
			"frame", d,
			"elapsed", elapsed.Round(time.Millisecond),
			"published", published,
		)
	}
}

func (s *stats) snapshot(p *Publisher) Stats {
	st := Stats{
		Samples:   s.samples,
		LastFrame: s.lastFrame,
		Published: p.Published(),
		Skipped:   p.Skipped(),
	}
	if !s.started.IsZero() {
		st.Elapsed = s.now().Sub(s.started)
	}
	return st
}
