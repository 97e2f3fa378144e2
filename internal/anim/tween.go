// Package anim drives the exit-price animation as an explicit tween
// task: start value, end value, duration and easing, sampled on a
// frame ticker. Purely cosmetic; settlement is decided before any
// tween starts.
package anim

import (
	"math"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one animation frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Ease maps normalized progress k in [0,1] to eased progress.
type Ease func(k float64) float64

// EaseOutCubic decelerates toward the target.
func EaseOutCubic(k float64) float64 {
	return 1 - math.Pow(1-k, 3)
}

// Tween interpolates from Start to End over Duration.
type Tween struct {
	Start    float64
	End      float64
	Duration time.Duration
	Ease     Ease

	// OnUpdate receives the interpolated value each frame.
	OnUpdate func(v float64)
	// OnDone receives the final value exactly once, after the last
	// frame. Not called when the tween is canceled.
	OnDone func(v float64)
}

// Runner plays at most one tween at a time. Starting a new tween
// cancels the running one.
type Runner struct {
	interval time.Duration

	mu     sync.Mutex
	cancel chan struct{}
}

// NewRunner creates a runner sampling at the given frame interval
// (DefaultFrameInterval when zero).
func NewRunner(interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Runner{interval: interval}
}

// Play starts tw, canceling any tween already in flight.
func (r *Runner) Play(tw Tween) {
	if tw.Ease == nil {
		tw.Ease = EaseOutCubic
	}
	if tw.Duration <= 0 {
		tw.Duration = r.interval
	}

	r.mu.Lock()
	if r.cancel != nil {
		close(r.cancel)
	}
	done := make(chan struct{})
	r.cancel = done
	r.mu.Unlock()

	go r.run(tw, done)
}

// Cancel stops the running tween, if any. Its OnDone is not called.
func (r *Runner) Cancel() {
	r.mu.Lock()
	if r.cancel != nil {
		close(r.cancel)
		r.cancel = nil
	}
	r.mu.Unlock()
}

func (r *Runner) run(tw Tween, cancel <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	t0 := time.Now()
	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			k := float64(now.Sub(t0)) / float64(tw.Duration)
			if k > 1 {
				k = 1
			}
			v := tw.Start + (tw.End-tw.Start)*tw.Ease(k)
			if tw.OnUpdate != nil {
				tw.OnUpdate(v)
			}
			if k >= 1 {
				if tw.OnDone != nil {
					tw.OnDone(v)
				}
				return
			}
		}
	}
}
