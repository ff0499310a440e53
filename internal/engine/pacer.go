package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum delay between successive provider calls. The delay
// counts from the end of the previous call (Done) and from the start of the
// previous call (Wait), whichever is later. The first Wait returns immediately.
// A Pacer belongs to one pipeline run and is not safe for concurrent use.
type Pacer struct {
	every rate.Limit
	lim   *rate.Limiter
}

// NewPacer returns a pacer for interval; interval <= 0 disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	return &Pacer{every: every, lim: rate.NewLimiter(every, 1)}
}

// Wait blocks until the next call may start.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}

// Done marks the end of a call. The next Wait blocks for a full interval
// from now, however long the call took.
func (p *Pacer) Done() {
	if p.every == rate.Inf {
		return
	}
	p.lim = rate.NewLimiter(p.every, 1)
	p.lim.Allow()
}
