// Package pacer spaces outbound operations at a fixed interval so the run
// never produces burst patterns that external services flag as automated
// abuse.
package pacer

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Pacer enforces a minimum delay between successive operations. The first
// Wait returns immediately; each subsequent Wait blocks until the interval
// has elapsed since the previous one.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
	jitter   float64
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithJitter adds a random extra delay of up to fraction*interval to each
// wait. A fraction of 0 disables jitter.
func WithJitter(fraction float64) Option {
	return func(p *Pacer) {
		if fraction > 0 {
			p.jitter = fraction
		}
	}
}

// New creates a Pacer with the given minimum interval between operations.
func New(interval time.Duration, opts ...Option) *Pacer {
	if interval <= 0 {
		interval = time.Second
	}
	p := &Pacer{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until the pacing interval allows the next operation, plus
// jitter if configured. It returns early with an error if ctx is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "pacer: wait")
	}
	if p.jitter > 0 {
		extra := time.Duration(rand.Float64() * p.jitter * float64(p.interval))
		t := time.NewTimer(extra)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "pacer: wait")
		case <-t.C:
		}
	}
	return nil
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
