package resource

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds scoring limits.
type Config struct {
	// MaxParallel is the maximum number of concurrent fits.
	// If 0, defaults to GOMAXPROCS.
	MaxParallel int64

	// RatePerSec is the maximum number of fits started per second.
	// If 0, unlimited.
	RatePerSec float64
}

// Controller gates fits through a semaphore and an optional rate limiter.
type Controller struct {
	cfg Config

	sem     *semaphore.Weighted
	limiter *rate.Limiter // nil if unlimited
}

// NewController creates a new controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxParallel),
	}

	if cfg.RatePerSec > 0 {
		burst := int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}

	return c
}

// Acquire blocks until a fit may start. Every successful Acquire must be paired with
// Release.
func (c *Controller) Acquire(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return c.sem.Acquire(ctx, 1)
}

// Release frees a slot.
func (c *Controller) Release() {
	if c == nil {
		return
	}
	c.sem.Release(1)
}

// Do runs fn inside an acquired slot.
func (c *Controller) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := c.Acquire(ctx); err != nil {
		return err
	}
	defer c.Release()
	return fn(ctx)
}

// MaxParallel returns the configured concurrency (0 for a nil controller).
func (c *Controller) MaxParallel() int {
	if c == nil {
		return 0
	}
	return int(c.cfg.MaxParallel)
}
