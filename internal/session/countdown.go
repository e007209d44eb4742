package session

import (
	"context"
	"sync"
	"time"
)

// Countdown drives the client-visible remaining-time display for an active
// session. It is strictly cosmetic: the server rejects expired tokens on its
// own, and the timeout callback only issues a courtesy End("timeout").
type Countdown struct {
	expiresAt time.Time
	interval  time.Duration
	now       func() time.Time
	onTick    func(remaining time.Duration)
	onTimeout func()

	stopOnce sync.Once
	stop     chan struct{}
}

// NewCountdown constructs a countdown recomputing the remaining lifetime once
// per second. onTick and onTimeout may be nil.
func NewCountdown(expiresAt time.Time, onTick func(time.Duration), onTimeout func()) *Countdown {
	return &Countdown{
		expiresAt: expiresAt,
		interval:  time.Second,
		now:       time.Now,
		onTick:    onTick,
		onTimeout: onTimeout,
		stop:      make(chan struct{}),
	}
}

// Run ticks until the session expires, the context ends, or Stop is called.
// Remaining time is recomputed from the clock on every tick rather than
// decremented, so a suspended process does not drift.
func (c *Countdown) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			remaining := c.expiresAt.Sub(c.now())
			if remaining <= 0 {
				if c.onTimeout != nil {
					c.onTimeout()
				}
				return
			}
			if c.onTick != nil {
				c.onTick(remaining)
			}
		}
	}
}

// Stop disposes the countdown. Safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
