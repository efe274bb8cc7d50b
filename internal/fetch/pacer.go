package fetch

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between consecutive calls. The limit
// is global across callers, matching the upstream contract: it applies per
// client, not per connection. Waiters hold the lock while sleeping, so
// concurrent callers are serialized rather than released in a burst.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewPacer creates a Pacer with the given minimum interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the interval since the previous call has elapsed, or
// returns early with the context error on cancellation. The first call
// never waits.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		remaining := p.interval - time.Since(p.last)
		if remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.last = time.Now()
	return nil
}
