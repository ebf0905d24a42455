// Package ratelimit enforces a minimum spacing between outbound calls that
// share a budget, regardless of how many goroutines are submitting.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Budget serializes dispatches so that the wall-clock gap between any two
// calls permitted through the same budget is never less than 1/rate seconds.
// Independent budgets (e.g. one for the LLM, one for the REST API) do not
// interfere with each other.
type Budget struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time // last reserved dispatch slot
}

// NewBudget creates a budget allowing ratePerSec dispatches per second.
func NewBudget(ratePerSec float64) (*Budget, error) {
	if ratePerSec <= 0 {
		return nil, fmt.Errorf("rate must be positive, got %v", ratePerSec)
	}
	return &Budget{
		interval: time.Duration(float64(time.Second) / ratePerSec),
	}, nil
}

// Wait blocks until the caller may dispatch. Each caller reserves the next
// free slot under the lock, so two goroutines can never both observe a stale
// "last call" time and proceed without waiting. Returns early with ctx.Err()
// if the context is cancelled during the sleep; the reserved slot is not
// released in that case, which only makes the budget more conservative.
func (b *Budget) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	now := time.Now()
	slot := b.last.Add(b.interval)
	if slot.Before(now) {
		slot = now
	}
	b.last = slot
	b.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the minimum spacing between dispatches.
func (b *Budget) Interval() time.Duration {
	return b.interval
}
