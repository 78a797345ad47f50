package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned by Budget.Use once an engine has spent its calls.
var ErrBudgetExhausted = errors.New("request budget exhausted")

// Pacer spaces calls at least every apart. The first call passes immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer with burst 1. A non-positive interval disables pacing.
func NewPacer(every time.Duration) *Pacer {
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// Budget counts calls per engine against a shared per-engine cap for one run.
type Budget struct {
	mu   sync.Mutex
	max  int
	used map[string]int
}

// NewBudget creates a budget allowing max calls per engine. Zero means unlimited.
func NewBudget(max int) *Budget {
	return &Budget{
		max:  max,
		used: make(map[string]int),
	}
}

// Use records one call for engine, or fails without recording when the cap is reached.
func (b *Budget) Use(engine string) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max > 0 && b.used[engine] >= b.max {
		return fmt.Errorf("%s: %w (%d/%d)", engine, ErrBudgetExhausted, b.used[engine], b.max)
	}
	b.used[engine]++
	return nil
}

// Remaining reports how many calls engine has left, or -1 when unlimited.
func (b *Budget) Remaining(engine string) int {
	if b == nil || b.max <= 0 {
		return -1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max - b.used[engine]
}

// GetStats returns current usage per engine.
func (b *Budget) GetStats() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := make(map[string]int, len(b.used))
	for k, v := range b.used {
		stats[k] = v
	}
	return stats
}
