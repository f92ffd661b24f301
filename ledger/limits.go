package ledger

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/xraph/docflow"
	"github.com/xraph/docflow/id"
)

// CallerLimit caps how fast a single caller may submit.
type CallerLimit struct {
	// Caller the limit applies to.
	Caller id.UserID

	// Rate is the sustained calls per second. Zero removes the limit.
	Rate float64

	// Burst is the token-bucket size. Defaults to 1 when Rate is set.
	Burst int
}

// limits gates admission to the ledger: an optional global limiter that
// callers wait on, and per-caller limiters that reject immediately.
type limits struct {
	mu      sync.Mutex
	global  *rate.Limiter
	callers map[string]*rate.Limiter
}

func newLimiter(r float64, burst int) *rate.Limiter {
	if r <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(r), burst)
}

func newLimits(r float64, burst int) *limits {
	return &limits{
		global:  newLimiter(r, burst),
		callers: make(map[string]*rate.Limiter),
	}
}

func (l *limits) set(cfg CallerLimit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := cfg.Caller.String()
	if lim := newLimiter(cfg.Rate, cfg.Burst); lim != nil {
		l.callers[key] = lim
	} else {
		delete(l.callers, key)
	}
}

// admit reserves capacity for one call from caller.
func (l *limits) admit(ctx context.Context, caller id.UserID) error {
	l.mu.Lock()
	lim := l.callers[caller.String()]
	l.mu.Unlock()

	if lim != nil && !lim.Allow() {
		return fmt.Errorf("%w: caller %s", docflow.ErrRateLimited, caller)
	}
	if l.global != nil {
		if err := l.global.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", docflow.ErrRateLimited, err)
		}
	}
	return nil
}
