// Package backoff paces resubmissions of calls that lost a USN race.
//
// A lifecycle call fails with docflow.ErrWrongUSN when another caller
// committed a transition on the same instance first. The loser rereads
// the USN and submits again; the delay in between keeps a crowd of losers
// from colliding on the next slot as well.
package backoff

import (
	"math/rand/v2"
	"time"

	"github.com/xraph/docflow"
)

// Strategy computes the delay before a resubmission.
type Strategy interface {
	// Delay returns how long to wait before resubmission n (1-indexed).
	Delay(attempt int) time.Duration
}

// Fixed waits the same interval before every resubmission.
type Fixed time.Duration

// Delay returns the interval.
func (f Fixed) Delay(int) time.Duration { return time.Duration(f) }

// Spread waits a random duration between Floor and a window that doubles
// with every lost race, capped at Ceiling. Callers that lost the same
// race draw different delays and land on different slots.
type Spread struct {
	Floor   time.Duration
	Ceiling time.Duration

	// rand returns a value in [0, 1). Nil uses math/rand/v2.
	rand func() float64
}

// Window returns the upper bound of the delay for attempt.
func (s Spread) Window(attempt int) time.Duration {
	w := s.Floor
	for i := 1; i < attempt && w < s.Ceiling; i++ {
		w *= 2
	}
	if w > s.Ceiling {
		w = s.Ceiling
	}
	return w
}

// Delay returns a value in [Floor, Window(attempt)].
func (s Spread) Delay(attempt int) time.Duration {
	w := s.Window(attempt)
	if w <= s.Floor {
		return s.Floor
	}
	r := s.rand
	if r == nil {
		r = rand.Float64 //nolint:gosec // jitter does not need crypto rand
	}
	return s.Floor + time.Duration(r()*float64(w-s.Floor))
}

// FromConfig returns the strategy cfg describes: Spread between
// ResubmitFloor and ResubmitCeiling, or Fixed at ResubmitFloor when the
// two coincide.
func FromConfig(cfg docflow.Config) Strategy {
	if cfg.ResubmitCeiling <= cfg.ResubmitFloor {
		return Fixed(cfg.ResubmitFloor)
	}
	return Spread{Floor: cfg.ResubmitFloor, Ceiling: cfg.ResubmitCeiling}
}
