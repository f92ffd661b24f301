package backoff

import "time"

// SpreadWithRand builds a Spread drawing from r.
func SpreadWithRand(floor, ceiling time.Duration, r func() float64) Spread {
	return Spread{Floor: floor, Ceiling: ceiling, rand: r}
}
