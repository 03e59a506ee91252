// Package throttle gates traversals to at most one per interval.
package throttle

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the reference minimum gap between traversals.
const DefaultInterval = 500 * time.Millisecond

// Limiter admits a call only if at least interval has elapsed since the last
// admitted call. Denied calls leave no trace: nothing is queued or coalesced.
//
// A token bucket with burst 1 refilling one token per interval gives exactly
// that rule; rate.Limiter also does its own locking.
type Limiter struct {
	interval time.Duration
	lim      *rate.Limiter
}

// New returns a limiter with the given interval. A non-positive interval
// admits every call.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{interval: 0, lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{
		interval: interval,
		lim:      rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Allow reports whether a traversal may run at now, and if so records now as
// the last admitted time.
func (l *Limiter) Allow(now time.Time) bool {
	return l.lim.AllowN(now, 1)
}

// Interval returns the configured minimum gap.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}
