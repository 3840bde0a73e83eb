package netio

import "time"

// RateLimiter enforces a minimum inter-probe send interval, releasing
// queued sends FIFO as the interval elapses (spec.md §4.2 "Rate limit").
// A single permit is minted per interval; it is not a bucket that
// accumulates unused permits, matching "a minimum inter-probe delay
// parameter" rather than a burst-tolerant token bucket.
type RateLimiter struct {
	interval   time.Duration
	nextPermit time.Time
	armed      bool
}

// NewRateLimiter builds a limiter from the CLI's raw delay value: a value
// <= 10 is interpreted as a number of seconds, > 10 as milliseconds
// (spec.md §4.2, matching the `-z` option's `opt_store_double_lim_en`
// parsing in the original, which allows fractional values either way,
// e.g. -z 0.5 for a 500ms delay).
func NewRateLimiter(raw float64) *RateLimiter {
	var interval time.Duration
	switch {
	case raw <= 0:
		interval = 0
	case raw <= 10:
		interval = time.Duration(raw * float64(time.Second))
	default:
		interval = time.Duration(raw * float64(time.Millisecond))
	}
	return &RateLimiter{interval: interval}
}

// Allow reports whether a send may proceed at now. On success it starts
// the next interval; callers that get false must queue the send and
// retry at NextPermit().
func (r *RateLimiter) Allow(now time.Time) bool {
	if r.interval == 0 {
		return true
	}
	if r.armed && now.Before(r.nextPermit) {
		return false
	}
	r.nextPermit = now.Add(r.interval)
	r.armed = true
	return true
}

// NextPermit reports when the next send may proceed, valid only after at
// least one Allow call when interval > 0.
func (r *RateLimiter) NextPermit() (time.Time, bool) {
	if r.interval == 0 || !r.armed {
		return time.Time{}, false
	}
	return r.nextPermit, true
}
