package core

import "time"

// ActionClass is the rate-limiting category an action is counted under.
type ActionClass string

const (
	// ActionConnection counts handshakes.
	ActionConnection ActionClass = "connection"
	// ActionMessage counts chat messages and file shares.
	ActionMessage ActionClass = "message"
)

type rateKey struct {
	actorID int64
	class   ActionClass
}

// RateLimiter is a sliding-window log keyed by (actor, action class).
// It is owned by the hub goroutine and is not safe for concurrent use.
type RateLimiter struct {
	window  time.Duration
	limits  map[ActionClass]int
	buckets map[rateKey][]time.Time
}

// NewRateLimiter creates a limiter. A class with a limit <= 0 is unlimited.
func NewRateLimiter(window time.Duration, limits map[ActionClass]int) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	copied := make(map[ActionClass]int, len(limits))
	for class, limit := range limits {
		copied[class] = limit
	}
	return &RateLimiter{
		window:  window,
		limits:  copied,
		buckets: make(map[rateKey][]time.Time),
	}
}

// Allow drops timestamps that fell out of the window ending at now, then accepts
// iff fewer than limit remain. The timestamp is recorded only on acceptance.
func (r *RateLimiter) Allow(actorID int64, class ActionClass, now time.Time) bool {
	limit := r.limits[class]
	if limit <= 0 {
		return true
	}

	key := rateKey{actorID: actorID, class: class}
	kept := prune(r.buckets[key], now.Add(-r.window))
	if len(kept) >= limit {
		r.buckets[key] = kept
		return false
	}
	r.buckets[key] = append(kept, now)
	return true
}

// Sweep prunes every bucket and deletes the ones that decayed to empty.
// It returns the number of deleted buckets.
func (r *RateLimiter) Sweep(now time.Time) int {
	cutoff := now.Add(-r.window)
	removed := 0
	for key, stamps := range r.buckets {
		kept := prune(stamps, cutoff)
		if len(kept) == 0 {
			delete(r.buckets, key)
			removed++
			continue
		}
		r.buckets[key] = kept
	}
	return removed
}

// Len returns the number of live buckets.
func (r *RateLimiter) Len() int {
	return len(r.buckets)
}

// prune keeps timestamps strictly after cutoff. Stamps are appended in order,
// so the first kept index splits the slice.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	for i, ts := range stamps {
		if ts.After(cutoff) {
			return stamps[i:]
		}
	}
	return stamps[:0]
}
