package httpapi

import (
	"sync"
	"time"
)

// ipRateLimiter is a token-bucket limiter keyed by client IP. Buckets refill
// continuously; the tracked-IP set is bounded with least-recently-seen
// eviction so hostile traffic cannot grow it without limit.
type ipRateLimiter struct {
	mu sync.Mutex

	refillPerSecond float64
	burst           float64
	maxTracked      int

	buckets map[string]*ipBucket
}

type ipBucket struct {
	tokens   float64
	lastSeen time.Time
}

func newIPRateLimiter(refillPerSecond, burst float64, maxTracked int) *ipRateLimiter {
	return &ipRateLimiter{
		refillPerSecond: refillPerSecond,
		burst:           burst,
		maxTracked:      maxTracked,
		buckets:         make(map[string]*ipBucket),
	}
}

func (l *ipRateLimiter) Allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= l.maxTracked {
			l.evictOldest()
		}
		b = &ipBucket{tokens: l.burst}
		l.buckets[ip] = b
	} else {
		elapsed := now.Sub(b.lastSeen).Seconds()
		if elapsed > 0 {
			b.tokens += elapsed * l.refillPerSecond
			if b.tokens > l.burst {
				b.tokens = l.burst
			}
		}
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *ipRateLimiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		first     = true
	)
	for key, b := range l.buckets {
		if first || b.lastSeen.Before(oldest) {
			oldestKey = key
			oldest = b.lastSeen
			first = false
		}
	}
	if !first {
		delete(l.buckets, oldestKey)
	}
}
