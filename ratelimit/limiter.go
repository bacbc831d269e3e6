// Package ratelimit provides per-client admission control for chat requests.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter is how long an idle client bucket is kept before it is swept.
const staleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter admits or rejects requests per client identifier using a token
// bucket that refills to full capacity over one minute. Buckets are created
// lazily on first use and swept after staleAfter of inactivity so the map
// stays bounded.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

// New creates a limiter allowing perMinute requests per client per minute.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &Limiter{
		perMinute: perMinute,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow reports whether the client may proceed, consuming one token when it
// can. The first call for an unknown client is always admitted; rejection is
// immediate with no side effects beyond bucket bookkeeping.
func (l *Limiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > staleAfter {
		l.sweepLocked(now)
	}

	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute),
		}
		l.buckets[clientID] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// PerMinute returns the configured admission rate.
func (l *Limiter) PerMinute() int {
	return l.perMinute
}

// sweepLocked drops buckets idle for longer than staleAfter.
func (l *Limiter) sweepLocked(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleAfter {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}
