package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"market-gateway/src/logger"
)

// -----------------------------------------------------------------------------
// ClientLimiter
// -----------------------------------------------------------------------------

// ClientLimiter is a per-client-identity token bucket. Capacity and refill
// rate both derive from one requests-per-minute figure: a full bucket holds
// one minute's worth of requests and refills at perMinute/60 tokens per
// second. Buckets are created lazily on first sight of an identity and aged
// out after IdleTTL without traffic.
type ClientLimiter struct {
	Logger *logger.Logger

	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	buckets map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// -----------------------------------------------------------------------------

func NewClientLimiter(perMinute int, idleTTL time.Duration, log *logger.Logger) *ClientLimiter {
	return &ClientLimiter{
		Logger:  log,
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
		idleTTL: idleTTL,
		buckets: make(map[string]*clientBucket),
	}
}

// -----------------------------------------------------------------------------

// Allow consumes one token for the identity if available. A rejected check
// consumes nothing.
func (l *ClientLimiter) Allow(identity string) bool {
	l.mu.Lock()
	bucket, exists := l.buckets[identity]
	if !exists {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[identity] = bucket
	}
	bucket.lastSeen = time.Now()
	l.mu.Unlock()

	// The limiter has its own lock; the map lock is not held across checks
	// so unrelated identities never serialize on each other.
	return bucket.limiter.Allow()
}

// -----------------------------------------------------------------------------

// Len returns the number of tracked identities.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// -----------------------------------------------------------------------------

// Prune drops buckets idle longer than the configured TTL and returns how
// many were removed. A pruned identity that returns starts with a full
// bucket, which only errs in the client's favour.
func (l *ClientLimiter) Prune() int {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for identity, bucket := range l.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(l.buckets, identity)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

// StartJanitor prunes idle buckets periodically until ctx is cancelled.
func (l *ClientLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := l.Prune(); removed > 0 {
					l.Logger.Debug("Rate limiter pruned %d idle buckets", removed)
				}
			}
		}
	}()
}
