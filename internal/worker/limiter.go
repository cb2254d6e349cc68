package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long a key may go unused before its limiter is evicted
const DefaultIdleTTL = 10 * time.Minute

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
	pinned   bool
}

// Limiter implements per-key rate limiting. Keys are opaque: the API uses the
// client address, the explainer uses the provider name.
// Keys idle for longer than the idle TTL are swept when new keys arrive, so
// the map stays bounded by the number of recently active clients. Keys given
// a custom rate through SetKeyRate are never swept.
type Limiter struct {
	limiters     map[string]*keyLimiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
	idleTTL      time.Duration
	lastSweep    time.Time
	now          func() time.Time
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*keyLimiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
		idleTTL:      DefaultIdleTTL,
		lastSweep:    time.Now(),
		now:          time.Now,
	}
}

// SetIdleTTL changes how long an unused key is kept. Zero or negative
// disables eviction.
func (l *Limiter) SetIdleTTL(ttl time.Duration) {
	l.mu.Lock()
	l.idleTTL = ttl
	l.mu.Unlock()
}

// Wait blocks until key may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// getLimiter returns the rate limiter for a key
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	now := l.now()

	l.mu.RLock()
	entry, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists := l.limiters[key]; exists {
		entry.lastSeen.Store(now.UnixNano())
		return entry.limiter
	}

	if l.idleTTL > 0 && now.Sub(l.lastSweep) >= l.idleTTL {
		l.pruneLocked(now, l.idleTTL)
	}

	entry = &keyLimiter{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
	entry.lastSeen.Store(now.UnixNano())
	l.limiters[key] = entry

	return entry.limiter
}

// SetKeyRate sets a custom rate limit for a specific key
func (l *Limiter) SetKeyRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	entry := &keyLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst), pinned: true}
	entry.lastSeen.Store(l.now().UnixNano())
	l.limiters[key] = entry
}

// Prune drops every unpinned key unused for at least idle and returns how
// many were removed
func (l *Limiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pruneLocked(l.now(), idle)
}

func (l *Limiter) pruneLocked(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle).UnixNano()
	removed := 0
	for key, entry := range l.limiters {
		if entry.pinned {
			continue
		}
		if entry.lastSeen.Load() <= cutoff {
			delete(l.limiters, key)
			removed++
		}
	}
	l.lastSweep = now
	return removed
}

// Forget drops the limiter for key
func (l *Limiter) Forget(key string) {
	l.mu.Lock()
	delete(l.limiters, key)
	l.mu.Unlock()
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
