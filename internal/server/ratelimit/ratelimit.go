// Package ratelimit throttles API clients with per-client token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// idleAfter is how long an untouched bucket is kept before it is swept.
const idleAfter = time.Hour

// bucket refills continuously at rate tokens per second up to capacity.
type bucket struct {
	capacity float64
	rate     float64
	tokens   float64
	last     time.Time
}

func (b *bucket) refill(now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	}
	b.last = now
}

// take consumes one token if available and reports how long until the next
// token when it is not.
func (b *bucket) take(now time.Time) (bool, time.Duration) {
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	missing := 1 - b.tokens
	return false, time.Duration(missing / b.rate * float64(time.Second))
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter tracks one bucket per client and rule.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewLimiter builds a limiter. A zero Config disables limiting.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Enabled reports whether requests are limited at all.
func (l *Limiter) Enabled() bool {
	return l != nil && l.cfg.Enabled
}

// Allow decides whether client may call method path now.
func (l *Limiter) Allow(client, method, path string) Decision {
	if !l.Enabled() || l.cfg.Exempt[client] {
		return Decision{Allowed: true}
	}
	rule := l.cfg.ruleFor(method, path)
	if rule.Limit <= 0 {
		return Decision{Allowed: true}
	}

	now := l.now()
	key := client + " " + rule.Method + " " + rule.Path

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			capacity: float64(rule.burst()),
			rate:     float64(rule.Limit) / rule.Window.Seconds(),
			tokens:   float64(rule.burst()),
			last:     now,
		}
		l.buckets[key] = b
	}
	allowed, retry := b.take(now)
	return Decision{
		Allowed:    allowed,
		Limit:      rule.Limit,
		Remaining:  int(b.tokens),
		RetryAfter: retry,
	}
}

// sweep drops buckets idle for longer than idleAfter. Callers hold l.mu.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleAfter {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.last) > idleAfter {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
