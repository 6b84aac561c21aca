package auth

import (
	"context"
	"sync"
	"time"
)

// Limiter gates authenticated requests before they reach the MCP
// handler. Implementations fail open: a broken limiter degrades to
// unlimited, not to an outage.
type Limiter interface {
	Allow(ctx context.Context, id *Identity) error
}

// TierLimiter enforces per-minute request budgets by service tier using
// in-process token buckets. One orchestrate call can fan out to several
// models, so budgets count inbound requests, not provider calls. A tier
// without a configured budget (or with a budget of zero) is unlimited.
//
// Buckets are keyed by tenant, subject, and tier, so the same subject
// acting in two tenants spends two budgets.
type TierLimiter struct {
	limits     map[string]int
	defaultRPM int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTierLimiter creates a limiter from a tier-to-budget map. defaultRPM
// applies to tiers missing from the map; zero means unlimited.
func NewTierLimiter(limits map[string]int, defaultRPM int) *TierLimiter {
	return &TierLimiter{
		limits:     limits,
		defaultRPM: defaultRPM,
		buckets:    make(map[string]*bucket),
	}
}

// tierOf resolves an identity's budget tier.
func tierOf(id *Identity) string {
	if id.Tier == "" {
		return "default"
	}
	return id.Tier
}

// Allow spends one token from the caller's bucket, refilling at the
// tier's per-minute rate.
func (l *TierLimiter) Allow(_ context.Context, id *Identity) error {
	tier := tierOf(id)
	rpm, ok := l.limits[tier]
	if !ok {
		rpm = l.defaultRPM
	}
	if rpm <= 0 {
		return nil
	}

	key := id.Tenant + "/" + id.Subject + "/" + tier
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rpm), last: now}
		l.buckets[key] = b
	}

	// Refill continuously, capped at one minute's budget.
	b.tokens += now.Sub(b.last).Minutes() * float64(rpm)
	if b.tokens > float64(rpm) {
		b.tokens = float64(rpm)
	}
	b.last = now

	if b.tokens < 1 {
		return ErrTooManyRequests
	}
	b.tokens--
	return nil
}
