/**
 * @description
 * Brute-force protection for login endpoints. Each login identity gets a small
 * number of free retries; after those are spent, every further failure locks the
 * identity out for an exponentially growing wait (5 minutes doubling up to 1 hour).
 * Failure history expires after 24 hours of quiet, and a successful login clears
 * it immediately.
 */

package app

import (
	"context"
	"log"
	"time"
)

const (
	loginGuardFreeRetries   = 5
	loginGuardMinWait       = 5 * time.Minute
	loginGuardMaxWait       = time.Hour
	loginGuardFailureExpiry = 24 * time.Hour
)

// LoginGuard tracks failed login attempts per identity on top of a LimiterStore.
// All methods fail open: a counter backend outage is logged but never blocks a
// legitimate login.
type LoginGuard struct {
	store LimiterStore
}

func NewLoginGuard(store LimiterStore) *LoginGuard {
	return &LoginGuard{store: store}
}

func failureKey(identity string) string { return "login_guard:failures:" + identity }
func lockKey(identity string) string    { return "login_guard:lock:" + identity }

// Check reports whether the identity is currently locked out and, if so, for how
// much longer.
func (g *LoginGuard) Check(ctx context.Context, identity string) (blocked bool, retryAfter time.Duration) {
	if g == nil || g.store == nil || identity == "" {
		return false, 0
	}

	count, ttl, err := g.store.Peek(ctx, lockKey(identity))
	if err != nil {
		log.Printf("level=warn component=login_guard msg=\"lock check failed, allowing attempt\" error=%q", err)
		return false, 0
	}
	if count > 0 {
		return true, ttl
	}
	return false, 0
}

// RecordFailure notes a failed attempt. Once the free retries are exhausted each
// additional failure arms a lock whose duration doubles per failure, capped at the
// maximum wait.
func (g *LoginGuard) RecordFailure(ctx context.Context, identity string) {
	if g == nil || g.store == nil || identity == "" {
		return
	}

	failures, _, err := g.store.Increment(ctx, failureKey(identity), loginGuardFailureExpiry)
	if err != nil {
		log.Printf("level=warn component=login_guard msg=\"failure count update failed\" error=%q", err)
		return
	}
	if failures <= loginGuardFreeRetries {
		return
	}

	// Exponential backoff over the failures past the free allowance.
	excess := failures - loginGuardFreeRetries
	wait := loginGuardMinWait
	for i := int64(1); i < excess && wait < loginGuardMaxWait; i++ {
		wait *= 2
	}
	if wait > loginGuardMaxWait {
		wait = loginGuardMaxWait
	}

	if err := g.store.Reset(ctx, lockKey(identity)); err != nil {
		log.Printf("level=warn component=login_guard msg=\"lock reset failed\" error=%q", err)
	}
	if _, _, err := g.store.Increment(ctx, lockKey(identity), wait); err != nil {
		log.Printf("level=warn component=login_guard msg=\"lock arm failed\" error=%q", err)
	}
}

// RecordSuccess clears all failure history for the identity.
func (g *LoginGuard) RecordSuccess(ctx context.Context, identity string) {
	if g == nil || g.store == nil || identity == "" {
		return
	}
	if err := g.store.Reset(ctx, failureKey(identity)); err != nil {
		log.Printf("level=warn component=login_guard msg=\"failure reset failed\" error=%q", err)
	}
	if err := g.store.Reset(ctx, lockKey(identity)); err != nil {
		log.Printf("level=warn component=login_guard msg=\"lock reset failed\" error=%q", err)
	}
}
