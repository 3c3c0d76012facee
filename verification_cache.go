package solanashop

import (
	"context"
	"strings"
	"sync"
	"time"
)

// VerificationCache remembers successful verifications for a while and
// collapses concurrent lookups of the same reference into one ledger query.
// Only successes are cached: a reference that is not found yet may be paid
// a moment later.
type VerificationCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	pending map[string]chan struct{}
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	result  VerifyResult
	expires time.Time
}

// NewVerificationCache creates a cache keeping results for ttl
func NewVerificationCache(ttl time.Duration) *VerificationCache {
	return &VerificationCache{
		entries: make(map[string]cacheEntry),
		pending: make(map[string]chan struct{}),
		ttl:     ttl,
		now:     time.Now,
	}
}

// VerificationKey builds the cache key for a reference and a normalized amount
func VerificationKey(reference, amount string) string {
	return strings.TrimSpace(reference) + ":" + amount
}

// CacheStatus is the answer of CheckAndMark
type CacheStatus int

const (
	// StatusNotFound: the caller now owns the key and must Complete or Fail it
	StatusNotFound CacheStatus = iota
	// StatusCached: a live result was returned
	StatusCached
	// StatusInFlight: another caller owns the key; wait on the channel
	StatusInFlight
)

func (s CacheStatus) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusInFlight:
		return "in_flight"
	default:
		return "not_found"
	}
}

// CheckAndMark looks key up and, when there is neither a live result nor an
// owner, makes the caller its owner. The channel is the owner's completion
// signal for StatusNotFound and StatusInFlight, nil for StatusCached.
func (c *VerificationCache) CheckAndMark(key string) (CacheStatus, *VerifyResult, chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result := c.lookupLocked(key); result != nil {
		return StatusCached, result, nil
	}
	if done, ok := c.pending[key]; ok {
		return StatusInFlight, nil, done
	}

	done := make(chan struct{})
	c.pending[key] = done
	return StatusNotFound, nil, done
}

// WaitForResult blocks until the owner of key finishes. The result is nil
// when the owner failed.
func (c *VerificationCache) WaitForResult(ctx context.Context, key string, done chan struct{}) (*VerifyResult, error) {
	select {
	case <-done:
		return c.Get(key), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the live result for key, or nil
func (c *VerificationCache) Get(key string) *VerifyResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookupLocked(key)
}

func (c *VerificationCache) lookupLocked(key string) *VerifyResult {
	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, key)
		return nil
	}
	result := entry.result
	return &result
}

// Complete stores result for key, releases waiters and drops stale entries
func (c *VerificationCache) Complete(key string, result *VerifyResult, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if !now.Before(entry.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{result: *result, expires: now.Add(c.ttl)}

	delete(c.pending, key)
	close(done)
}

// Fail releases waiters without storing anything
func (c *VerificationCache) Fail(key string, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, key)
	close(done)
}

// Len returns the number of stored entries, stale ones included
func (c *VerificationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
