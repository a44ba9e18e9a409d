/*
cache.go - Short-lived official-balance cache

PURPOSE:
  Caches the external provider's official balance per employee for a small
  TTL so dashboard reloads do not hammer the system of record. Read paths
  only: every lifecycle transition reads the provider live, and processing
  invalidates the employee's entry after a deduction.

SEE ALSO:
  - views.go: cachedBalanceFor is the only reader
  - engine.go: Process calls Invalidate
*/
package vacation

import (
	"sync"
	"time"
)

// =============================================================================
// BALANCE CACHE - Short-lived official-balance cache for read paths
// =============================================================================

// BalanceCache caches the provider result per employee for a short TTL so
// dashboard reloads do not hammer the external system. Lifecycle
// transitions never read through it; processing invalidates the entry.
type BalanceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[EmployeeID]balanceCacheEntry
}

type balanceCacheEntry struct {
	result  BalanceResult
	expires time.Time
}

func NewBalanceCache(ttl time.Duration) *BalanceCache {
	return &BalanceCache{
		ttl:     ttl,
		entries: make(map[EmployeeID]balanceCacheEntry),
	}
}

func (c *BalanceCache) Get(id EmployeeID) (BalanceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok || time.Now().After(entry.expires) {
		delete(c.entries, id)
		return BalanceResult{}, false
	}
	return entry.result, true
}

func (c *BalanceCache) Put(id EmployeeID, result BalanceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = balanceCacheEntry{result: result, expires: time.Now().Add(c.ttl)}
}

func (c *BalanceCache) Invalidate(id EmployeeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}
