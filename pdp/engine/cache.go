// pdp/engine/cache.go
package engine

import (
	"sync"
	"time"

	pdp_model "github.com/luishdz04/muscleup-gym/pdp/model"
)

type cachedVerdict struct {
	verdict  *pdp_model.Verdict
	storedAt time.Time
}

// VerdictCache holds recent verdicts keyed by device credential id so
// repeated taps within the TTL never re-query the policy sources.
type VerdictCache struct {
	mu      sync.RWMutex
	entries map[string]cachedVerdict
	ttl     time.Duration
}

func NewVerdictCache(ttl time.Duration) *VerdictCache {
	return &VerdictCache{
		entries: make(map[string]cachedVerdict),
		ttl:     ttl,
	}
}

// Get returns the cached verdict for a credential if it is younger
// than the TTL.
func (c *VerdictCache) Get(key string, now time.Time) *pdp_model.Verdict {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || now.Sub(entry.storedAt) >= c.ttl {
		return nil
	}
	return entry.verdict
}

func (c *VerdictCache) Set(key string, verdict *pdp_model.Verdict, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedVerdict{verdict: verdict, storedAt: now}
}

// InvalidateAll drops every cached verdict. Called after a
// reconciliation pass and after a config reload, when all previously
// cached grants and denials become suspect.
func (c *VerdictCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cachedVerdict)
}

// Len reports the number of cached entries.
func (c *VerdictCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
