package tip

import (
	"sync"
	"time"

	"github.com/noplanalderson/argus/internal/entity"
)

// ResultCache is an in-memory TTL cache of per-observable provider runs.
// It sits in front of the job store so repeated analyses of a hot
// observable skip even the database round trip.
type ResultCache struct {
	data   map[string]*resultEntry
	ttl    time.Duration
	mu     sync.RWMutex
	hits   int64
	misses int64
}

type resultEntry struct {
	results   []entity.ProviderResult
	expiresAt time.Time
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Size    int     `json:"size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	TTL     string  `json:"ttl"`
}

// NewResultCache creates a cache with a background sweep of expired entries.
func NewResultCache(ttl time.Duration) *ResultCache {
	cache := &ResultCache{
		data: make(map[string]*resultEntry),
		ttl:  ttl,
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a cached provider run.
func (c *ResultCache) Get(observable string) ([]entity.ProviderResult, bool) {
	c.mu.RLock()
	entry, exists := c.data[observable]
	c.mu.RUnlock()

	if !exists || time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		if exists {
			delete(c.data, observable)
		}
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()

	out := make([]entity.ProviderResult, len(entry.results))
	copy(out, entry.results)
	return out, true
}

// Set stores a provider run.
func (c *ResultCache) Set(observable string, results []entity.ProviderResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[observable] = &resultEntry{
		results:   results,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Delete removes one observable's cached run.
func (c *ResultCache) Delete(observable string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, observable)
}

// Clear removes all entries and resets counters.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*resultEntry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *ResultCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return CacheStats{
		Size:    len(c.data),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
		TTL:     c.ttl.String(),
	}
}

func (c *ResultCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.removeExpired()
	}
}

func (c *ResultCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for observable, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, observable)
		}
	}
}
