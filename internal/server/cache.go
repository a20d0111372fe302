package server

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"
)

// ZoneCache is a concurrent-safe LRU cache of rendered zone responses with
// TTL expiration.
type ZoneCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64

	now func() time.Time
}

type cacheEntry struct {
	body        []byte
	contentType string
	createdAt   time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewZoneCache creates a cache holding up to maxEntries responses for ttl.
// A non-positive maxEntries disables caching.
func NewZoneCache(maxEntries int, ttl time.Duration) *ZoneCache {
	return &ZoneCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// cacheKey fingerprints the parts of a request that determine its response.
func cacheKey(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a cached response, or ok=false on miss or expiry.
func (c *ZoneCache) Get(key string) (body []byte, contentType string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[key]
	if !found {
		c.misses.Add(1)
		return nil, "", false
	}
	if c.ttl > 0 && c.now().Sub(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil, "", false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.body, entry.contentType, true
}

// Put stores a response, evicting the least recently used entry when full.
func (c *ZoneCache) Put(key string, body []byte, contentType string) {
	if c.maxEntries <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.removeFromOrder(key)
	} else {
		for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[key] = &cacheEntry{body: body, contentType: contentType, createdAt: c.now()}
	c.order = append(c.order, key)
}

// Purge removes every entry.
func (c *ZoneCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
}

// Stats returns cache performance statistics.
func (c *ZoneCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *ZoneCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
