package api

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// sweepThreshold is the cache size past which an insert triggers a full
// expired-entry sweep. Eviction is purely TTL-driven, not LRU.
const sweepThreshold = 50

type cacheEntry struct {
	payload    json.RawMessage
	insertedAt time.Time
}

// responseCache is a TTL cache for safe (GET) responses, keyed by
// method + full URL. Entries are checked for expiry lazily on lookup.
type responseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// get returns the cached payload for key, or nil if absent or expired.
// Expired entries are removed on the spot.
func (c *responseCache) get(key string) json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Since(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return nil
	}
	return e.payload
}

// set stores a payload. When the map would grow past the sweep threshold, all
// expired entries are purged first.
func (c *responseCache) set(key string, payload json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= sweepThreshold {
		removed := 0
		for k, e := range c.entries {
			if time.Since(e.insertedAt) > c.ttl {
				delete(c.entries, k)
				removed++
			}
		}
		if removed > 0 {
			log.Debug().Int("removed", removed).Msg("API cache sweep")
		}
	}

	c.entries[key] = cacheEntry{payload: payload, insertedAt: time.Now()}
}

func (c *responseCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *responseCache) setTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

func (c *responseCache) currentTTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl
}

func (c *responseCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
