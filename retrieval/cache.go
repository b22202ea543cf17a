package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultCacheTTL     = 5 * time.Minute
	defaultCacheEntries = 1000
)

type cacheEntry struct {
	context  AssembledContext
	cachedAt time.Time
}

// CacheStats reports the cache's operational state.
type CacheStats struct {
	TotalEntries    int     `json:"totalEntries"`
	ValidEntries    int     `json:"validEntries"`
	ExpiredEntries  int     `json:"expiredEntries"`
	HitRateEstimate float64 `json:"hitRateEstimate"`
}

// contextCache memoizes assembled contexts by request key. Entries are
// immutable once written; expiry is lazy on Get, and Put sweeps expired
// entries once the entry count exceeds capacity. The capacity is a memory
// bound heuristic, not a hard cap: live entries are never evicted.
type contextCache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	capacity int
	now      func() time.Time
	hits     uint64
	misses   uint64
}

func newContextCache(ttl time.Duration, capacity int, now func() time.Time) *contextCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if capacity <= 0 {
		capacity = defaultCacheEntries
	}
	if now == nil {
		now = time.Now
	}
	return &contextCache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		now:      now,
	}
}

// Get returns the cached context for key. An expired entry counts as a miss
// and is evicted in place.
func (c *contextCache) Get(key string) (AssembledContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return AssembledContext{}, false
	}
	if c.now().Sub(entry.cachedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return AssembledContext{}, false
	}
	c.hits++
	return entry.context, true
}

// Put stores the context under key and sweeps expired entries when the cache
// has grown past capacity.
func (c *contextCache) Put(key string, ctx AssembledContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{context: ctx, cachedAt: c.now()}

	if len(c.entries) > c.capacity {
		now := c.now()
		for k, e := range c.entries {
			if now.Sub(e.cachedAt) > c.ttl {
				delete(c.entries, k)
			}
		}
	}
}

// Clear drops every entry and resets the hit counters.
func (c *contextCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Stats counts live and expired entries and estimates the hit rate since the
// last Clear.
func (c *contextCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{TotalEntries: len(c.entries)}
	now := c.now()
	for _, e := range c.entries {
		if now.Sub(e.cachedAt) > c.ttl {
			stats.ExpiredEntries++
		} else {
			stats.ValidEntries++
		}
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		stats.HitRateEstimate = float64(c.hits) / float64(lookups)
	}
	return stats
}

// cacheKey derives a deterministic key from the request identity: owner,
// query, and every option that changes the assembled output.
func cacheKey(userID, query string, opts Options) string {
	joined := strings.Join([]string{
		userID,
		query,
		opts.ChatID,
		strconv.Itoa(opts.TokenBudget),
		strconv.FormatBool(opts.IncludeMemories),
		strconv.FormatBool(opts.IncludeMessages),
		strconv.FormatBool(opts.IncludeDocuments),
		strconv.FormatFloat(opts.MinRelevanceScore, 'f', -1, 64),
		strconv.Itoa(opts.MaxItems),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}
