// Package resultcache memoizes ranked results per prefix with a short TTL,
// collapsing concurrent cache misses for the same key into one ranking
// computation via singleflight.
package resultcache

import (
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/typeahead/engine/internal/ranking"
)

const userBucketCount = 64

// CacheKey identifies one cached result set. If personalization is applied
// at ranking time, UserBucket and HasUser must be part of the key — a
// coarse per-user bucket, not the raw user id, so global cache capacity
// isn't consumed one entry per distinct user (see DESIGN.md's Open Question
// decision).
type CacheKey struct {
	NormalizedPrefix string
	UserBucket       uint32
	HasUser          bool
}

// UserBucket buckets a user id into a small, fixed number of coarse
// buckets for cache keying.
func UserBucket(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return h.Sum32() % userBucketCount
}

// CacheEntry is one stored result set.
type CacheEntry struct {
	Key      CacheKey
	Results  []ranking.ScoredSuggestion
	StoredAt time.Time
}

// Cache wraps an expirable LRU keyed by CacheKey, with singleflight miss
// collapsing.
type Cache struct {
	lru   *lru.LRU[CacheKey, CacheEntry]
	group singleflight.Group
}

// New creates a Cache with the given max entry count and TTL.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 100_000
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &Cache{lru: lru.NewLRU[CacheKey, CacheEntry](maxEntries, nil, ttl)}
}

// Get returns the cached entry for key, if present and unexpired.
func (c *Cache) Get(key CacheKey) (CacheEntry, bool) {
	return c.lru.Get(key)
}

// Put stores value under key.
func (c *Cache) Put(key CacheKey, results []ranking.ScoredSuggestion, now time.Time) {
	c.lru.Add(key, CacheEntry{Key: key, Results: results, StoredAt: now})
}

// GetOrCompute returns the cached entry for key if present, otherwise calls
// compute exactly once even under concurrent callers for the same key
// (singleflight), stores the result, and returns it.
func (c *Cache) GetOrCompute(key CacheKey, now time.Time, compute func() ([]ranking.ScoredSuggestion, error)) ([]ranking.ScoredSuggestion, error) {
	if entry, ok := c.Get(key); ok {
		return entry.Results, nil
	}

	sfKey := singleflightKey(key)
	v, err, _ := c.group.Do(sfKey, func() (any, error) {
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.Put(key, results, now)
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ranking.ScoredSuggestion), nil
}

func singleflightKey(key CacheKey) string {
	var b strings.Builder
	b.WriteString(key.NormalizedPrefix)
	b.WriteByte('|')
	if key.HasUser {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(uint64(key.UserBucket), 10))
	return b.String()
}

// InvalidatePrefix removes all entries whose normalized prefix starts with
// prefix.
func (c *Cache) InvalidatePrefix(prefix string) {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key.NormalizedPrefix, prefix) {
			c.lru.Remove(key)
		}
	}
}

// Purge wipes the entire cache. Used conservatively by the pipeline on
// per-shard apply, and by the admin control plane's ClearCache.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
