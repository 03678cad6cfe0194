// Package shardrouter maps a normalized prefix to exactly one shard, by
// hashing its first code point. Prefix locality falls out for free: "app"
// and "apple" share a first rune and therefore a shard.
package shardrouter

import (
	"hash/fnv"

	"github.com/typeahead/engine/internal/normalize"
)

// Router buckets normalized prefixes into shard_count shards by their first
// rune. Non-BMP code points hash the same as any other rune value — the
// FNV-1a sum is taken over the rune's UTF-8 encoding, so no special casing
// is needed for non-Latin or astral-plane prefixes (see DESIGN.md's Open
// Question decision on this point).
type Router struct {
	shardCount int
}

// New creates a Router for shardCount shards. shardCount must be positive.
func New(shardCount int) *Router {
	if shardCount <= 0 {
		shardCount = 1
	}
	return &Router{shardCount: shardCount}
}

// ShardCount returns the number of shards this router was configured with.
func (r *Router) ShardCount() int {
	return r.shardCount
}

// Route returns the shard id for prefix's first normalized rune, and false
// if prefix normalizes to empty (no shard, short-circuit to empty result).
func (r *Router) Route(prefix string) (shardID int, ok bool) {
	n := normalize.Normalize(prefix)
	first, has := normalize.FirstRune(n)
	if !has {
		return 0, false
	}
	return r.routeRune(first), true
}

// routeRune hashes a single rune's UTF-8 bytes with FNV-1a and buckets mod
// shard_count.
func (r *Router) routeRune(c rune) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(string(c)))
	return int(h.Sum32() % uint32(r.shardCount))
}
