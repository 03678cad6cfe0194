// Package builder implements the offline/periodic full rebuild: given a
// deterministic snapshot, it builds a fresh trie per shard and publishes it
// via an atomic handle swap so concurrent readers never see a
// partially-built generation.
package builder

import (
	"fmt"
	"sort"
	"time"

	"github.com/typeahead/engine/internal/shard"
	"github.com/typeahead/engine/internal/shardrouter"
	"github.com/typeahead/engine/internal/trie"
)

// Entry is one row of a rebuild snapshot, as produced by an external batch
// aggregator.
type Entry struct {
	Phrase      string
	Count       int64
	LastUpdated time.Time
}

// ErrFatalSnapshot is returned when a snapshot entry is missing a
// last_updated timestamp. The builder refuses to substitute "now" for a
// missing timestamp — see DESIGN.md's Open Question decision — since doing
// so would silently corrupt the recency signal for that phrase.
var ErrFatalSnapshot = fmt.Errorf("builder: snapshot entry missing last_updated")

// Generation is the set of newly-built per-shard tries produced by one
// Build call, keyed by shard id.
type Generation struct {
	Shards map[int]*trie.Trie
}

// Build sorts entries by (count desc, phrase asc), routes each phrase to its
// shard, and inserts in that order so every node's top-K list is maintained
// by push-then-truncate, per spec's determinism guarantee.
func Build(entries []Entry, router *shardrouter.Router, topKPerNode int) (*Generation, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	for _, e := range sorted {
		if e.LastUpdated.IsZero() {
			return nil, ErrFatalSnapshot
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Count != sorted[j].Count {
			return sorted[i].Count > sorted[j].Count
		}
		return sorted[i].Phrase < sorted[j].Phrase
	})

	tries := make(map[int]*trie.Trie, router.ShardCount())
	for id := 0; id < router.ShardCount(); id++ {
		tries[id] = trie.New(topKPerNode)
	}

	trieEntries := make(map[int][]trie.Entry, router.ShardCount())
	for _, e := range sorted {
		id, ok := router.Route(e.Phrase)
		if !ok {
			continue
		}
		trieEntries[id] = append(trieEntries[id], trie.Entry{
			Phrase:      e.Phrase,
			Count:       e.Count,
			LastUpdated: e.LastUpdated,
		})
	}

	shards := make(map[int]*trie.Trie, router.ShardCount())
	for id := 0; id < router.ShardCount(); id++ {
		shards[id] = trie.RebuildFrom(trieEntries[id], topKPerNode)
	}

	return &Generation{Shards: shards}, nil
}

// Swapper publishes a Generation's per-shard tries onto the live shards via
// Shard.Publish's atomic handle swap.
type Swapper struct {
	shards map[int]*shard.Shard
}

// NewSwapper creates a Swapper over the given live shards, keyed by shard id.
func NewSwapper(shards map[int]*shard.Shard) *Swapper {
	return &Swapper{shards: shards}
}

// Publish swaps each shard's generation in gen onto the corresponding live
// shard. A shard id present in gen but not in the Swapper's shard set is
// skipped (shard topology changed underneath the builder, which Build
// itself would already have prevented by sizing Generation to the
// router's current shard count).
func (s *Swapper) Publish(gen *Generation) {
	for id, tr := range gen.Shards {
		if live, ok := s.shards[id]; ok {
			live.Publish(tr)
		}
	}
}
