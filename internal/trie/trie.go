// Package trie implements the prefix index shard: a rune-keyed trie where
// every node carries a pre-computed top-K list of the highest-count phrases
// in its subtree (I-TOPK), each of which has the node's root-to-node path as
// a prefix (I-PREFIX). Lookup and ApplyDelta are synchronized against each
// other by a per-Trie RWMutex, since ApplyDelta mutates a published
// generation's nodes in place; RebuildFrom builds a separate Trie wholesale
// and is published only once complete.
package trie

import (
	"sort"
	"sync"
	"time"

	"github.com/typeahead/engine/internal/engineerr"
	"github.com/typeahead/engine/internal/normalize"
)

// Suggestion is a single candidate completion as stored in a node's top-K
// list: a phrase and its cumulative popularity count.
type Suggestion struct {
	Phrase      string
	Count       int64
	LastUpdated time.Time
}

// node owns a mapping from code point to child node and the node's
// pre-computed top-K suggestion list.
type node struct {
	children map[rune]*node
	topK     []Suggestion // I-TOPK, capacity K, sorted (count desc, phrase asc)
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// MatchStrategy decides whether a stored phrase matches a query prefix, and
// with what priority. Exposed so a future approximate-matching strategy can
// be swapped in without changing Trie's contract.
type MatchStrategy interface {
	Matches(prefix, phrase string) bool
}

// ExactPrefixMatch is the only wired strategy: phrase must literally start
// with prefix.
type ExactPrefixMatch struct{}

// Matches reports whether phrase starts with prefix.
func (ExactPrefixMatch) Matches(prefix, phrase string) bool {
	return len(phrase) >= len(prefix) && phrase[:len(prefix)] == prefix
}

// FuzzyPrefixMatch is an unimplemented hook for approximate matching
// (edit-distance or transposition tolerant). Not wired by default.
// TODO: implement bounded edit-distance matching if fuzzy suggestions are
// ever required; not needed by any current caller.
type FuzzyPrefixMatch struct{}

// Matches always returns false: this strategy is a declared hook, not an
// implementation.
func (FuzzyPrefixMatch) Matches(prefix, phrase string) bool {
	return false
}

// Trie is a single shard's prefix index. K bounds each node's top-K list.
//
// mu guards every node's children map and topK slice against the one
// mutation path that touches a published generation in place: ApplyDelta
// (internal/shard calls it directly on the live generation, concurrently
// with Lookup calls from in-flight queries). Lookup takes the read lock;
// Insert, insertSorted, and ApplyDelta take the write lock. RebuildFrom
// builds into a fresh, unpublished Trie with no concurrent readers, so the
// lock there is uncontended overhead, not a correctness requirement.
type Trie struct {
	mu   sync.RWMutex
	root *node
	k    int
}

// New creates an empty Trie with per-node top-K capacity k.
func New(k int) *Trie {
	if k <= 0 {
		k = 10
	}
	return &Trie{root: newNode(), k: k}
}

// Lookup returns the stored top-K suggestions for prefix, or an empty slice
// if the prefix path does not exist. The prefix is normalized first; an
// empty normalized prefix returns an empty slice rather than an error —
// callers that need to distinguish "invalid prefix" do so before calling
// Lookup (see pkg/engine's Suggest).
func (t *Trie) Lookup(prefix string) []Suggestion {
	n := normalize.Normalize(prefix)
	if n == "" {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	cur := t.root
	for _, r := range n {
		child, ok := cur.children[r]
		if !ok {
			return nil
		}
		cur = child
	}
	out := make([]Suggestion, len(cur.topK))
	copy(out, cur.topK)
	return out
}

// Insert walks the trie along phrase's code points, creating nodes as
// needed, and updates every visited node's top-K list per the insert
// algorithm: update-or-append, re-sort by (count desc, phrase asc), truncate
// to K.
func (t *Trie) Insert(phrase string, count int64, lastUpdated time.Time) {
	n := normalize.Normalize(phrase)
	if n == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(n, count, lastUpdated, false)
}

// insertSorted is the builder's fast path: phrases arrive in (count desc,
// phrase asc) order, so each node's top-K can be maintained by
// push-then-truncate without a re-sort, as long as the node has not yet
// reached capacity K or the incoming count is not larger than what's already
// there (both hold when the caller iterates a pre-sorted snapshot).
func (t *Trie) insertSorted(phrase string, count int64, lastUpdated time.Time) {
	n := normalize.Normalize(phrase)
	if n == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(n, count, lastUpdated, true)
}

// insertLocked is the shared insert walk used by Insert, insertSorted, and
// ApplyDelta. Callers must hold t.mu for writing.
func (t *Trie) insertLocked(normalizedPhrase string, count int64, lastUpdated time.Time, sortedInput bool) {
	cur := t.root
	for _, r := range normalizedPhrase {
		child, ok := cur.children[r]
		if !ok {
			child = newNode()
			cur.children[r] = child
		}
		cur = child
		cur.upsert(normalizedPhrase, count, lastUpdated, t.k, sortedInput)
	}
}

// upsert updates or appends phrase in the node's top-K list. When
// sortedInput is true the caller guarantees phrases arrive in descending
// count order, so a plain truncating append suffices; otherwise the list is
// fully re-sorted after the update.
func (nd *node) upsert(phrase string, count int64, lastUpdated time.Time, k int, sortedInput bool) {
	for i := range nd.topK {
		if nd.topK[i].Phrase == phrase {
			nd.topK[i].Count = count
			nd.topK[i].LastUpdated = lastUpdated
			if !sortedInput {
				sortSuggestions(nd.topK)
			}
			return
		}
	}

	if sortedInput {
		if len(nd.topK) < k {
			nd.topK = append(nd.topK, Suggestion{Phrase: phrase, Count: count, LastUpdated: lastUpdated})
		}
		return
	}

	nd.topK = append(nd.topK, Suggestion{Phrase: phrase, Count: count, LastUpdated: lastUpdated})
	sortSuggestions(nd.topK)
	if len(nd.topK) > k {
		nd.topK = nd.topK[:k]
	}
}

func sortSuggestions(s []Suggestion) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Count != s[j].Count {
			return s[i].Count > s[j].Count
		}
		return s[i].Phrase < s[j].Phrase
	})
}

// ApplyDelta accumulates a signed count delta for phrase, re-inserting it at
// its new total count, floored at 0 (a phrase's count is never negative,
// even when a negative delta outruns a count the node no longer carries in
// its top-K). delta=0 is a no-op.
//
// ApplyDelta mutates the trie in place rather than publishing a new
// generation, so it competes with concurrent Lookup calls for t.mu. Rather
// than block a writer behind however many readers are presently mid-Lookup,
// it makes one non-blocking attempt at the write lock and reports
// engineerr.ErrTransient on contention; internal/pipeline's per-shard
// dispatch already retries a failed shard apply with bounded exponential
// backoff, so the retry belongs there, not in a blocking wait here.
func (t *Trie) ApplyDelta(phrase string, delta int64, timestamp time.Time) error {
	if delta == 0 {
		return nil
	}
	n := normalize.Normalize(phrase)
	if n == "" {
		return nil
	}
	if !t.mu.TryLock() {
		return engineerr.ErrTransient
	}
	defer t.mu.Unlock()

	current := t.currentCountLocked(n)
	newCount := current + delta
	if newCount < 0 {
		newCount = 0
	}
	t.insertLocked(n, newCount, timestamp, false)
	return nil
}

// currentCountLocked returns the phrase's count as currently recorded at its
// leaf node's top-K list, or 0 if it is not present there (either never
// inserted, or displaced by higher-count siblings — in which case the delta
// effectively starts the phrase fresh at the delta's value, floored at 0).
// Callers must hold t.mu.
func (t *Trie) currentCountLocked(normalizedPhrase string) int64 {
	cur := t.root
	for _, r := range normalizedPhrase {
		child, ok := cur.children[r]
		if !ok {
			return 0
		}
		cur = child
	}
	for _, s := range cur.topK {
		if s.Phrase == normalizedPhrase {
			return s.Count
		}
	}
	return 0
}

// Entry is one row of a deterministic rebuild snapshot.
type Entry struct {
	Phrase      string
	Count       int64
	LastUpdated time.Time
}

// RebuildFrom builds a fresh Trie from a deterministic snapshot. The caller
// (internal/builder) is responsible for pre-sorting entries by (count desc,
// phrase asc) so the push-then-truncate fast path applies; RebuildFrom
// itself does not re-sort, matching spec's "insertions process phrases in
// descending count order" determinism guarantee.
func RebuildFrom(entries []Entry, k int) *Trie {
	t := New(k)
	for _, e := range entries {
		t.insertSorted(e.Phrase, e.Count, e.LastUpdated)
	}
	return t
}
