// Package shard owns one trie generation and the write-side buffer that
// feeds it. The read-side generation is published behind an atomic pointer
// so lookups never block on writes or on a rebuild in progress; the
// write-side delta buffer is exclusively owned by this shard's own
// ApplyDelta caller (the pipeline's per-shard dispatch goroutine).
package shard

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/typeahead/engine/internal/trie"
)

// Shard is one of shard_count independent prefix indices.
type Shard struct {
	id int

	generation atomic.Pointer[trie.Trie]
	version    atomic.Int64

	mu     sync.Mutex
	buffer map[string]int64 // pending count deltas, owned by this shard's writer
}

// New creates a Shard with an empty trie generation, top-K capacity k.
func New(id int, k int) *Shard {
	s := &Shard{id: id, buffer: make(map[string]int64)}
	s.generation.Store(trie.New(k))
	s.version.Store(1)
	return s
}

// ID returns the shard's identifier.
func (s *Shard) ID() int {
	return s.id
}

// Version returns the current generation's monotonic version number.
func (s *Shard) Version() int64 {
	return s.version.Load()
}

// Lookup serves a prefix query against the currently-published generation.
// It never blocks on writes or on a rebuild in progress.
func (s *Shard) Lookup(prefix string) []trie.Suggestion {
	gen := s.generation.Load()
	return gen.Lookup(prefix)
}

// ApplyDelta applies a signed delta for phrase directly to the live
// generation, then records it in the write-side buffer. delta=0 is a no-op.
// It can return engineerr.ErrTransient if the generation's internal lock is
// momentarily contended by a concurrent Lookup; the caller (internal/pipeline's
// per-shard dispatch) retries on that error, so the buffer is only updated
// once the trie mutation actually lands — a retried call must not double-count
// a delta that already succeeded.
func (s *Shard) ApplyDelta(phrase string, delta int64, timestamp time.Time) error {
	if delta == 0 {
		return nil
	}
	gen := s.generation.Load()
	if err := gen.ApplyDelta(phrase, delta, timestamp); err != nil {
		return err
	}

	s.mu.Lock()
	s.buffer[phrase] += delta
	s.mu.Unlock()
	return nil
}

// PendingDeltas returns a snapshot of the write-side buffer and clears it.
// Exposed for stats/debugging (internal/admin); not required for
// correctness since ApplyDelta already mutates the live generation
// synchronously.
func (s *Shard) PendingDeltas() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.buffer))
	for k, v := range s.buffer {
		out[k] = v
	}
	s.buffer = make(map[string]int64)
	return out
}

// Publish atomically swaps in a freshly-built generation. Any reader that
// started Lookup before the swap continues against the old *trie.Trie value
// it already loaded; the old generation is simply dropped once unreachable
// — Go's GC does the reclamation, no manual refcounting needed.
func (s *Shard) Publish(gen *trie.Trie) {
	s.generation.Store(gen)
	s.version.Add(1)
}
