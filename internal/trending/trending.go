// Package trending implements the sliding-window trending counter: a fixed
// ring of time buckets, each an independently-locked phrase->count map.
// Expiry is overwriting a stale bucket slot on next use, not deletion.
package trending

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Ranked is one entry of a trending-top-N report.
type Ranked struct {
	Phrase string
	Score  int64
}

// bucketEntry is one ring slot. bucketID identifies which time bucket the
// slot currently represents; counts is reset whenever a write targets a
// slot still tagged with a stale bucketID.
type bucketEntry struct {
	mu       sync.RWMutex
	bucketID int64
	counts   map[string]*atomic.Int64
}

// Counter is a ring of window_buckets buckets of bucket_ms duration each.
type Counter struct {
	bucketMs      int64
	windowBuckets int
	buckets       []*bucketEntry
}

// New creates a Counter with the given bucket duration and window size in
// buckets (default 5 minutes / 12 buckets = 1 hour, per spec).
func New(bucketMs int64, windowBuckets int) *Counter {
	if bucketMs <= 0 {
		bucketMs = 5 * 60 * 1000
	}
	if windowBuckets <= 0 {
		windowBuckets = 12
	}
	buckets := make([]*bucketEntry, windowBuckets)
	for i := range buckets {
		buckets[i] = &bucketEntry{bucketID: -1, counts: make(map[string]*atomic.Int64)}
	}
	return &Counter{bucketMs: bucketMs, windowBuckets: windowBuckets, buckets: buckets}
}

func (c *Counter) bucketIDFor(t time.Time) int64 {
	return t.UnixMilli() / c.bucketMs
}

func (c *Counter) slot(bucketID int64) *bucketEntry {
	idx := bucketID % int64(c.windowBuckets)
	if idx < 0 {
		idx += int64(c.windowBuckets)
	}
	return c.buckets[idx]
}

// Record increments the bucket covering timestamp for phrase.
func (c *Counter) Record(phrase string, timestamp time.Time) {
	bucketID := c.bucketIDFor(timestamp)
	b := c.slot(bucketID)

	b.mu.Lock()
	if b.bucketID != bucketID {
		b.bucketID = bucketID
		b.counts = make(map[string]*atomic.Int64)
	}
	counter, ok := b.counts[phrase]
	if !ok {
		counter = new(atomic.Int64)
		b.counts[phrase] = counter
	}
	b.mu.Unlock()

	counter.Add(1)
}

// Score sums phrase's counts across the active window ending at now.
func (c *Counter) Score(phrase string, now time.Time) int64 {
	current := c.bucketIDFor(now)
	var total int64
	for i := 0; i < c.windowBuckets; i++ {
		bucketID := current - int64(i)
		b := c.slot(bucketID)

		b.mu.RLock()
		if b.bucketID == bucketID {
			if counter, ok := b.counts[phrase]; ok {
				total += counter.Load()
			}
		}
		b.mu.RUnlock()
	}
	return total
}

// Top returns the n phrases with the highest active-window score. Ties are
// broken by phrase ascending for determinism.
func (c *Counter) Top(n int, now time.Time) []Ranked {
	current := c.bucketIDFor(now)
	totals := make(map[string]int64)
	for i := 0; i < c.windowBuckets; i++ {
		bucketID := current - int64(i)
		b := c.slot(bucketID)

		b.mu.RLock()
		if b.bucketID == bucketID {
			for phrase, counter := range b.counts {
				totals[phrase] += counter.Load()
			}
		}
		b.mu.RUnlock()
	}

	ranked := make([]Ranked, 0, len(totals))
	for phrase, score := range totals {
		ranked = append(ranked, Ranked{Phrase: phrase, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Phrase < ranked[j].Phrase
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
