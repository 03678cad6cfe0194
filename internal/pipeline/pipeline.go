// Package pipeline implements the streaming aggregation pipeline: event
// intake, quality filtering, delta batching, and periodic shard dispatch
// with bounded retry.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/typeahead/engine/internal/metrics"
	"github.com/typeahead/engine/internal/normalize"
	"github.com/typeahead/engine/internal/personalization"
	"github.com/typeahead/engine/internal/qualityfilter"
	"github.com/typeahead/engine/internal/shard"
	"github.com/typeahead/engine/internal/shardrouter"
	"github.com/typeahead/engine/internal/trending"
)

// Event is a single raw query event submitted to the pipeline.
type Event struct {
	Phrase    string
	Timestamp time.Time
	UserID    string
}

// CacheInvalidator is the minimal surface the pipeline needs from the result
// cache to invalidate stale entries on shard apply. Accepting an interface
// here (rather than *resultcache.Cache directly) keeps this package free of
// a dependency cycle, since resultcache has no need to import pipeline.
type CacheInvalidator interface {
	Purge()
}

// Pipeline batches accepted events into a soft-capped delta map and
// periodically dispatches them to their shards.
type Pipeline struct {
	router          *shardrouter.Router
	shards          map[int]*shard.Shard
	trending        *trending.Counter
	personalization *personalization.Store
	cache           CacheInvalidator
	sink            metrics.Sink

	softCap         int
	flushInterval   time.Duration
	maxRetryElapsed time.Duration

	mu        sync.Mutex
	delta     map[string]int64
	order     []string // FIFO insertion order, for soft-cap eviction
	backpress atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// Config bundles the pipeline's tunables (mirrors internal/config's
// PipelineConfig fields).
type Config struct {
	SoftCap         int
	FlushInterval   time.Duration
	MaxRetryElapsed time.Duration
}

// New creates a Pipeline over the given shard set and router.
func New(router *shardrouter.Router, shards map[int]*shard.Shard, trendingCounter *trending.Counter, personalStore *personalization.Store, cache CacheInvalidator, sink metrics.Sink, cfg Config) *Pipeline {
	if cfg.SoftCap <= 0 {
		cfg.SoftCap = 1_000_000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 60 * time.Second
	}
	if cfg.MaxRetryElapsed <= 0 {
		cfg.MaxRetryElapsed = 5 * time.Second
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Pipeline{
		router:          router,
		shards:          shards,
		trending:        trendingCounter,
		personalization: personalStore,
		cache:           cache,
		sink:            sink,
		softCap:         cfg.SoftCap,
		flushInterval:   cfg.FlushInterval,
		maxRetryElapsed: cfg.MaxRetryElapsed,
		delta:           make(map[string]int64),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Submit applies the quality filter, and on acceptance updates the delta
// map, the trending counter (inline, not batched), and the personalization
// store when a user id is present. Never fails; rejected events are dropped
// silently from the caller's point of view, with a metric recorded.
func (p *Pipeline) Submit(event Event) error {
	normalized, reason := qualityfilter.Check(event.Phrase)
	if reason != qualityfilter.ReasonNone {
		p.sink.IncRejectedEvent(string(reason))
		return nil
	}

	p.recordDelta(normalized)

	if p.trending != nil {
		p.trending.Record(normalized, event.Timestamp)
	}
	if event.UserID != "" && p.personalization != nil {
		p.personalization.RecordQuery(event.UserID, normalized, event.Timestamp)
	}
	return nil
}

func (p *Pipeline) recordDelta(phrase string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.delta[phrase]; !exists {
		if len(p.delta) >= p.softCap {
			p.evictOldestLocked()
		}
		p.order = append(p.order, phrase)
	}
	p.delta[phrase]++
}

func (p *Pipeline) evictOldestLocked() {
	for len(p.order) > 0 {
		oldest := p.order[0]
		p.order = p.order[1:]
		if _, ok := p.delta[oldest]; ok {
			delete(p.delta, oldest)
			p.backpress.Add(1)
			p.sink.IncBackpressure()
			return
		}
	}
}

// Backpressure returns the number of phrases dropped by soft-cap eviction
// since the pipeline started.
func (p *Pipeline) Backpressure() int64 {
	return p.backpress.Load()
}

// drain atomically takes ownership of the current delta map and resets it.
func (p *Pipeline) drain() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	taken := p.delta
	p.delta = make(map[string]int64)
	p.order = nil
	return taken
}

// Flush drains the delta map, groups deltas by shard, and dispatches
// apply_delta to each shard concurrently, retrying a failed shard dispatch
// with bounded exponential backoff before logging and dropping that shard's
// batch.
func (p *Pipeline) Flush(ctx context.Context) error {
	taken := p.drain()
	if len(taken) == 0 {
		return nil
	}

	byShard := make(map[int]map[string]int64)
	for phrase, count := range taken {
		id, ok := p.router.Route(phrase)
		if !ok {
			continue
		}
		if byShard[id] == nil {
			byShard[id] = make(map[string]int64)
		}
		byShard[id][phrase] = count
	}

	now := time.Now()
	g, _ := errgroup.WithContext(ctx)
	for id, deltas := range byShard {
		id, deltas := id, deltas
		g.Go(func() error {
			return p.dispatchShard(id, deltas, now)
		})
	}
	return g.Wait()
}

func (p *Pipeline) dispatchShard(id int, deltas map[string]int64, timestamp time.Time) error {
	sh, ok := p.shards[id]
	if !ok {
		return nil
	}

	// remaining shrinks as phrases are successfully applied, so a retry
	// after engineerr.ErrTransient only re-attempts what hasn't landed yet
	// rather than re-adding a delta that already committed.
	remaining := make(map[string]int64, len(deltas))
	for phrase, delta := range deltas {
		remaining[phrase] = delta
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.maxRetryElapsed

	err := backoff.Retry(func() error {
		for phrase, delta := range remaining {
			if err := sh.ApplyDelta(phrase, delta, timestamp); err != nil {
				return err
			}
			delete(remaining, phrase)
		}
		return nil
	}, b)

	if err != nil {
		log.Errorf("pipeline: dropping batch for shard %d after retry exhaustion: %v", id, err)
		return nil
	}

	if p.cache != nil {
		p.cache.Purge()
	}
	return nil
}

// Start runs the periodic flush loop until Stop is called.
func (p *Pipeline) Start(ctx context.Context) {
	ticker := time.NewTicker(p.flushInterval)
	go func() {
		defer ticker.Stop()
		defer close(p.doneCh)
		for {
			select {
			case <-ticker.C:
				if err := p.Flush(ctx); err != nil {
					log.Errorf("pipeline: flush error: %v", err)
				}
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the periodic flush loop and waits for it to exit.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	<-p.doneCh
}

// Normalize exposes the shared normalization function for callers that need
// to normalize a phrase the same way the pipeline does before comparing it
// (e.g. test assertions).
func Normalize(phrase string) string {
	return normalize.Normalize(phrase)
}
