// Package engine wires the prefix index, ranking engine, trending counter,
// personalization store, aggregation pipeline, builder, and result cache
// into one Engine type exposing SubmitEvent, Suggest, and Rebuild.
package engine

import (
	"context"
	"time"

	"github.com/typeahead/engine/internal/admin"
	"github.com/typeahead/engine/internal/builder"
	"github.com/typeahead/engine/internal/config"
	"github.com/typeahead/engine/internal/engineerr"
	"github.com/typeahead/engine/internal/metrics"
	"github.com/typeahead/engine/internal/normalize"
	"github.com/typeahead/engine/internal/personalization"
	"github.com/typeahead/engine/internal/pipeline"
	"github.com/typeahead/engine/internal/ranking"
	"github.com/typeahead/engine/internal/resultcache"
	"github.com/typeahead/engine/internal/shard"
	"github.com/typeahead/engine/internal/shardrouter"
	"github.com/typeahead/engine/internal/trending"
)

// SuggestRequest is the external suggestion-request contract.
type SuggestRequest struct {
	Prefix   string
	UserID   string
	Limit    int
	Deadline time.Duration
}

// SuggestResponse is the external suggestion-response contract.
type SuggestResponse struct {
	Suggestions []ranking.ScoredSuggestion
}

// Engine is the assembled autosuggest system.
type Engine struct {
	cfg    *config.Config
	router *shardrouter.Router
	shards map[int]*shard.Shard

	trending        *trending.Counter
	personalization *personalization.Store
	ranker          *ranking.Engine
	cache           *resultcache.Cache
	pipeline        *pipeline.Pipeline
	admin           *admin.ControlPlane
	sink            metrics.Sink
}

// New assembles an Engine from cfg. source provides the rebuild snapshot
// for both the initial build and operator-triggered rebuilds.
func New(cfg *config.Config, source admin.SnapshotSource, sink metrics.Sink) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NoopSink{}
	}

	router := shardrouter.New(cfg.Index.ShardCount)
	shards := make(map[int]*shard.Shard, cfg.Index.ShardCount)
	for id := 0; id < cfg.Index.ShardCount; id++ {
		shards[id] = shard.New(id, cfg.Index.TopKPerNode)
	}

	trendingCounter := trending.New(int64(cfg.Trending.BucketMs), cfg.Trending.WindowBuckets)
	personalStore := personalization.New(cfg.Personal.UserHistoryCap, cfg.Personal.HalfLifeDays)
	ranker := ranking.New(cfg.Weights, trendingCounter, personalStore, sink)
	cache := resultcache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLMs)*time.Millisecond)

	pl := pipeline.New(router, shards, trendingCounter, personalStore, cache, sink, pipeline.Config{
		SoftCap:       cfg.Pipeline.DeltaMapSoftCap,
		FlushInterval: time.Duration(cfg.Pipeline.FlushIntervalMs) * time.Millisecond,
	})

	controlPlane := admin.New(shards, router, cache, pl, trendingCounter, cfg.Index.TopKPerNode, source, nil)

	e := &Engine{
		cfg:             cfg,
		router:          router,
		shards:          shards,
		trending:        trendingCounter,
		personalization: personalStore,
		ranker:          ranker,
		cache:           cache,
		pipeline:        pl,
		admin:           controlPlane,
		sink:            sink,
	}
	return e, nil
}

// Start begins the pipeline's periodic flush loop.
func (e *Engine) Start(ctx context.Context) {
	e.pipeline.Start(ctx)
}

// Stop halts the pipeline's periodic flush loop.
func (e *Engine) Stop() {
	e.pipeline.Stop()
}

// Admin exposes the assembled control plane for cmd/adminctl and tests.
func (e *Engine) Admin() *admin.ControlPlane {
	return e.admin
}

// SubmitEvent feeds a raw query event into the aggregation pipeline.
func (e *Engine) SubmitEvent(ev pipeline.Event) error {
	return e.pipeline.Submit(ev)
}

// Suggest answers a prefix query: cache check, route, lookup, rerank, cache
// store.
func (e *Engine) Suggest(ctx context.Context, req SuggestRequest) (SuggestResponse, error) {
	prefix := normalize.Normalize(req.Prefix)
	if prefix == "" {
		return SuggestResponse{}, &engineerr.PrefixInvalidError{Prefix: req.Prefix}
	}

	limit := req.Limit
	if limit <= 0 || limit > e.cfg.Index.ResultLimit {
		limit = e.cfg.Index.ResultLimit
	}

	deadlineMs := req.Deadline
	if deadlineMs <= 0 {
		deadlineMs = time.Duration(e.cfg.Query.DeadlineMs) * time.Millisecond
	}
	now := time.Now()
	deadline := now.Add(deadlineMs)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	key := resultcache.CacheKey{NormalizedPrefix: prefix}
	if req.UserID != "" {
		key.HasUser = true
		key.UserBucket = resultcache.UserBucket(req.UserID)
	}

	results, err := e.cache.GetOrCompute(key, now, func() ([]ranking.ScoredSuggestion, error) {
		e.sink.IncCacheMiss()
		return e.computeSuggestions(prefix, req.UserID, limit, now, deadline), nil
	})
	if err != nil {
		return SuggestResponse{}, err
	}
	return SuggestResponse{Suggestions: results}, nil
}

func (e *Engine) computeSuggestions(prefix, userID string, limit int, now, deadline time.Time) []ranking.ScoredSuggestion {
	shardID, ok := e.router.Route(prefix)
	if !ok {
		return nil
	}
	sh, ok := e.shards[shardID]
	if !ok {
		return nil
	}

	start := time.Now()
	candidates := sh.Lookup(prefix)
	e.sink.ObserveLookupLatency(shardID, time.Since(start).Seconds())

	ctx := ranking.Context{
		NormalizedPrefix: prefix,
		UserID:           userID,
		Now:              now,
		Deadline:         deadline,
	}
	return e.ranker.Rank(candidates, ctx, limit)
}

// QueryAdapter exposes Engine's Suggest under the narrower
// (ctx, prefix, userID string, limit int) shape that internal/ipc.QueryEngine
// expects. Engine itself can't implement that interface directly since its
// own Suggest method takes a SuggestRequest; this wrapper is defined here,
// structurally, rather than importing internal/ipc, so this package doesn't
// need to know about the debug transport at all.
type QueryAdapter struct {
	*Engine
}

// Suggest adapts to the ipc.QueryEngine method shape.
func (q QueryAdapter) Suggest(ctx context.Context, prefix, userID string, limit int) ([]ranking.ScoredSuggestion, error) {
	resp, err := q.Engine.Suggest(ctx, SuggestRequest{Prefix: prefix, UserID: userID, Limit: limit})
	return resp.Suggestions, err
}

// Rebuild builds a fresh generation from entries with internal/builder,
// publishes it onto every shard, and purges the result cache. It does not
// go through the admin control plane or its authorizer.
func (e *Engine) Rebuild(ctx context.Context, entries []builder.Entry) error {
	gen, err := builder.Build(entries, e.router, e.cfg.Index.TopKPerNode)
	if err != nil {
		return err
	}
	builder.NewSwapper(e.shards).Publish(gen)
	e.cache.Purge()
	return nil
}
