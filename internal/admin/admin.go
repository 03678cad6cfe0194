// Package admin implements the admin control plane: rebuild triggers, cache
// invalidation, and stats reporting. Each operation is a direct call into
// the component it fronts — no novel algorithms here, per spec.
package admin

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/typeahead/engine/internal/builder"
	"github.com/typeahead/engine/internal/pipeline"
	"github.com/typeahead/engine/internal/resultcache"
	"github.com/typeahead/engine/internal/shard"
	"github.com/typeahead/engine/internal/shardrouter"
	"github.com/typeahead/engine/internal/trending"
)

// Authorizer is an external collaborator: authentication and authorization
// for admin operations. The default AllowAll is a stand-in, not a security
// boundary.
type Authorizer interface {
	Allow(action string) bool
}

// AllowAll permits every action. Documented stand-in until a real
// authorizer is wired by the deployment.
type AllowAll struct{}

// Allow always returns true.
func (AllowAll) Allow(string) bool { return true }

// SnapshotSource produces the deterministic snapshot a rebuild consumes.
// The producer (a batch aggregator) is external; this is the boundary the
// engine calls into.
type SnapshotSource func(ctx context.Context) ([]builder.Entry, error)

// ShardStats reports one shard's generation version. The shard's size (its
// phrase or node count) is not reported.
type ShardStats struct {
	ShardID int
	Version int64
}

// StatsReport is the admin stats snapshot.
type StatsReport struct {
	Shards       []ShardStats
	CacheSize    int
	Backpressure int64
}

// ControlPlane wires the admin surface to the live components.
type ControlPlane struct {
	shards   map[int]*shard.Shard
	router   *shardrouter.Router
	cache    *resultcache.Cache
	pipeline *pipeline.Pipeline
	trending *trending.Counter
	topK     int
	source   SnapshotSource
	authz    Authorizer
}

// New creates a ControlPlane. authz may be nil, in which case AllowAll is
// used.
func New(shards map[int]*shard.Shard, router *shardrouter.Router, cache *resultcache.Cache, pl *pipeline.Pipeline, trendingCounter *trending.Counter, topKPerNode int, source SnapshotSource, authz Authorizer) *ControlPlane {
	if authz == nil {
		authz = AllowAll{}
	}
	return &ControlPlane{
		shards:   shards,
		router:   router,
		cache:    cache,
		pipeline: pl,
		trending: trendingCounter,
		topK:     topKPerNode,
		source:   source,
		authz:    authz,
	}
}

// Rebuild triggers a full rebuild from the configured SnapshotSource and
// atomically swaps in the new generation per shard.
func (c *ControlPlane) Rebuild(ctx context.Context) error {
	if !c.authz.Allow("rebuild") {
		return errUnauthorized("rebuild")
	}
	entries, err := c.source(ctx)
	if err != nil {
		return err
	}

	gen, err := builder.Build(entries, c.router, c.topK)
	if err != nil {
		return err
	}

	swapper := builder.NewSwapper(c.shards)
	swapper.Publish(gen)

	if c.cache != nil {
		c.cache.Purge()
	}
	log.Infof("admin: rebuild published %d shard generations", len(gen.Shards))
	return nil
}

// ClearCache wipes the result cache.
func (c *ControlPlane) ClearCache() error {
	if !c.authz.Allow("clear_cache") {
		return errUnauthorized("clear_cache")
	}
	if c.cache != nil {
		c.cache.Purge()
	}
	return nil
}

// Stats reports per-shard generation versions, cache size, and pipeline
// backpressure. Per-shard sizes are not included.
func (c *ControlPlane) Stats() (StatsReport, error) {
	if !c.authz.Allow("stats") {
		return StatsReport{}, errUnauthorized("stats")
	}
	report := StatsReport{}
	for id, sh := range c.shards {
		report.Shards = append(report.Shards, ShardStats{ShardID: id, Version: sh.Version()})
	}
	if c.cache != nil {
		report.CacheSize = c.cache.Len()
	}
	if c.pipeline != nil {
		report.Backpressure = c.pipeline.Backpressure()
	}
	return report, nil
}

// TrendingTop reports the n currently-trending phrases.
func (c *ControlPlane) TrendingTop(n int) ([]trending.Ranked, error) {
	if !c.authz.Allow("trending_top") {
		return nil, errUnauthorized("trending_top")
	}
	if c.trending == nil {
		return nil, nil
	}
	return c.trending.Top(n, time.Now()), nil
}

type unauthorizedError struct {
	action string
}

func (e *unauthorizedError) Error() string {
	return "admin: action not authorized: " + e.action
}

func errUnauthorized(action string) error {
	return &unauthorizedError{action: action}
}
