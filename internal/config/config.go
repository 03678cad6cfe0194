// Package config manages TOML configuration for the autosuggest engine. It
// mirrors the teacher's InitConfig/LoadConfig/SaveConfig shape, with the
// struct fields replaced by the engine's enumerated configuration surface.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Config holds the entire engine configuration.
type Config struct {
	Index    IndexConfig    `toml:"index"`
	Cache    CacheConfig    `toml:"cache"`
	Trending TrendingConfig `toml:"trending"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Personal PersonalConfig `toml:"personal"`
	Weights  RankWeights    `toml:"weights"`
	Query    QueryConfig    `toml:"query"`
	Rebuild  RebuildConfig  `toml:"rebuild"`
}

// IndexConfig controls shard topology and per-node fan-out.
type IndexConfig struct {
	ShardCount  int `toml:"shard_count"`
	TopKPerNode int `toml:"top_k_per_node"`
	ResultLimit int `toml:"result_limit"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	TTLMs      int `toml:"result_cache_ttl_ms"`
	MaxEntries int `toml:"result_cache_max_entries"`
}

// TrendingConfig controls the sliding-window trending counter.
type TrendingConfig struct {
	BucketMs      int `toml:"trending_bucket_ms"`
	WindowBuckets int `toml:"trending_window_buckets"`
}

// PipelineConfig controls the aggregation pipeline.
type PipelineConfig struct {
	FlushIntervalMs int `toml:"flush_interval_ms"`
	DeltaMapSoftCap int `toml:"delta_map_soft_cap"`
}

// PersonalConfig controls the personalization store.
type PersonalConfig struct {
	UserHistoryCap int     `toml:"user_history_cap"`
	HalfLifeDays   float64 `toml:"personal_half_life_days"`
}

// RankWeights are the linear combination weights for the ranking engine.
// They must sum to 1.0 within epsilon; config load fails rather than
// silently renormalizing.
type RankWeights struct {
	Popularity           float64 `toml:"w_popularity"`
	Recency              float64 `toml:"w_recency"`
	Personal             float64 `toml:"w_personal"`
	Trending             float64 `toml:"w_trending"`
	MatchQuality         float64 `toml:"w_match_quality"`
	TrendingNorm         float64 `toml:"trending_norm"`
	RecencyHalfLifeHours float64 `toml:"recency_half_life_hours"`
}

// QueryConfig controls per-request behavior.
type QueryConfig struct {
	DeadlineMs int `toml:"query_deadline_ms"`
}

// RebuildConfig controls the periodic full rebuild trigger.
type RebuildConfig struct {
	ScheduleCron string `toml:"rebuild_schedule_cron"`
}

const weightSumEpsilon = 1e-9

// DefaultConfig returns a Config with the spec's documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			ShardCount:  16,
			TopKPerNode: 10,
			ResultLimit: 10,
		},
		Cache: CacheConfig{
			TTLMs:      60_000,
			MaxEntries: 100_000,
		},
		Trending: TrendingConfig{
			BucketMs:      5 * 60 * 1000,
			WindowBuckets: 12,
		},
		Pipeline: PipelineConfig{
			FlushIntervalMs: 60_000,
			DeltaMapSoftCap: 1_000_000,
		},
		Personal: PersonalConfig{
			UserHistoryCap: 200,
			HalfLifeDays:   30,
		},
		Weights: RankWeights{
			Popularity:           0.30,
			Recency:              0.15,
			Personal:             0.25,
			Trending:             0.20,
			MatchQuality:         0.10,
			TrendingNorm:         1000,
			RecencyHalfLifeHours: 168,
		},
		Query: QueryConfig{
			DeadlineMs: 50,
		},
		Rebuild: RebuildConfig{
			ScheduleCron: "0 0 * * *",
		},
	}
}

// Validate checks the configuration surface for internal consistency. The
// weights must sum to 1.0 within epsilon; the config is rejected rather than
// silently renormalized.
func (c *Config) Validate() error {
	sum := c.Weights.Popularity + c.Weights.Recency + c.Weights.Personal +
		c.Weights.Trending + c.Weights.MatchQuality
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("config: rank weights sum to %v, want 1.0 (±%v)", sum, weightSumEpsilon)
	}
	if c.Index.ShardCount <= 0 {
		return fmt.Errorf("config: shard_count must be positive, got %d", c.Index.ShardCount)
	}
	if c.Index.TopKPerNode <= 0 {
		return fmt.Errorf("config: top_k_per_node must be positive, got %d", c.Index.TopKPerNode)
	}
	return nil
}

// InitConfig loads config from file or creates a default one if missing.
func InitConfig(configPath string) (*Config, error) {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			return nil, err
		}
		log.Debugf("created default config file at %s", configPath)
		return cfg, nil
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("failed to load config, using defaults: %v", err)
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// LoadConfig loads and validates a Config from a TOML file.
func LoadConfig(configPath string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Errorf("failed to decode config file: %v", err)
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes cfg to a TOML file.
func SaveConfig(cfg *Config, configPath string) error {
	file, err := os.Create(configPath)
	if err != nil {
		log.Errorf("failed to create config file: %v", err)
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
