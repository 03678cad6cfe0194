package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/typeahead/engine/internal/metrics"
	"github.com/typeahead/engine/internal/personalization"
	"github.com/typeahead/engine/internal/shard"
	"github.com/typeahead/engine/internal/shardrouter"
	"github.com/typeahead/engine/internal/trending"
)

func newTestPipeline(t *testing.T) (*Pipeline, map[int]*shard.Shard) {
	t.Helper()
	router := shardrouter.New(4)
	shards := map[int]*shard.Shard{
		0: shard.New(0, 10), 1: shard.New(1, 10), 2: shard.New(2, 10), 3: shard.New(3, 10),
	}
	tc := trending.New(5*60*1000, 12)
	ps := personalization.New(200, 30)
	p := New(router, shards, tc, ps, nil, metrics.NoopSink{}, Config{
		SoftCap:       10,
		FlushInterval: time.Hour,
	})
	return p, shards
}

func TestSubmitAndFlushAppliesDelta(t *testing.T) {
	p, shards := newTestPipeline(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		if err := p.Submit(Event{Phrase: "apple", Timestamp: now}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	router := shardrouter.New(4)
	id, _ := router.Route("apple")
	got := shards[id].Lookup("apple")
	if len(got) != 1 || got[0].Count != 5 {
		t.Errorf("expected apple count=5 after flush, got %+v", got)
	}
}

func TestScenarioS5QualityFilterRejection(t *testing.T) {
	p, shards := newTestPipeline(t)
	now := time.Now()

	for i := 0; i < 1000; i++ {
		p.Submit(Event{Phrase: "aaaaaaaaaa", Timestamp: now})
	}
	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	router := shardrouter.New(4)
	id, _ := router.Route("aaaaaaaaaa")
	got := shards[id].Lookup("aaaaaaaaaa")
	if len(got) != 0 {
		t.Errorf("expected keyboard-smash phrase to never reach the trie, got %+v", got)
	}
}

func TestQualityFilterDropsSmashSilently(t *testing.T) {
	p, shards := newTestPipeline(t)
	now := time.Now()
	for i := 0; i < 1000; i++ {
		p.Submit(Event{Phrase: "asdfghjkla", Timestamp: now})
	}
	p.Flush(context.Background())

	router := shardrouter.New(4)
	id, _ := router.Route("asdfghjkla")
	got := shards[id].Lookup("asdfghjkla")
	if len(got) != 0 {
		t.Errorf("expected keyboard-smash phrase to never reach the trie, got %+v", got)
	}
}

func TestSoftCapEvictsOldest(t *testing.T) {
	p, _ := newTestPipeline(t)
	now := time.Now()
	for i := 0; i < 20; i++ {
		p.Submit(Event{Phrase: strings.Repeat("a", 2) + string(rune('a'+i)), Timestamp: now})
	}
	if p.Backpressure() == 0 {
		t.Errorf("expected soft cap eviction to register backpressure")
	}
}

func TestPersonalizationWiredThroughSubmit(t *testing.T) {
	p, _ := newTestPipeline(t)
	now := time.Now()
	p.Submit(Event{Phrase: "apple", Timestamp: now, UserID: "user1"})

	if got := p.personalization.Score("user1", "apple", now); got < 0.99 {
		t.Errorf("expected personalization store to be updated inline, got %v", got)
	}
}

func TestTrendingWiredThroughSubmit(t *testing.T) {
	p, _ := newTestPipeline(t)
	now := time.Now()
	p.Submit(Event{Phrase: "apple", Timestamp: now})

	if got := p.trending.Score("apple", now); got != 1 {
		t.Errorf("expected trending counter to be updated inline, got %v", got)
	}
}

func TestStartStop(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	p.Submit(Event{Phrase: "apple", Timestamp: time.Now()})
	cancel()
	p.Stop()
}
