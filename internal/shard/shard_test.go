package shard

import (
	"sync"
	"testing"
	"time"

	"github.com/typeahead/engine/internal/trie"
)

func TestShardLookupAndApplyDelta(t *testing.T) {
	s := New(0, 10)
	now := time.Now()
	s.Publish(trie.RebuildFrom([]trie.Entry{
		{Phrase: "apple", Count: 100, LastUpdated: now},
	}, 10))

	got := s.Lookup("ap")
	if len(got) != 1 || got[0].Phrase != "apple" {
		t.Fatalf("expected apple, got %+v", got)
	}

	if err := s.ApplyDelta("apple", 10, now); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	got = s.Lookup("ap")
	if got[0].Count != 110 {
		t.Errorf("expected count 110 after delta, got %d", got[0].Count)
	}
}

// TestConcurrentLookupAndApplyDelta exercises Lookup racing ApplyDelta on the
// same live generation; run with -race it must report no concurrent
// map/slice access.
func TestConcurrentLookupAndApplyDelta(t *testing.T) {
	s := New(0, 10)
	now := time.Now()
	s.Publish(trie.RebuildFrom([]trie.Entry{
		{Phrase: "apple", Count: 100, LastUpdated: now},
		{Phrase: "application", Count: 80, LastUpdated: now},
	}, 10))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					s.Lookup("ap")
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		for {
			if err := s.ApplyDelta("apple", 1, now); err == nil {
				break
			}
		}
	}
	close(stop)
	wg.Wait()

	got := s.Lookup("apple")
	if len(got) != 1 || got[0].Count != 600 {
		t.Errorf("expected apple count 600 after 500 concurrent-safe deltas, got %+v", got)
	}
}

func TestShardVersionIncrementsOnPublish(t *testing.T) {
	s := New(0, 10)
	v0 := s.Version()
	s.Publish(trie.New(10))
	if s.Version() != v0+1 {
		t.Errorf("expected version to increment on publish")
	}
}

func TestShardPublishAtomicity(t *testing.T) {
	s := New(0, 10)
	now := time.Now()
	s.Publish(trie.RebuildFrom([]trie.Entry{
		{Phrase: "apple", Count: 100, LastUpdated: now},
	}, 10))

	var wg sync.WaitGroup
	results := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := s.Lookup("ap")
			results <- len(got) == 1 && (got[0].Phrase == "apple" || got[0].Phrase == "application")
		}()
	}

	go func() {
		s.Publish(trie.RebuildFrom([]trie.Entry{
			{Phrase: "application", Count: 90, LastUpdated: now},
		}, 10))
	}()

	wg.Wait()
	close(results)
	for ok := range results {
		if !ok {
			t.Errorf("observed an invalid intermediate state during concurrent publish")
		}
	}
}

func TestPendingDeltasSnapshotClears(t *testing.T) {
	s := New(0, 10)
	now := time.Now()
	s.ApplyDelta("apple", 5, now)
	s.ApplyDelta("banana", 3, now)

	snap := s.PendingDeltas()
	if snap["apple"] != 5 || snap["banana"] != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	snap2 := s.PendingDeltas()
	if len(snap2) != 0 {
		t.Errorf("expected buffer to be cleared after snapshot, got %+v", snap2)
	}
}
