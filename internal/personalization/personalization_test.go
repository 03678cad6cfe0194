package personalization

import (
	"testing"
	"time"
)

func TestScoreNoHistory(t *testing.T) {
	s := New(200, 30)
	if got := s.Score("user1", "apple", time.Now()); got != 0 {
		t.Errorf("expected 0 for unseen phrase, got %v", got)
	}
}

func TestScoreNoUser(t *testing.T) {
	s := New(200, 30)
	if got := s.Score("", "apple", time.Now()); got != 0 {
		t.Errorf("expected 0 for empty user id, got %v", got)
	}
}

func TestRecordAndScoreDecay(t *testing.T) {
	s := New(200, 30)
	now := time.Now()
	s.RecordQuery("user1", "apple", now)

	fresh := s.Score("user1", "apple", now)
	if fresh < 0.99 {
		t.Errorf("expected near-1.0 score immediately after recording, got %v", fresh)
	}

	later := s.Score("user1", "apple", now.Add(30*24*time.Hour))
	if later < 0.36 || later > 0.38 {
		t.Errorf("expected ~exp(-1) = 0.368 score after 30 days with halfLifeDays=30, got %v", later)
	}
}

func TestRecordDedupeKeepsLatest(t *testing.T) {
	s := New(200, 30)
	now := time.Now()
	s.RecordQuery("user1", "apple", now.Add(-time.Hour))
	s.RecordQuery("user1", "banana", now)
	s.RecordQuery("user1", "apple", now)

	got := s.Score("user1", "apple", now)
	if got < 0.99 {
		t.Errorf("expected dedupe to keep the most recent timestamp, got %v", got)
	}
}

func TestHistoryCapEviction(t *testing.T) {
	s := New(2, 30)
	now := time.Now()
	s.RecordQuery("user1", "a", now)
	s.RecordQuery("user1", "b", now)
	s.RecordQuery("user1", "c", now)

	if got := s.Score("user1", "a", now); got != 0 {
		t.Errorf("expected oldest entry to be evicted past cap, got %v", got)
	}
	if got := s.Score("user1", "c", now); got < 0.99 {
		t.Errorf("expected most recent entry to remain, got %v", got)
	}
}

func TestDelete(t *testing.T) {
	s := New(200, 30)
	now := time.Now()
	s.RecordQuery("user1", "apple", now)
	s.Delete("user1")
	if got := s.Score("user1", "apple", now); got != 0 {
		t.Errorf("expected 0 after delete, got %v", got)
	}
}
