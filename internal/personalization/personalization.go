// Package personalization maintains each user's bounded recent-query
// history and scores a candidate phrase by how recently (and whether) the
// user queried it, with exponential time decay. Sharded into stripes by
// user id hash, same shape as internal/shardrouter, so concurrent users
// don't contend on a single lock.
package personalization

import (
	"hash/fnv"
	"math"
	"sync"
	"time"
)

const defaultStripes = 64

// entry is one record in a user's history: a phrase and when it was last
// queried.
type entry struct {
	phrase    string
	timestamp time.Time
}

// userHistory is one user's bounded, most-recent-first query history,
// deduped by phrase on insert.
type userHistory struct {
	mu      sync.Mutex
	entries []entry
}

func (h *userHistory) record(phrase string, timestamp time.Time, maxLen int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, e := range h.entries {
		if e.phrase == phrase {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			break
		}
	}
	h.entries = append([]entry{{phrase: phrase, timestamp: timestamp}}, h.entries...)
	if len(h.entries) > maxLen {
		h.entries = h.entries[:maxLen]
	}
}

func (h *userHistory) lastSeen(phrase string) (time.Time, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range h.entries {
		if e.phrase == phrase {
			return e.timestamp, true
		}
	}
	return time.Time{}, false
}

// Store is the sharded personalization store. HistoryCap bounds each user's
// history length (H, default 200); HalfLifeDays controls score decay
// (default 30).
type Store struct {
	stripes      []*stripe
	historyCap   int
	halfLifeDays float64
}

type stripe struct {
	mu    sync.RWMutex
	users map[string]*userHistory
}

// New creates a Store with the given per-user history cap and half-life
// (in days) for the recency score.
func New(historyCap int, halfLifeDays float64) *Store {
	if historyCap <= 0 {
		historyCap = 200
	}
	if halfLifeDays <= 0 {
		halfLifeDays = 30
	}
	stripes := make([]*stripe, defaultStripes)
	for i := range stripes {
		stripes[i] = &stripe{users: make(map[string]*userHistory)}
	}
	return &Store{stripes: stripes, historyCap: historyCap, halfLifeDays: halfLifeDays}
}

func (s *Store) stripeFor(userID string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

func (s *Store) historyFor(userID string, createIfMissing bool) *userHistory {
	st := s.stripeFor(userID)

	st.mu.RLock()
	h, ok := st.users[userID]
	st.mu.RUnlock()
	if ok || !createIfMissing {
		return h
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if h, ok = st.users[userID]; ok {
		return h
	}
	h = &userHistory{}
	st.users[userID] = h
	return h
}

// RecordQuery pushes phrase to the front of userID's bounded history,
// deduping by phrase (keeping the most recent occurrence).
func (s *Store) RecordQuery(userID, phrase string, timestamp time.Time) {
	if userID == "" {
		return
	}
	h := s.historyFor(userID, true)
	h.record(phrase, timestamp, s.historyCap)
}

// Score returns a value in [0, 1]: exp(-days_since/halfLifeDays) if phrase
// is in userID's history, else 0.
func (s *Store) Score(userID, phrase string, now time.Time) float64 {
	if userID == "" {
		return 0
	}
	h := s.historyFor(userID, false)
	if h == nil {
		return 0
	}
	seen, ok := h.lastSeen(phrase)
	if !ok {
		return 0
	}
	daysSince := now.Sub(seen).Hours() / 24
	if daysSince < 0 {
		daysSince = 0
	}
	return math.Exp(-daysSince / s.halfLifeDays)
}

// Delete removes userID's history entirely (explicit deletion request).
func (s *Store) Delete(userID string) {
	st := s.stripeFor(userID)
	st.mu.Lock()
	delete(st.users, userID)
	st.mu.Unlock()
}
