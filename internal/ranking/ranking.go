// Package ranking composes popularity, recency, personalization, trending,
// and match-quality signals into a single score per candidate, and orders
// candidates for the final response.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/typeahead/engine/internal/config"
	"github.com/typeahead/engine/internal/metrics"
	"github.com/typeahead/engine/internal/personalization"
	"github.com/typeahead/engine/internal/trending"
	"github.com/typeahead/engine/internal/trie"
)

// ScoredSuggestion is a ranked candidate with its component signals broken
// out, so callers and tests can inspect why a score came out the way it did.
type ScoredSuggestion struct {
	Phrase       string
	Score        float64
	Popularity   float64
	Recency      float64
	Personal     float64
	Trending     float64
	MatchQuality float64
}

// Context carries the per-request ranking inputs: the normalized query
// prefix, an optional user id, the current time, and an optional deadline.
// A zero Deadline means no deadline is enforced; otherwise the wall clock is
// checked against it before each of the trending and personalization signals.
type Context struct {
	NormalizedPrefix string
	UserID           string
	Now              time.Time
	Deadline         time.Time
}

func (c Context) expired() bool {
	return !c.Deadline.IsZero() && time.Now().After(c.Deadline)
}

// Engine scores and orders candidates using the configured weights and the
// trending/personalization signal providers.
type Engine struct {
	weights         config.RankWeights
	trending        *trending.Counter
	personalization *personalization.Store
	sink            metrics.Sink
}

// New creates a ranking Engine. sink may be metrics.NoopSink{}.
func New(weights config.RankWeights, trendingCounter *trending.Counter, personalStore *personalization.Store, sink metrics.Sink) *Engine {
	if sink == nil {
		sink = metrics.NoopSink{}
	}
	return &Engine{weights: weights, trending: trendingCounter, personalization: personalStore, sink: sink}
}

// Rank scores candidates and returns the top limit entries ordered by score
// descending, ties broken by (popularity descending, phrase ascending).
func (e *Engine) Rank(candidates []trie.Suggestion, ctx Context, limit int) []ScoredSuggestion {
	scored := make([]ScoredSuggestion, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, e.score(c, ctx))
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Popularity != scored[j].Popularity {
			return scored[i].Popularity > scored[j].Popularity
		}
		return scored[i].Phrase < scored[j].Phrase
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func (e *Engine) score(c trie.Suggestion, ctx Context) ScoredSuggestion {
	popularity := math.Log10(float64(c.Count) + 1)

	halfLifeHours := e.weights.RecencyHalfLifeHours
	if halfLifeHours <= 0 {
		halfLifeHours = 168
	}
	ageHours := ctx.Now.Sub(c.LastUpdated).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	recency := math.Exp(-ageHours / halfLifeHours)

	matchQuality := matchQuality(ctx.NormalizedPrefix, c.Phrase)

	var trendingScore, personalScore float64

	if e.trending != nil && !ctx.expired() {
		norm := e.weights.TrendingNorm
		if norm <= 0 {
			norm = 1000
		}
		raw := float64(e.trending.Score(c.Phrase, ctx.Now))
		trendingScore = math.Min(raw/norm, 1.0)
	} else if e.trending != nil {
		e.sink.IncDegradedSignal("trending")
	}

	if ctx.UserID != "" && e.personalization != nil && !ctx.expired() {
		personalScore = e.personalization.Score(ctx.UserID, c.Phrase, ctx.Now)
	} else if ctx.UserID != "" && e.personalization != nil {
		e.sink.IncDegradedSignal("personalization")
	}

	score := e.weights.Popularity*popularity +
		e.weights.Recency*recency +
		e.weights.Personal*personalScore +
		e.weights.Trending*trendingScore +
		e.weights.MatchQuality*matchQuality

	return ScoredSuggestion{
		Phrase:       c.Phrase,
		Score:        score,
		Popularity:   popularity,
		Recency:      recency,
		Personal:     personalScore,
		Trending:     trendingScore,
		MatchQuality: matchQuality,
	}
}

// matchQuality scores how well phrase matches prefix: 1.0 for a leading
// match, 0.8 for a word-boundary match elsewhere in the phrase, 0.5 for any
// substring match, 0.0 otherwise.
func matchQuality(prefix, phrase string) float64 {
	if prefix == "" {
		return 0
	}
	if strings.HasPrefix(phrase, prefix) {
		return 1.0
	}
	if wordBoundaryMatch(prefix, phrase) {
		return 0.8
	}
	if strings.Contains(phrase, prefix) {
		return 0.5
	}
	return 0.0
}

func wordBoundaryMatch(prefix, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(phrase[idx:], prefix)
		if i < 0 {
			return false
		}
		pos := idx + i
		if pos == 0 || isWordBoundary(rune(phrase[pos-1])) {
			return true
		}
		idx = pos + 1
		if idx >= len(phrase) {
			return false
		}
	}
}

func isWordBoundary(r rune) bool {
	return r == ' ' || r == '-' || r == '_' || r == '.' || r == '/'
}
