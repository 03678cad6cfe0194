// Package legacybench keeps the project's original flat-threshold completer
// alive as a deliberately-unoptimized baseline. cmd/bench builds this
// completer and the current sharded/ranked engine from the same word list
// and prints a latency comparison between the two: a radix-trie subtree scan
// with a fixed frequency cutoff, versus the pre-computed top-K index.
package legacybench

import (
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Suggestion is a single completion candidate, as this completer knew them
// before the ranking engine existed: a phrase and its raw popularity count.
type Suggestion struct {
	Phrase string
	Count  int64
}

// Completer is the original patricia-backed completer: every query walks the
// subtree under the prefix and sorts whatever it finds above a fixed
// frequency threshold. It predates per-node top-K caching entirely, which is
// exactly why it's kept around as the "before" half of the benchmark.
type Completer struct {
	mu           sync.RWMutex
	trie         *patricia.Trie
	totalPhrases int
	maxCount     int64
}

// NewCompleter creates an empty legacy completer.
func NewCompleter() *Completer {
	return &Completer{trie: patricia.NewTrie()}
}

// AddPhrase inserts a phrase with its popularity count.
func (c *Completer) AddPhrase(phrase string, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trie.Insert(patricia.Prefix(phrase), count)
	c.totalPhrases++
	if count > c.maxCount {
		c.maxCount = count
	}
}

// minFrequencyThreshold mirrors the original cutoff: short or repetitive
// prefixes raise the bar since they otherwise flood the subtree scan.
func minFrequencyThreshold(lowerPrefix string) int64 {
	if len(lowerPrefix) <= 2 || isRepetitive(lowerPrefix) {
		return 24
	}
	return 20
}

func isRepetitive(s string) bool {
	if len(s) <= 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// Complete returns up to limit suggestions for prefix, sorted by count
// descending. Every call re-scans and re-sorts the whole subtree — the
// behavior this repo's trie package was built to avoid.
func (c *Completer) Complete(prefix string, limit int) []Suggestion {
	lowerPrefix := strings.ToLower(prefix)
	threshold := minFrequencyThreshold(lowerPrefix)

	c.mu.RLock()
	var suggestions []Suggestion
	err := c.trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		count, ok := item.(int64)
		if !ok {
			return nil
		}
		if count < threshold {
			return nil
		}
		suggestions = append(suggestions, Suggestion{Phrase: string(p), Count: count})
		return nil
	})
	c.mu.RUnlock()

	if err != nil {
		log.Errorf("legacybench: error visiting trie subtree: %v", err)
		return nil
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Count != suggestions[j].Count {
			return suggestions[i].Count > suggestions[j].Count
		}
		return suggestions[i].Phrase < suggestions[j].Phrase
	})

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// Stats reports basic load statistics for the bench report.
func (c *Completer) Stats() (totalPhrases int, maxCount int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalPhrases, c.maxCount
}
